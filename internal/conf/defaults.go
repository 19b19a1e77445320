package conf

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// setDefaults registers default values for every setting.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("camera.device", 0)
	v.SetDefault("camera.fps", 10)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)

	v.SetDefault("detection.ear_threshold", 0.20)
	v.SetDefault("detection.mar_threshold", 0.70)
	v.SetDefault("detection.fatigue_event_threshold", 3)
	v.SetDefault("detection.landmarker_idle_timeout", 10*time.Second)

	v.SetDefault("server.listen", "127.0.0.1:8420")

	v.SetDefault("store.path", filepath.Join(DataDir(), "vigil.db"))

	v.SetDefault("alert.enabled", true)
	v.SetDefault("alert.plugin_dir", filepath.Join(DataDir(), "plugins"))
	v.SetDefault("alert.plugin", "notify")
	v.SetDefault("alert.action", "alert")
	v.SetDefault("alert.timeout", 5*time.Second)
	v.SetDefault("alert.moderate_cooldown", 3*time.Second)
	v.SetDefault("alert.severe_cooldown", 6*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "vigil")
	v.SetDefault("mqtt.topic", "vigil")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("metrics.enabled", true)
}
