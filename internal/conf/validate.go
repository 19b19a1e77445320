package conf

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks the settings for values the service cannot run with.
func (s *Settings) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	switch strings.ToLower(s.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", s.Log.Level))
	}
	check(s.Log.Format == "text" || s.Log.Format == "json", "log.format %q is not text or json", s.Log.Format)

	check(s.Camera.Device >= 0, "camera.device must not be negative")
	check(s.Camera.FPS > 0, "camera.fps must be positive")

	check(s.Detection.EARThreshold > 0, "detection.ear_threshold must be positive")
	check(s.Detection.MARThreshold > 0, "detection.mar_threshold must be positive")
	check(s.Detection.FatigueEventThreshold > 0, "detection.fatigue_event_threshold must be positive")

	check(s.Server.Listen != "", "server.listen must be set")
	check(s.Store.Path != "", "store.path must be set")

	if s.Alert.Enabled {
		check(s.Alert.Plugin != "", "alert.plugin must be set when alerts are enabled")
		check(s.Alert.Timeout > 0, "alert.timeout must be positive")
		check(s.Alert.ModerateCooldown > 0, "alert.moderate_cooldown must be positive")
		check(s.Alert.SevereCooldown > 0, "alert.severe_cooldown must be positive")
	}

	if s.MQTT.Enabled {
		check(s.MQTT.Broker != "", "mqtt.broker must be set when mqtt is enabled")
		check(s.MQTT.Topic != "", "mqtt.topic must be set when mqtt is enabled")
		check(s.MQTT.QoS <= 2, "mqtt.qos must be 0, 1 or 2")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
