// Package conf loads vigil settings from config.yaml, the environment and .env.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. VIGIL_SERVER_LISTEN.
const EnvPrefix = "VIGIL"

// LogSettings configures the process logger.
type LogSettings struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // text or json
	File       string `mapstructure:"file"`   // optional rotating log file
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// CameraSettings configures frame capture.
type CameraSettings struct {
	Device int `mapstructure:"device"`
	FPS    int `mapstructure:"fps"`
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// DetectionSettings holds the initial fatigue thresholds.
type DetectionSettings struct {
	EARThreshold          float64       `mapstructure:"ear_threshold"`
	MARThreshold          float64       `mapstructure:"mar_threshold"`
	FatigueEventThreshold int           `mapstructure:"fatigue_event_threshold"`
	LandmarkerIdleTimeout time.Duration `mapstructure:"landmarker_idle_timeout"`
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Listen string `mapstructure:"listen"`
}

// StoreSettings configures settings persistence.
type StoreSettings struct {
	Path string `mapstructure:"path"`
}

// AlertSettings configures fatigue alert plugins.
type AlertSettings struct {
	Enabled          bool          `mapstructure:"enabled"`
	PluginDir        string        `mapstructure:"plugin_dir"`
	Plugin           string        `mapstructure:"plugin"`
	Action           string        `mapstructure:"action"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ModerateCooldown time.Duration `mapstructure:"moderate_cooldown"`
	SevereCooldown   time.Duration `mapstructure:"severe_cooldown"`
}

// MQTTSettings configures the MQTT event sink.
type MQTTSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	QoS      byte   `mapstructure:"qos"`
	Retain   bool   `mapstructure:"retain"`
}

// MetricsSettings toggles the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// Settings is the complete vigil configuration.
type Settings struct {
	Log       LogSettings       `mapstructure:"log"`
	Camera    CameraSettings    `mapstructure:"camera"`
	Detection DetectionSettings `mapstructure:"detection"`
	Server    ServerSettings    `mapstructure:"server"`
	Store     StoreSettings     `mapstructure:"store"`
	Alert     AlertSettings     `mapstructure:"alert"`
	MQTT      MQTTSettings      `mapstructure:"mqtt"`
	Metrics   MetricsSettings   `mapstructure:"metrics"`

	// ConfigFile is the file that was read, empty when running on defaults.
	ConfigFile string `mapstructure:"-"`
}

// Load reads settings into v. configFile, if set, must exist; otherwise
// config.yaml is searched in the working directory, $HOME/.vigil and
// /etc/vigil, and defaults are used when none is found. A .env file in the
// working directory is loaded into the environment first.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range ConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	settings.ConfigFile = v.ConfigFileUsed()

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// ConfigPaths returns the directories searched for config.yaml.
func ConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".vigil"))
	}
	return append(paths, "/etc/vigil")
}

// DataDir returns the default directory for the database and plugins.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vigil"
	}
	return filepath.Join(home, ".vigil")
}
