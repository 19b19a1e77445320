package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ayusman/vigil/internal/conf"
	"github.com/ayusman/vigil/internal/logging"
)

// cli carries state resolved by the root command before a subcommand runs.
type cli struct {
	v          *viper.Viper
	configFile string

	settings *conf.Settings
	logger   *slog.Logger
	closeLog func() error
}

// newRootCommand creates the root command with the run and replay
// subcommands. Flags are bound into v and take precedence over the config
// file and environment.
func newRootCommand(v *viper.Viper) *cobra.Command {
	c := &cli{v: v}

	rootCmd := &cobra.Command{
		Use:           "vigil",
		Short:         "Driver fatigue monitor",
		Long:          "Vigil watches a face through a camera and reports eye closures, yawns and high blink rates as fatigue levels.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initialize(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.closeLog != nil {
				return c.closeLog()
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "Path to config.yaml (default: search ., ~/.vigil, /etc/vigil)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text or json)")
	mustBind(v, "log.level", flags.Lookup("log-level"))
	mustBind(v, "log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(
		runCommand(c),
		replayCommand(c),
	)
	return rootCmd
}

// initialize loads settings and builds the process logger.
func (c *cli) initialize(cmd *cobra.Command) error {
	settings, err := conf.Load(c.v, c.configFile)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Config{
		Level:      settings.Log.Level,
		Format:     settings.Log.Format,
		File:       settings.Log.File,
		MaxSizeMB:  settings.Log.MaxSizeMB,
		MaxBackups: settings.Log.MaxBackups,
		MaxAgeDays: settings.Log.MaxAgeDays,
	}, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	c.settings = settings
	c.logger = logger
	c.closeLog = closeLog

	if settings.ConfigFile != "" {
		logger.Debug("loaded config", "file", settings.ConfigFile)
	}
	return nil
}

// mustBind binds a flag to a settings key. A failure is a programming error.
func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}
