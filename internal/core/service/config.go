package service

import (
	"context"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// ParseLogLevel maps the configured level name, defaulting to info.
func ParseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ConfigureLogging applies bot.log_level and bot.log_format to the global logger.
func ConfigureLogging() {
	zerolog.SetGlobalLevel(ParseLogLevel(viper.GetString("bot.log_level")))

	if viper.GetString("bot.log_format") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// ConfigWatcher reloads the log level when the config file changes. Other settings are read at startup.
type ConfigWatcher struct{}

func (ConfigWatcher) Name() string {
	return "config watcher"
}

func (ConfigWatcher) Run(ctx context.Context) error {
	viper.OnConfigChange(OnConfigChange)
	viper.WatchConfig()

	<-ctx.Done()
	return nil
}

func OnConfigChange(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}

	level := ParseLogLevel(viper.GetString("bot.log_level"))
	if level == zerolog.GlobalLevel() {
		return
	}

	zerolog.SetGlobalLevel(level)
	log.Info().Str("file", e.Name).Stringer("level", level).Msg("config changed, log level updated")
}
