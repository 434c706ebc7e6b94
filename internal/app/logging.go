package app

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"carmonitor/internal/config"
)

// SetupLogging configures the global logrus logger.
func SetupLogging(cfg config.LogConfig) {
	log.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
