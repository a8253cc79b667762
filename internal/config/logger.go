package config

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logger from the logging settings. Unknown levels
// fall back to info; any format other than json is text.
func NewLogger(cfg LoggingConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out != nil {
		logger.SetOutput(out)
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
