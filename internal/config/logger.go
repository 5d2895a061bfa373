package config

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// ParseLevel accepts debug, info, warn and error; empty means info.
func ParseLevel(level string) (logrus.Level, error) {
	switch level {
	case "debug":
		return logrus.DebugLevel, nil
	case "info", "":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	}
	return logrus.InfoLevel, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
}

// NewLogger creates the bridge logger writing to out, or stderr when out is nil.
func NewLogger(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	if out != nil {
		logger.SetOutput(out)
	}
	return logger, nil
}
