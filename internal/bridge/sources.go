package bridge

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/srg/cscbridge/internal/config"
	"github.com/srg/cscbridge/internal/sensor"
	"github.com/srg/cscbridge/internal/source/script"
	"github.com/srg/cscbridge/internal/source/serial"
)

// SourcesFromConfig returns the factories for the configured source kind.
func SourcesFromConfig(cfg config.SourceConfig, logger *logrus.Logger) ([]SourceFactory, error) {
	switch cfg.Kind {
	case "script":
		return []SourceFactory{ScriptSource(cfg.Script, logger)}, nil
	case "serial":
		return []SourceFactory{SerialSource(cfg.Serial, logger)}, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// ScriptSource runs the Lua simulator; an empty path selects the built-in ride.
func ScriptSource(cfg config.ScriptConfig, logger *logrus.Logger) SourceFactory {
	return func(hub *sensor.Hub) (Source, error) {
		opts := script.Options{Interval: cfg.Interval, Logger: logger}
		if cfg.Path != "" {
			var err error
			if opts, err = script.LoadFile(cfg.Path, opts); err != nil {
				return nil, err
			}
		}
		return script.New(hub, opts)
	}
}

// SerialSource opens the PTY line-protocol input.
func SerialSource(cfg config.SerialConfig, logger *logrus.Logger) SourceFactory {
	return func(hub *sensor.Hub) (Source, error) {
		src, err := serial.Open(hub, serial.Options{
			BufferSize: cfg.BufferSize,
			Link:       cfg.Link,
			Echo:       true,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		logger.WithField("tty", src.TTYName()).Info("Serial input ready")
		return src, nil
	}
}
