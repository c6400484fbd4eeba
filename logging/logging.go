// Package logging builds the process logger. Output never goes to stdout,
// which carries the bar protocol.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Conf struct {
	Level       string // debug, info, warn, error
	Path        string // optional log file, in addition to stderr
	Development bool
}

func fixConf(conf *Conf) *Conf {
	if conf == nil {
		return &Conf{Level: "info"}
	}
	if conf.Level == "" {
		conf.Level = "info"
	}
	return conf
}

// New returns a logger and the level handle that controls it, so the level
// can follow config reloads.
func New(conf *Conf) (*zap.Logger, zap.AtomicLevel, error) {
	conf = fixConf(conf)
	lvl, err := zapcore.ParseLevel(conf.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("log level: %w", err)
	}

	var cfg zap.Config
	if conf.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if conf.Path != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, conf.Path)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("build logger: %w", err)
	}
	return logger, cfg.Level, nil
}

// SetLevel parses level and applies it to al.
func SetLevel(al zap.AtomicLevel, level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	al.SetLevel(lvl)
	return nil
}
