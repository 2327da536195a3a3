package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a configured zap.Logger based on configuration.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	zapcfg := zap.NewDevelopmentConfig()
	if cfg != nil && cfg.LogFormat == "json" {
		zapcfg = zap.NewProductionConfig()
		zapcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if cfg != nil && cfg.LogLevel != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zapcfg.Level = lvl
	}
	logger, err := zapcfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		logger = logger.With(zap.String("env", cfg.AppEnv))
	}
	return logger, nil
}
