package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

// New builds the process logger. Local runs get a human readable console
// encoder; every other environment logs JSON to stdout.
func New(env string) (*zap.Logger, error) {
	var config zap.Config
	switch env {
	case envLocal:
		config = zap.NewDevelopmentConfig()
	case envDev:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		config = zap.NewProductionConfig()
	}

	config.InitialFields = map[string]interface{}{"app": "flightbooking"}
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}
