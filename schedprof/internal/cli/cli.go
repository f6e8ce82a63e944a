package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yandex/schedprof/schedprof/pkg/xlog"
)

var LogLevels = []string{"debug", "info", "warn", "error"}

////////////////////////////////////////////////////////////////////////////////

type App struct {
	logger  xlog.Logger
	config  *Config
	context context.Context
	cancel  func()
}

func New(config *Config) (*App, error) {
	config.FillDefault()

	level, err := zapcore.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	logger, err := NewLogger(level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	logger.Debug(ctx, "Initialized CLI",
		zap.String("log_level", config.LogLevel),
		zap.Duration("timeout", config.Timeout),
		zap.String("compression", config.Compression),
	)

	return &App{logger, config, ctx, cancel}, nil
}

////////////////////////////////////////////////////////////////////////////////

func (a *App) Shutdown() {
	a.cancel()
	_ = a.logger.Logger().Sync()
}

func (a *App) Logger() xlog.Logger {
	return a.logger
}

func (a *App) Config() *Config {
	return a.config
}

func (a *App) Context() context.Context {
	return a.context
}
