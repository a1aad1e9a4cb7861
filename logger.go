package match

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

var logger = defaultLogger()

// SetLogger allows setting a custom logger
func SetLogger(l *slog.Logger) {
	logger = l
}

// NewLogger builds a slog logger backed by a zap production core at the given level.
// The returned func flushes buffered entries.
func NewLogger(level string) (*slog.Logger, func() error, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidParam, "log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, nil, errors.Wrap(err, "build zap logger")
	}

	return slog.New(zapslog.NewHandler(zapLogger.Core())), zapLogger.Sync, nil
}

func defaultLogger() *slog.Logger {
	l, _, err := NewLogger("info")
	if err != nil {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return l
}
