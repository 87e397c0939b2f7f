package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	contextKeyLogger contextKey = "logger"
)

type ContextData struct {
	Logger  *zap.Logger
	Verbose bool
}

// NewLogger builds the development-style logger used by the CLI. Logs go to
// stderr so that query output on stdout stays machine readable.
func NewLogger(verbose bool) (*zap.Logger, error) {
	zapconfig := zap.NewDevelopmentConfig()
	zapconfig.OutputPaths = []string{"stderr"}
	zapconfig.Level.SetLevel(zapcore.InfoLevel)
	if verbose {
		zapconfig.Level.SetLevel(zapcore.DebugLevel)
	}
	return zapconfig.Build()
}

func NewContextWithLogger(ctx context.Context, logger *zap.Logger, verbose bool) context.Context {
	return context.WithValue(ctx, contextKeyLogger, ContextData{Logger: logger, Verbose: verbose})
}

func FromContext(ctx context.Context) *zap.Logger {
	cdata, ok := ctx.Value(contextKeyLogger).(ContextData)
	if !ok {
		return zap.L()
	}
	return cdata.Logger
}

func DataFromContext(ctx context.Context) ContextData {
	cdata, ok := ctx.Value(contextKeyLogger).(ContextData)
	if !ok {
		return ContextData{
			Logger: zap.L(),
		}
	}
	return cdata
}

// WithFields returns a context whose logger carries the given fields.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	cdata := DataFromContext(ctx)
	return NewContextWithLogger(ctx, cdata.Logger.With(fields...), cdata.Verbose)
}
