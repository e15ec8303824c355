package global

import (
	"context"
	"os"
	"sync"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	Sub *zap.Logger
}

func (log *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	log.Sub.Info(msg, decaps(ctx, fields...)...)
}

func (log *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	log.Sub.Error(msg, decaps(ctx, fields...)...)
}

func (log *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	log.Sub.Debug(msg, decaps(ctx, fields...)...)
}

func (log *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	log.Sub.Warn(msg, decaps(ctx, fields...)...)
}

var ctxFields = []struct {
	key  any
	name string
}{
	{challengeKey{}, "challenge_id"},
	{phaseKey{}, "phase_id"},
	{submissionKey{}, "submission_id"},
	{userKey{}, "user_id"},
	{jobKey{}, "job_id"},
}

func decaps(ctx context.Context, fields ...zap.Field) []zap.Field {
	for _, cf := range ctxFields {
		if v, ok := ctx.Value(cf.key).(string); ok && v != "" {
			fields = append(fields, zap.String(cf.name, v))
		}
	}
	return fields
}

var (
	logger  *Logger
	logOnce sync.Once
)

func Log() *Logger {
	logOnce.Do(func() {
		lvl := zapcore.InfoLevel
		if Conf.LogLevel != "" {
			if l, err := zapcore.ParseLevel(Conf.LogLevel); err == nil {
				lvl = l
			}
		}

		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			lvl,
		)
		if Conf.Otel.Tracing && loggerProvider != nil {
			core = zapcore.NewTee(
				core,
				otelzap.NewCore("ctfer.io/covalic", otelzap.WithLoggerProvider(loggerProvider)),
			)
		}

		logger = &Logger{
			Sub: zap.New(core),
		}
	})
	return logger
}
