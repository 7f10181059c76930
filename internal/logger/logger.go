// Package logger is the process-wide structured logger.
package logger

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	Path       string
	LogLevel   string
	Service    string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type ctxKey struct{}

const requestIDHeader = "X-Request-ID"

var (
	mu     sync.RWMutex
	sugar  = zap.NewNop().Sugar()
	closer func() error
)

// Init installs the global logger. An empty Path logs to stdout only.
func Init(conf *LogConfig) {
	level := zapcore.InfoLevel
	if conf.LogLevel != "" {
		if err := level.Set(conf.LogLevel); err != nil {
			level = zapcore.InfoLevel
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	var rotate *lumberjack.Logger
	if conf.Path != "" {
		rotate = &lumberjack.Logger{
			Filename:   conf.Path,
			MaxSize:    orDefault(conf.MaxSizeMB, 100),
			MaxBackups: orDefault(conf.MaxBackups, 5),
			MaxAge:     orDefault(conf.MaxAgeDays, 28),
			Compress:   true,
		}
		sinks = append(sinks, zapcore.AddSync(rotate))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.NewMultiWriteSyncer(sinks...),
		level,
	)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	if conf.Service != "" {
		l = l.With(zap.String("service", conf.Service))
	}

	mu.Lock()
	defer mu.Unlock()
	sugar = l.Sugar()
	closer = func() error {
		_ = l.Sync()
		if rotate != nil {
			return rotate.Close()
		}
		return nil
	}
}

// Close flushes buffered entries and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer()
		closer = nil
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func with(ctx context.Context) *zap.SugaredLogger {
	mu.RLock()
	l := sugar
	mu.RUnlock()
	if ctx == nil {
		return l
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return l.With("request_id", id)
	}
	return l
}

func Debugf(ctx context.Context, format string, args ...any) {
	with(ctx).Debugf(format, args...)
}

func Infof(ctx context.Context, format string, args ...any) {
	with(ctx).Infof(format, args...)
}

func Warnf(ctx context.Context, format string, args ...any) {
	with(ctx).Warnf(format, args...)
}

func Errorf(ctx context.Context, format string, args ...any) {
	with(ctx).Errorf(format, args...)
}

func Fatalf(ctx context.Context, format string, args ...any) {
	with(ctx).Fatalf(format, args...)
}

// WithRequestID returns ctx tagged with a request id for log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// LogWithWriter tags every request with an id and logs its outcome.
func LogWithWriter() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), id))

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		logf := Infof
		if status >= 500 {
			logf = Errorf
		}
		logf(c.Request.Context(), "%s %s %d %s", c.Request.Method, c.FullPath(), status, time.Since(start))
	}
}
