package httpsource

import (
	"fmt"
	"net/http"

	"github.com/dailyyoga/cacheorch/cache"
	"github.com/dailyyoga/cacheorch/logger"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// leveledLogger adapts logger.Logger to retryablehttp.LeveledLogger
type leveledLogger struct {
	log logger.Logger
}

var _ retryablehttp.LeveledLogger = leveledLogger{}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.log.Error(msg, fields(keysAndValues)...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.log.Info(msg, fields(keysAndValues)...)
}

// Debug is mapped to the logger's debug level, retryablehttp logs every request there
func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.log.Debug(msg, fields(keysAndValues)...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.log.Warn(msg, fields(keysAndValues)...)
}

func fields(kv []any) []zap.Field {
	out := make([]zap.Field, 0, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		out = append(out, zap.Any(key, kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, zap.Any("extra", kv[len(kv)-1]))
	}
	return out
}

// retryLogHook logs every retry with the cache that issued the request
func retryLogHook(log logger.Logger) retryablehttp.RequestLogHook {
	return func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt == 0 {
			return
		}
		fs := []zap.Field{
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Int("retry", attempt),
		}
		if name := cache.CacheName(req.Context()); name != "" {
			fs = append(fs, zap.String("cache", name))
		}
		log.Warn("retrying http request", fs...)
	}
}
