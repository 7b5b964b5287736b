package retry

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Config holds the retry policy for outbound provider calls.
type Config struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Timeout bounds a single attempt, not the whole retried call.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RetryMax:     2,
		RetryWaitMin: 1 * time.Second,
		RetryWaitMax: 5 * time.Second,
		Timeout:      60 * time.Second,
	}
}

// NewClient builds a retrying client. When retries are exhausted the last
// response is returned unchanged so callers still see the upstream status.
func NewClient(cfg Config, log *zap.Logger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		c.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		c.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		c.HTTPClient.Timeout = cfg.Timeout
	}
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if log == nil {
		log = zap.NewNop()
	}
	c.Logger = &zapLeveledLogger{log: log.Sugar()}
	return c
}

// NewStandardClient is NewClient wrapped as a plain *http.Client for SDKs that take one.
func NewStandardClient(cfg Config, log *zap.Logger) *http.Client {
	return NewClient(cfg, log).StandardClient()
}

// zapLeveledLogger adapts zap to retryablehttp.LeveledLogger.
type zapLeveledLogger struct {
	log *zap.SugaredLogger
}

func (z *zapLeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	z.log.Errorw(msg, keysAndValues...)
}

func (z *zapLeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	z.log.Debugw(msg, keysAndValues...)
}

func (z *zapLeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.log.Debugw(msg, keysAndValues...)
}

func (z *zapLeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.log.Warnw(msg, keysAndValues...)
}
