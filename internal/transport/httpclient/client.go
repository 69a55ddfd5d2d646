// Package httpclient builds retrying HTTP clients for outbound calls.
package httpclient

import (
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Options configures a retrying client.
type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
	Logger       *zap.Logger
}

// New returns a retryablehttp client that retries connection errors and 5xx/429 responses.
func New(o Options) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = o.RetryMax
	if o.RetryWaitMin > 0 {
		c.RetryWaitMin = o.RetryWaitMin
	}
	if o.RetryWaitMax > 0 {
		c.RetryWaitMax = o.RetryWaitMax
	}
	if o.Timeout > 0 {
		c.HTTPClient.Timeout = o.Timeout
	}
	// Hand the final response back to callers instead of a generic "giving up" error.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if o.Logger != nil {
		c.Logger = &leveledLogger{l: o.Logger.Sugar()}
	} else {
		c.Logger = nil
	}
	return c
}

// leveledLogger implements retryablehttp.LeveledLogger over zap.
type leveledLogger struct {
	l *zap.SugaredLogger
}

func (z *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	z.l.Errorw(msg, keysAndValues...)
}

func (z *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	z.l.Debugw(msg, keysAndValues...)
}

func (z *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.l.Debugw(msg, keysAndValues...)
}

func (z *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.l.Warnw(msg, keysAndValues...)
}
