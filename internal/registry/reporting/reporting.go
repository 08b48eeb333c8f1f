// Package reporting forwards internal errors to sentry. Every function is a
// no-op until Init succeeds with a DSN.
package reporting

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config selects the sentry project and release for reports.
type Config struct {
	DSN         string
	Environment string
	Release     string
}

var enabled atomic.Bool

// Init configures the global sentry client. An empty DSN leaves reporting off.
func Init(cfg Config) error {
	if cfg.DSN == "" {
		enabled.Store(false)
		return nil
	}
	return initWithOptions(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		AttachStacktrace: true,
	})
}

func initWithOptions(opts sentry.ClientOptions) error {
	next := opts.BeforeSend
	opts.BeforeSend = func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
		if event.Tags == nil {
			event.Tags = make(map[string]string)
		}
		event.Tags["service"] = "redflag"
		if next != nil {
			return next(event, hint)
		}
		return event
	}
	if err := sentry.Init(opts); err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	enabled.Store(true)
	return nil
}

// Enabled reports whether Init configured a client.
func Enabled() bool {
	return enabled.Load()
}

// CaptureError reports err with the given tags.
func CaptureError(err error, tags map[string]string) {
	if !Enabled() || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

// Recover reports a panic in a background goroutine without re-panicking.
func Recover() {
	if r := recover(); r != nil && Enabled() {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetLevel(sentry.LevelFatal)
			sentry.CaptureException(fmt.Errorf("panic recovered: %v", r))
		})
	}
}

// Flush waits up to timeout for buffered reports.
func Flush(timeout time.Duration) bool {
	if !Enabled() {
		return true
	}
	return sentry.Flush(timeout)
}
