// Package applog provides the structured logging used across the asset
// store: a global logrus instance with stderr/stdout stream separation,
// plus Context, a small field-carrying wrapper for request- and
// component-scoped logging.
package applog

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// outputSplitter routes error-level log lines to stderr and everything
// else to stdout, so container log collectors can treat the two streams
// differently without parsing JSON first.
type outputSplitter struct{}

func (outputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte(`"level":"error"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the process-wide logrus instance. Services should log through
// Base (or a Context derived from it) rather than this value directly,
// except during bootstrap before a Config has been applied.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(outputSplitter{})
}

// Level names accepted by Config.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config controls how Configure formats and filters Logger's output.
type Config struct {
	Level      string // debug|info|warn|error, default info
	Format     string // "json" or "text", default text
	TimeFormat string // default time.RFC3339
}

// Configure applies cfg to the global Logger. Call once during process
// startup after reading the store's configuration file/flags.
func Configure(cfg Config) {
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	switch cfg.Level {
	case LevelDebug:
		Logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		Logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		Logger.SetLevel(logrus.ErrorLevel)
	default:
		Logger.SetLevel(logrus.InfoLevel)
	}
	if cfg.Format == "json" {
		Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: cfg.TimeFormat})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: cfg.TimeFormat, FullTimestamp: true})
	}
}

// Context carries a logrus.Entry plus its accumulated fields, letting
// callers build up "component", "asset_id", "request_id" etc. without
// repeating them at every call site.
type Context struct {
	entry *logrus.Entry
}

// Base is the root Context every component derives its own from.
var Base = &Context{entry: logrus.NewEntry(Logger)}

// WithField returns a child Context with key added to its field set.
func (c *Context) WithField(key string, value interface{}) *Context {
	return &Context{entry: c.entry.WithField(key, value)}
}

// WithFields returns a child Context with every key in fields added.
func (c *Context) WithFields(fields map[string]interface{}) *Context {
	return &Context{entry: c.entry.WithFields(logrus.Fields(fields))}
}

// WithError attaches err under the conventional "error" field.
func (c *Context) WithError(err error) *Context {
	return &Context{entry: c.entry.WithError(err)}
}

func (c *Context) Debug(msg string) { c.entry.Debug(msg) }
func (c *Context) Info(msg string)  { c.entry.Info(msg) }
func (c *Context) Warn(msg string)  { c.entry.Warn(msg) }
func (c *Context) Error(msg string) { c.entry.Error(msg) }
func (c *Context) Fatal(msg string) { c.entry.Fatal(msg) }

func (c *Context) Debugf(format string, args ...interface{}) { c.entry.Debugf(format, args...) }
func (c *Context) Infof(format string, args ...interface{})  { c.entry.Infof(format, args...) }
func (c *Context) Warnf(format string, args ...interface{})  { c.entry.Warnf(format, args...) }
func (c *Context) Errorf(format string, args ...interface{}) { c.entry.Errorf(format, args...) }

// Operation logs the start/end of fn under operation, including duration
// and any returned error.
func Operation(c *Context, operation string, fn func() error) error {
	start := time.Now()
	c.WithField("operation", operation).Debug("operation started")
	err := fn()
	logEntry := c.WithFields(map[string]interface{}{
		"operation":   operation,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		logEntry.WithError(err).Error("operation failed")
		return err
	}
	logEntry.Debug("operation completed")
	return nil
}

// Recover logs a panic recovered by the caller's deferred recover() call.
func Recover(c *Context, r interface{}) {
	c.WithField("panic", fmt.Sprintf("%v", r)).Error("recovered from panic")
}
