// Package logger prints to a standard logger and, when a Rollbar token is
// configured, reports the same messages to Rollbar.
package logger

import (
	"log"
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
)

// Logger is the service logger. The zero value is not usable; call New.
type Logger struct {
	std     *log.Logger
	enabled bool
}

// Options configures Rollbar reporting.
type Options struct {
	Token       string
	Environment string
	CodeVersion string
}

// New returns a logger writing to std. Rollbar reporting is switched on only
// when opts carries a token.
func New(std *log.Logger, opts Options) *Logger {
	if std == nil {
		std = log.New(os.Stderr, "", log.LstdFlags)
	}
	l := &Logger{std: std, enabled: opts.Token != ""}
	rollbar.SetEnabled(l.enabled)
	if l.enabled {
		rollbar.SetToken(opts.Token)
		rollbar.SetEnvironment(opts.Environment)
		rollbar.SetCodeVersion(opts.CodeVersion)
		if host, err := os.Hostname(); err == nil {
			rollbar.SetServerHost(host)
		}
		rollbar.SetStackTracer(errors.StackTracer)
	}
	return l
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return New(log.New(nopWriter{}, "", 0), Options{})
}

// expected args: error, map[string]interface{}
func (l *Logger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *Logger) report(fn func(...interface{}), msg string, args []interface{}) {
	if !l.enabled {
		return
	}
	fn(append([]interface{}{msg}, args...)...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.report(rollbar.Info, msg, args)
	l.print(msg, args)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.Warning, msg, args)
	l.print(msg, args)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.report(rollbar.Error, msg, args)
	l.print(msg, args)
}

// Fatal reports, flushes pending Rollbar items and exits.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.Critical, msg, args)
	l.print(msg, args)
	l.Close()
	l.std.Fatal(msg)
}

// Printf keeps the log.Printf call style for plain informational lines.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.std.Printf(format, args...)
}

// Close waits for queued Rollbar items to be sent.
func (l *Logger) Close() {
	if l.enabled {
		rollbar.Close()
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
