// Package logrus adapts a logrus entry to the concierge logger interface.
package logrus

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/fentz26/concierge/internal/log"
)

type logger struct {
	*logrus.Entry
}

// NewLogrus returns a new log.Logger for a logrus implementation.
func NewLogrus(l *logrus.Entry) log.Logger {
	return logger{Entry: l}
}

func (l logger) WithValues(kv log.Kv) log.Logger {
	newLogger := l.Entry.WithFields(kv)
	return NewLogrus(newLogger)
}

// Options configure New.
type Options struct {
	Out   io.Writer
	Level log.Level
	JSON  bool
	// NoColor disables colors on the text formatter.
	NoColor bool
}

// New builds a logrus backed logger from options.
func New(opts Options) log.Logger {
	l := logrus.New()
	if opts.Out != nil {
		l.Out = opts.Out
	}
	l.SetLevel(toLogrusLevel(opts.Level))

	if opts.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: opts.NoColor,
		})
	}

	return NewLogrus(logrus.NewEntry(l))
}

func toLogrusLevel(lvl log.Level) logrus.Level {
	switch lvl {
	case log.LevelDebug:
		return logrus.DebugLevel
	case log.LevelWarn:
		return logrus.WarnLevel
	case log.LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
