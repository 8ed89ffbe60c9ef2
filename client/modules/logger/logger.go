package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Log(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(err error, format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

// logger prefixes every record with the node username
type logger struct {
	entry *logrus.Entry
}

func NewLogger(username string) Logger {
	return NewLoggerWithOutput(username, os.Stdout, logrus.InfoLevel)
}

func NewLoggerWithOutput(username string, out io.Writer, level logrus.Level) Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &logger{
		entry: l.WithField("user", username),
	}
}

func (l *logger) Log(format string, args ...interface{}) {
	l.entry.Info(fmt.Sprintf(format, args...))
}

func (l *logger) Debug(format string, args ...interface{}) {
	l.entry.Debug(fmt.Sprintf(format, args...))
}

func (l *logger) Warn(format string, args ...interface{}) {
	l.entry.Warn(fmt.Sprintf(format, args...))
}

func (l *logger) Error(err error, format string, args ...interface{}) {
	l.entry.WithError(err).Error(fmt.Sprintf(format, args...))
}

func (l *logger) WithField(key string, value interface{}) Logger {
	return &logger{
		entry: l.entry.WithField(key, value),
	}
}

// ParseLevel falls back to info on unknown levels
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
