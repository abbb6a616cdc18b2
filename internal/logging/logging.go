// Package logging builds the logrus logger shared by the store, services and
// command line.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr at level ("debug", "info", ...)
// with a text or JSON formatter. An unknown level falls back to info.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(os.Stderr, level, format)
}

func NewWithOutput(out io.Writer, level, format string) *logrus.Logger {
	logg := logrus.New()
	logg.SetOutput(out)
	if strings.EqualFold(format, "json") {
		logg.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logg.SetLevel(lvl)
	return logg
}

// LogError logs err with the module and function it came from.
func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
