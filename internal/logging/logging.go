// Package logging builds the process logger.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a logger writing to out. An unknown level falls back to
// info; format "json" selects JSON output, anything else text.
func New(level, format string, out io.Writer) *logrus.Logger {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	log.SetOutput(out)
	return log
}

// Component returns an entry tagged with the component name.
func Component(log logrus.FieldLogger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
