// Package showlog centralizes the project's logrus.Logger, generalizing the
// teacher's per-package HaloConfig.Logger field (config/config.go) into a
// single process-wide logger every package reaches for by name, the way the
// teacher's cuelist and fixture packages call logger.WithFields.
package showlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Get returns the process-wide logger.
func Get() *logrus.Logger {
	return base
}

// Named returns an entry pre-tagged with a "component" field, the way the
// teacher's ProcessCue/ProcessFrame tag log lines with "cue_id"/"cue_name".
func Named(component string) *logrus.Entry {
	return base.WithFields(logrus.Fields{"component": component})
}

// SetLevel adjusts the process-wide log level, e.g. from a --verbose flag.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}
