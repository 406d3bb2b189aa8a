package contract

import (
	"io"

	"github.com/huangsam/apprank/schema"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the structured logger shared by the pipeline and long-running modes.
func NewLogger(w io.Writer, level logrus.Level, format schema.LogFormat) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	switch format {
	case schema.JSONLog:
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// DiscardLogger returns a logger that drops every entry. Useful in tests.
func DiscardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
