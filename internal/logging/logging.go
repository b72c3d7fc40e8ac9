// Package logging builds the JSON logger shared by the store and the CLI.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a structured logger at the given level. A non-empty file path
// enables size-based rotation; otherwise output goes to stderr. An
// unparseable level falls back to info.
func New(level, file string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.SetOutput(output(file))

	return logger
}

func output(file string) io.Writer {
	if file == "" {
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // MB
		MaxBackups: 3,
		Compress:   true,
		LocalTime:  true,
	}
}
