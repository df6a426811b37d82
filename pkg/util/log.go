package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// LogSink is the run logger together with the file it tees into.
// Close releases the file; the logger keeps writing to the console.
type LogSink struct {
	*logrus.Logger
	file *os.File
}

// ParseLevel accepts logrus level names, including "warning".
func ParseLevel(level string) (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("%w: log level %q", ErrInvalidConfig, level)
	}
	return lvl, nil
}

// NewLogger builds a logger that writes to stderr and, when filePath is
// non-empty, to filePath as well. The file is truncated on open.
func NewLogger(level, filePath string) (*LogSink, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "01-02 15:04:05",
	})

	sink := &LogSink{Logger: logger}
	if filePath == "" {
		logger.SetOutput(os.Stderr)
		return sink, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	sink.file = f
	logger.SetOutput(io.MultiWriter(os.Stderr, f))
	return sink, nil
}

// Close closes the log file, if any.
func (s *LogSink) Close() error {
	if s.file == nil {
		return nil
	}
	s.Logger.SetOutput(os.Stderr)
	err := s.file.Close()
	s.file = nil
	return err
}

// NewNullLogger returns a logger that discards everything
func NewNullLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// WithDevice returns a logger with device context
func WithDevice(log logrus.FieldLogger, device string) *logrus.Entry {
	return log.WithField("device", device)
}

// WithPhase returns a logger with phase context
func WithPhase(log logrus.FieldLogger, phase string) *logrus.Entry {
	return log.WithField("phase", phase)
}
