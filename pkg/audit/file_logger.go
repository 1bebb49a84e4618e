package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileLogger writes audit records as JSON lines to a rotating file
type FileLogger struct {
	out    io.WriteCloser
	logger *logrus.Logger
	mu     sync.Mutex
}

// FileLoggerConfig configures the file logger
type FileLoggerConfig struct {
	Path       string // Log file path
	MaxSizeMB  int    // Size in megabytes before rotation (default: 100)
	MaxBackups int    // Rotated files to keep (default: 10)
	MaxAgeDays int    // Days to keep rotated files (default: 90)
	Compress   bool   // Gzip rotated files
}

// DefaultFileLoggerConfig returns default configuration
func DefaultFileLoggerConfig(path string) FileLoggerConfig {
	return FileLoggerConfig{
		Path:       path,
		MaxSizeMB:  100,
		MaxBackups: 10,
		MaxAgeDays: 90,
		Compress:   true,
	}
}

// NewFileLogger creates a new file-based audit logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("audit file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	if config.MaxSizeMB == 0 {
		config.MaxSizeMB = 100
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 10
	}

	return newFileLogger(&lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSizeMB,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAgeDays,
		Compress:   config.Compress,
	}), nil
}

func newFileLogger(out io.WriteCloser) *FileLogger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	return &FileLogger{out: out, logger: logger}
}

// Log appends the record as one JSON line
func (l *FileLogger) Log(ctx context.Context, record *Record) error {
	fields := logrus.Fields{
		"action":    record.Action,
		"actor":     record.Actor,
		"state":     record.State,
		"method":    record.Method,
		"url":       record.URL,
		"host":      record.Host,
		"userAgent": record.UserAgent,
		"ip":        record.IP,
		"code":      record.Code,
		"duration":  record.Duration,
		"version":   record.Version,
	}
	if record.Error != "" {
		fields["error_message"] = record.Error
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.WithFields(fields).Info("audit")
	return nil
}

// Close closes the underlying file
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}
