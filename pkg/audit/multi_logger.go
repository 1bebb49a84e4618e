package audit

import (
	"context"
	"fmt"
)

// MultiLogger writes every record to several sinks
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a new multi-logger that writes to multiple destinations
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log writes the record to every sink. A failing sink does not stop the
// others; the first error is returned.
func (m *MultiLogger) Log(ctx context.Context, record *Record) error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Log(ctx, record); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes all loggers
func (m *MultiLogger) Close() error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close logger: %w", err)
		}
	}
	return firstErr
}
