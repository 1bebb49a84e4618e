package audit

import "context"

// Logger is the interface for audit log sinks
type Logger interface {
	// Log writes one record
	Log(ctx context.Context, record *Record) error

	// Close closes the logger and flushes any buffered logs
	Close() error
}

// NewNoOpLogger returns a Logger that discards every record
func NewNoOpLogger() Logger {
	return noOpLogger{}
}

// noOpLogger is a logger that does nothing (used when no sink is configured)
type noOpLogger struct{}

func (noOpLogger) Log(ctx context.Context, record *Record) error { return nil }

func (noOpLogger) Close() error { return nil }
