package audit

import (
	"context"
	"fmt"

	"github.com/platinummonkey/civicbase/pkg/crud"
)

// DBLogger writes audit records into the logs collection
type DBLogger struct {
	repo *crud.Repository
}

// NewDBLogger creates a new database-based audit logger over the logs
// collection repository
func NewDBLogger(repo *crud.Repository) (*DBLogger, error) {
	if repo == nil {
		return nil, fmt.Errorf("logs repository is required")
	}
	return &DBLogger{repo: repo}, nil
}

// Log inserts the record and stores the assigned id on it
func (l *DBLogger) Log(ctx context.Context, record *Record) error {
	saved, err := l.repo.Create(ctx, nil, record.Document(), record.Actor)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	record.ID = saved.ID()
	return nil
}

// Close is a no-op; the connection pool is owned by the caller
func (l *DBLogger) Close() error {
	return nil
}
