package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConnectionConfig(t *testing.T) {
	config := DefaultConnectionConfig("postgres://localhost:5432/civicbase")

	assert.Equal(t, "postgres://localhost:5432/civicbase", config.URL)
	assert.Equal(t, 25, config.MaxConns)
	assert.Equal(t, 5, config.MinConns)
	assert.Equal(t, 10*time.Second, config.Timeout)
}

func TestNewConnectionManager_EmptyURL(t *testing.T) {
	_, err := NewConnectionManager(ConnectionConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestConnectionManager_HealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	cm := NewConnectionManagerFromDB(db, DefaultConnectionConfig("postgres://mock"))

	t.Run("healthy", func(t *testing.T) {
		mock.ExpectPing()
		assert.NoError(t, cm.HealthCheck(context.Background()))
	})

	t.Run("unhealthy", func(t *testing.T) {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		err := cm.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "primary unhealthy")
	})

	assert.Same(t, db, cm.Primary())
	assert.Equal(t, 25, cm.Stats().MaxOpenConnections)

	mock.ExpectClose()
	require.NoError(t, cm.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
