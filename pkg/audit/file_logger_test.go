package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileLogger_RequiresPath(t *testing.T) {
	_, err := NewFileLogger(FileLoggerConfig{})
	assert.Error(t, err)
}

func TestDefaultFileLoggerConfig(t *testing.T) {
	cfg := DefaultFileLoggerConfig("/tmp/audit.log")
	assert.Equal(t, "/tmp/audit.log", cfg.Path)
	assert.Equal(t, 100, cfg.MaxSizeMB)
	assert.Equal(t, 10, cfg.MaxBackups)
	assert.True(t, cfg.Compress)
}

func TestFileLogger_Log(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.log")

	logger, err := NewFileLogger(DefaultFileLoggerConfig(path))
	require.NoError(t, err)

	rec := sampleRecord()
	rec.State = StateClientError
	rec.Code = 400
	rec.Error = "Region already exists"
	require.NoError(t, logger.Log(context.Background(), rec))
	require.NoError(t, logger.Log(context.Background(), sampleRecord()))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "audit", first["msg"])
	assert.Equal(t, "Create region", first["action"])
	assert.Equal(t, "CLIENT_ERROR", first["state"])
	assert.Equal(t, float64(400), first["code"])
	assert.Equal(t, "Region already exists", first["error_message"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.NotContains(t, second, "error_message")
}
