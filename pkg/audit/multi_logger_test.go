package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiLogger_Log(t *testing.T) {
	first := &recordingLogger{err: errors.New("db down")}
	second := &recordingLogger{}
	multi := NewMultiLogger(first, second)

	err := multi.Log(context.Background(), sampleRecord())

	assert.EqualError(t, err, "db down")
	assert.Len(t, first.all(), 1)
	assert.Len(t, second.all(), 1, "a failing sink must not stop the others")
}

func TestMultiLogger_Empty(t *testing.T) {
	assert.NoError(t, NewMultiLogger().Log(context.Background(), sampleRecord()))
}

func TestMultiLogger_Close(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	assert.NoError(t, NewMultiLogger(a, b).Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestNoOpLogger(t *testing.T) {
	l := NewNoOpLogger()
	assert.NoError(t, l.Log(context.Background(), sampleRecord()))
	assert.NoError(t, l.Close())
}
