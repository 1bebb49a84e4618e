package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntry(t *testing.T) {
	e := NewEntry()
	ctx := WithEntry(context.Background(), e)

	got := EntryFrom(ctx)
	assert.Same(t, e, got)

	got.SetAction("Create region")
	got.SetActor("admin")
	got.SetError("Region already exists")

	action, actor, message := e.snapshot()
	assert.Equal(t, "Create region", action)
	assert.Equal(t, "admin", actor)
	assert.Equal(t, "Region already exists", message)
}

func TestEntry_NilSafe(t *testing.T) {
	e := EntryFrom(context.Background())
	assert.Nil(t, e)

	assert.NotPanics(t, func() {
		e.SetAction("x")
		e.SetActor("y")
		e.SetError("z")
	})
	action, actor, message := e.snapshot()
	assert.Empty(t, action+actor+message)
}
