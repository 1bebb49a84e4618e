package audit

import (
	"context"
	"sync"

	"github.com/platinummonkey/civicbase/pkg/contextkeys"
)

// Entry collects what handlers and the authorization layer learn about a
// request while it is served. The audit middleware turns it into a Record
// once the response is written. All methods are safe on a nil Entry.
type Entry struct {
	mu      sync.Mutex
	action  string
	actor   string
	message string
}

// NewEntry returns an empty Entry
func NewEntry() *Entry {
	return &Entry{}
}

// WithEntry attaches e to ctx
func WithEntry(ctx context.Context, e *Entry) context.Context {
	return contextkeys.WithAuditEntry(ctx, e)
}

// EntryFrom returns the Entry of the request, or nil outside the audit
// middleware.
func EntryFrom(ctx context.Context) *Entry {
	e, _ := ctx.Value(contextkeys.AuditEntryKey).(*Entry)
	return e
}

// SetAction records the audit label of the request
func (e *Entry) SetAction(action string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.action = action
	e.mu.Unlock()
}

// SetActor records the user name of the caller
func (e *Entry) SetActor(actor string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.actor = actor
	e.mu.Unlock()
}

// SetError records the human readable failure message
func (e *Entry) SetError(message string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.message = message
	e.mu.Unlock()
}

func (e *Entry) snapshot() (action, actor, message string) {
	if e == nil {
		return "", "", ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.action, e.actor, e.message
}
