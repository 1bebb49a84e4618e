package crud

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SyncState is a state of a denormalization sync.
type SyncState string

const (
	StateValidating  SyncState = "validating"
	StateRejected    SyncState = "rejected"
	StateTransacting SyncState = "transacting"
	StateCommitted   SyncState = "committed"
	StateAborted     SyncState = "aborted"
)

// ParentListener receives the new representation of an updated parent
// inside the transaction that updated it. Returning an error aborts the
// whole update.
type ParentListener interface {
	OnParentUpdated(ctx context.Context, q Querier, parentID string, parent Document) error
}

// ListenerFunc adapts a function to ParentListener.
type ListenerFunc func(ctx context.Context, q Querier, parentID string, parent Document) error

// OnParentUpdated calls f.
func (f ListenerFunc) OnParentUpdated(ctx context.Context, q Querier, parentID string, parent Document) error {
	return f(ctx, q, parentID, parent)
}

// ChildLink propagates a parent snapshot into the child collection that
// embeds it through Ref.
type ChildLink struct {
	Child *Descriptor
	Ref   Reference
}

// OnParentUpdated rewrites the embedded snapshot of every child record
// referencing parentID.
func (l ChildLink) OnParentUpdated(ctx context.Context, q Querier, parentID string, parent Document) error {
	snap := l.Ref.Snapshot(parent)
	var sets []string
	var args []any
	for _, k := range l.Ref.snapshotKeys() {
		if k == "id" {
			continue
		}
		args = append(args, snap[k])
		sets = append(sets, fmt.Sprintf("%s = $%d", l.Ref.column(k), len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, parentID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		l.Child.Collection, strings.Join(sets, ", "), l.Ref.IDColumn(), len(args))
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: propagate %s to %s.%s: %w", ErrSomethingWentWrong, l.Ref.Target, l.Child.Collection, l.Ref.Name, err)
	}
	return nil
}

// SyncUpdate updates the record with the given id and hands its new
// representation to every listener, all in one transaction.
//
// The call moves validating -> rejected when validate fails (nothing is
// written), or validating -> transacting -> committed|aborted. A rejected
// call returns the validation error unchanged; an aborted call returns an
// error wrapping ErrSyncAborted, ErrNotFound when the record vanished.
func (r *Repository) SyncUpdate(ctx context.Context, id string, patch Document, validate func(ctx context.Context) error, listeners ...ParentListener) (Document, error) {
	id = NormalizeID(id)
	r.observe(StateValidating)
	if validate != nil {
		if err := validate(ctx); err != nil {
			r.observe(StateRejected)
			return nil, err
		}
	}

	r.observe(StateTransacting)
	var updated Document
	err := r.InTx(ctx, func(tx *sql.Tx) error {
		doc, err := r.Update(ctx, tx, id, patch)
		if err != nil {
			return err
		}
		for _, l := range listeners {
			if err := l.OnParentUpdated(ctx, tx, id, doc); err != nil {
				return err
			}
		}
		updated = doc
		return nil
	})
	if err != nil {
		r.observe(StateAborted)
		if errors.Is(err, ErrNotFound) || IsRejected(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSyncAborted, err)
	}

	r.observe(StateCommitted)
	return updated, nil
}

func (r *Repository) observe(state SyncState) {
	if r.observer != nil {
		r.observer.ObserveSync(r.desc.Collection, state)
	}
}
