package crud

import (
	"context"
	"fmt"
)

// ExistValuesInKey counts the records whose key is one of values and
// rejects with msg unless exactly required records match. It is used to
// check that every id named by a request exists before acting on it.
func (r *Repository) ExistValuesInKey(ctx context.Context, key string, values []string, required int, msg string) error {
	n, err := r.Count(ctx, Where(In(key, values)))
	if err != nil {
		return err
	}
	if n != int64(required) {
		return Reject(msg)
	}
	return nil
}

// CheckRelation counts the records of this collection whose key is one of
// values. Any match rejects the operation with the message built from the
// count. Callers invoke it on the child collection before deleting a parent,
// passing the transaction of the delete as q (nil uses the pool).
func (r *Repository) CheckRelation(ctx context.Context, q Querier, key string, values []string, msg func(count int64) string) error {
	n, err := r.count(ctx, q, Where(In(key, values)))
	if err != nil {
		return err
	}
	if n > 0 {
		return Reject(msg(n))
	}
	return nil
}

// RelationMessage is the default CheckRelation message.
func RelationMessage(child *Descriptor, parent *Descriptor) func(int64) string {
	return func(n int64) string {
		return fmt.Sprintf("Cannot delete: %d %s still reference this %s", n, child.Collection, parent.Entity)
	}
}
