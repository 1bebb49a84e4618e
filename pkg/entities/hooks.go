package entities

import (
	"context"

	"github.com/platinummonkey/civicbase/pkg/crud"
)

// Hooks customize a Controller for one collection. Every hook is optional.
type Hooks struct {
	// Prepare runs after the generic checks and before the write. body is
	// the raw request body, doc the validated document it may mutate. id is
	// empty on create.
	Prepare func(ctx context.Context, body, doc crud.Document, id string) error

	// AfterWrite runs in the write transaction with the stored record and
	// the document that produced it.
	AfterWrite func(ctx context.Context, q crud.Querier, saved, doc crud.Document) error

	// Committed runs after a create or update transaction committed.
	Committed func(ctx context.Context, saved crud.Document)

	// Decorate adds derived keys to records before they are returned.
	Decorate func(ctx context.Context, docs []crud.Document) error

	// AfterDelete runs once the records are gone.
	AfterDelete func(ctx context.Context, ids []string)
}
