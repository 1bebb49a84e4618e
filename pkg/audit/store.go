package audit

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/platinummonkey/civicbase/pkg/crud"
)

// Store reads audit records back from the logs collection
type Store struct {
	repo *crud.Repository
}

// NewStore creates a new logs store
func NewStore(repo *crud.Repository) *Store {
	return &Store{repo: repo}
}

// Search returns the records matching cond, newest first
func (s *Store) Search(ctx context.Context, cond crud.Condition) ([]*Record, error) {
	docs, err := s.repo.Search(ctx, cond)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	records := make([]*Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, RecordFromDocument(doc))
	}
	return records, nil
}

// FilterFromQuery builds a search condition from the actor, state, action,
// from and to query parameters. Dates use the 2006-01-02 layout; to is
// inclusive.
func FilterFromQuery(q url.Values) (crud.Condition, error) {
	var preds []crud.Predicate
	if actor := q.Get("actor"); actor != "" {
		preds = append(preds, crud.Eq("actor", actor))
	}
	if state := q.Get("state"); state != "" {
		switch State(state) {
		case StateSuccess, StateClientError, StateServerError:
		default:
			return crud.Condition{}, crud.NewValidationError(fmt.Sprintf("state must be one of [%s %s %s]", StateSuccess, StateClientError, StateServerError))
		}
		preds = append(preds, crud.Eq("state", state))
	}
	if action := q.Get("action"); action != "" {
		preds = append(preds, crud.Contains("action", action))
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return crud.Condition{}, crud.NewValidationError("from must be a date")
		}
		preds = append(preds, crud.Predicate{Key: "createdAt", Op: crud.OpGte, Value: t})
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return crud.Condition{}, crud.NewValidationError("to must be a date")
		}
		preds = append(preds, crud.Predicate{Key: "createdAt", Op: crud.OpLt, Value: t.AddDate(0, 0, 1)})
	}
	return crud.Where(preds...), nil
}
