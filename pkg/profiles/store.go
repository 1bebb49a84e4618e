// Package profiles manages the permission tags granted by each profile.
//
// Tags live in the profile_permissions join table. They are replaced
// wholesale on every write that carries a permissions list.
package profiles

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/platinummonkey/civicbase/pkg/crud"
)

// Store reads and writes profile_permissions.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Permissions returns the tags granted by profileID.
func (s *Store) Permissions(ctx context.Context, profileID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT permission FROM profile_permissions WHERE profile_id = $1 ORDER BY permission", profileID)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	perms := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// PermissionsFor returns the tags of several profiles keyed by profile id.
func (s *Store) PermissionsFor(ctx context.Context, profileIDs []string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT profile_id, permission FROM profile_permissions WHERE profile_id = ANY($1) ORDER BY profile_id, permission",
		pq.Array(profileIDs))
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string, len(profileIDs))
	for rows.Next() {
		var id, p string
		if err := rows.Scan(&id, &p); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		out[id] = append(out[id], p)
	}
	return out, rows.Err()
}

// Replace deletes every tag of profileID and inserts perms, using q so
// the change joins the caller's transaction.
func (s *Store) Replace(ctx context.Context, q crud.Querier, profileID string, perms []string) error {
	if q == nil {
		q = s.db
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM profile_permissions WHERE profile_id = $1", profileID); err != nil {
		return fmt.Errorf("clear permissions: %w", err)
	}
	if len(perms) == 0 {
		return nil
	}
	if _, err := q.ExecContext(ctx,
		"INSERT INTO profile_permissions (profile_id, permission) SELECT $1, unnest($2::text[])",
		profileID, pq.Array(perms)); err != nil {
		return fmt.Errorf("insert permissions: %w", err)
	}
	return nil
}
