// Package users persists user accounts for authentication and installs the
// password and status rules of the users collection.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/civicbase/pkg/auth"
)

const accountColumns = "id, email, user_name, first_name, last_name, password, status, attempts, blocked_at, " +
	"profile_id, profile_name, profile_description"

// Store implements auth.AccountStore on the users table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ auth.AccountStore = (*Store)(nil)

// FindByLogin matches login against email and user name. When login is one
// account's email and another's user name, the email match wins.
func (s *Store) FindByLogin(ctx context.Context, login string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM users WHERE email = $1 OR user_name = $1 ORDER BY (email = $1) DESC LIMIT 1", login)
	return scanAccount(row)
}

// FindByID returns the account with the given id.
func (s *Store) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM users WHERE id = $1", id)
	return scanAccount(row)
}

// RegisterFailure increments the failed attempt counter in one statement.
// An ACTIVE account whose counter reaches maxAttempts becomes BLOCKED.
func (s *Store) RegisterFailure(ctx context.Context, id string, maxAttempts int) (int, string, error) {
	const query = `UPDATE users SET
	attempts = attempts + 1,
	status = CASE WHEN status = 'ACTIVE' AND attempts + 1 >= $2 THEN 'BLOCKED' ELSE status END,
	blocked_at = CASE WHEN status = 'ACTIVE' AND attempts + 1 >= $2 THEN $3 ELSE blocked_at END,
	updated_at = $3
WHERE id = $1
RETURNING attempts, status`

	var attempts int
	var status string
	err := s.db.QueryRowContext(ctx, query, id, maxAttempts, s.now()).Scan(&attempts, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", auth.ErrAccountNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("register failed attempt: %w", err)
	}
	return attempts, status, nil
}

// ResetAttempts clears the failed attempt counter.
func (s *Store) ResetAttempts(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET attempts = 0, updated_at = $2 WHERE id = $1", id, s.now())
	if err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

// SetPassword stores a new password hash.
func (s *Store) SetPassword(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET password = $2, updated_at = $3 WHERE id = $1", id, hash, s.now())
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

// Count returns the number of user accounts.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountByStatus returns the number of accounts per status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM users GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count users by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan user status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanAccount(row *sql.Row) (*auth.Account, error) {
	var (
		a                      auth.Account
		firstName, lastName    sql.NullString
		profileID, profileName sql.NullString
		profileDescription     sql.NullString
		blockedAt              sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Email, &a.UserName, &firstName, &lastName, &a.PasswordHash, &a.Status,
		&a.Attempts, &blockedAt, &profileID, &profileName, &profileDescription)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.FirstName = firstName.String
	a.LastName = lastName.String
	a.Profile = auth.ProfileRef{
		ID:          profileID.String,
		Name:        profileName.String,
		Description: profileDescription.String,
	}
	if blockedAt.Valid {
		t := blockedAt.Time
		a.BlockedAt = &t
	}
	return &a, nil
}
