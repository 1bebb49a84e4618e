package crud

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Querier is implemented by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SyncObserver is notified of every state a SyncUpdate call enters.
type SyncObserver interface {
	ObserveSync(collection string, state SyncState)
}

// Repository is the generic CRUD helper for one collection.
type Repository struct {
	db       *sql.DB
	desc     *Descriptor
	now      Clock
	observer SyncObserver
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the timestamp source.
func WithClock(c Clock) Option {
	return func(r *Repository) { r.now = c }
}

// WithSyncObserver registers an observer for sync state transitions.
func WithSyncObserver(o SyncObserver) Option {
	return func(r *Repository) { r.observer = o }
}

// NewRepository creates a Repository for the collection described by desc.
func NewRepository(db *sql.DB, desc *Descriptor, opts ...Option) *Repository {
	r := &Repository{
		db:   db,
		desc: desc,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Descriptor returns the collection descriptor.
func (r *Repository) Descriptor() *Descriptor {
	return r.desc
}

// DB returns the underlying connection pool.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Create inserts doc and returns the stored representation. A fresh id is
// assigned when doc carries none.
func (r *Repository) Create(ctx context.Context, q Querier, doc Document, actor string) (Document, error) {
	if q == nil {
		q = r.db
	}
	id := NormalizeID(doc.ID())
	if id == "" {
		id = NewID()
	}
	now := r.now()

	cols, vals := r.desc.writeColumns(doc)
	cols = append([]string{"id"}, cols...)
	vals = append([]any{id}, vals...)
	cols = append(cols, "created_at", "updated_at", "created_by")
	vals = append(vals, now, now, actor)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		r.desc.Collection, strings.Join(cols, ", "), strings.Join(placeholders, ", "), r.desc.Columns())

	created, err := r.desc.scan(q.QueryRowContext(ctx, query, vals...))
	if err != nil {
		return nil, r.writeError("create", err)
	}
	return created, nil
}

// Read returns the record with the given id or ErrNotFound.
func (r *Repository) Read(ctx context.Context, id string) (Document, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", r.desc.Columns(), r.desc.Collection)
	doc, err := r.desc.scan(r.db.QueryRowContext(ctx, query, NormalizeID(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, r.failure("read", err)
	}
	return doc, nil
}

// Update applies patch to the record with the given id and returns the
// updated representation.
func (r *Repository) Update(ctx context.Context, q Querier, id string, patch Document) (Document, error) {
	if q == nil {
		q = r.db
	}
	cols, vals := r.desc.writeColumns(patch)
	cols = append(cols, "updated_at")
	vals = append(vals, r.now())

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	vals = append(vals, NormalizeID(id))
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		r.desc.Collection, strings.Join(sets, ", "), len(vals), r.desc.Columns())

	doc, err := r.desc.scan(q.QueryRowContext(ctx, query, vals...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, r.writeError("update", err)
	}
	return doc, nil
}

// Delete removes the record with the given id and returns it.
func (r *Repository) Delete(ctx context.Context, q Querier, id string) (Document, error) {
	if q == nil {
		q = r.db
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 RETURNING %s", r.desc.Collection, r.desc.Columns())
	doc, err := r.desc.scan(q.QueryRowContext(ctx, query, NormalizeID(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, r.failure("delete", err)
	}
	return doc, nil
}

// DeleteAll removes every record whose id is listed. When tx is nil a
// transaction is opened for the delete and committed on success.
func (r *Repository) DeleteAll(ctx context.Context, tx *sql.Tx, ids []string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", r.desc.Collection)
	ids = normalizeIDs(ids)
	if tx != nil {
		return r.deleteAll(ctx, tx, query, ids)
	}

	var deleted int64
	err := r.InTx(ctx, func(tx *sql.Tx) error {
		n, err := r.deleteAll(ctx, tx, query, ids)
		deleted = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func normalizeIDs(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = NormalizeID(id)
	}
	return out
}

func (r *Repository) deleteAll(ctx context.Context, q Querier, query string, ids []string) (int64, error) {
	res, err := q.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, r.failure("delete all", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, r.failure("delete all", err)
	}
	return n, nil
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (r *Repository) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return r.failure("begin transaction for", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return r.failure("commit transaction for", err)
	}
	return nil
}

// All returns every record in the default order.
func (r *Repository) All(ctx context.Context) ([]Document, error) {
	return r.Search(ctx, Condition{})
}

// Search returns every record matching cond in the default order.
func (r *Repository) Search(ctx context.Context, cond Condition) ([]Document, error) {
	sortCol, _, err := r.desc.Column(r.defaultSort())
	if err != nil {
		return nil, err
	}
	return r.find(ctx, cond, sortCol+" DESC, id DESC", 0, 0)
}

// Count returns the number of records matching cond.
func (r *Repository) Count(ctx context.Context, cond Condition) (int64, error) {
	return r.count(ctx, r.db, cond)
}

func (r *Repository) count(ctx context.Context, q Querier, cond Condition) (int64, error) {
	if q == nil {
		q = r.db
	}
	where, args, err := r.desc.where(cond, nil)
	if err != nil {
		return 0, err
	}
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.desc.Collection, where)
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, r.failure("count", err)
	}
	return n, nil
}

// Page returns one page of records matching base refined by the filters
// of req. When the requested page lies beyond the last one (rows deleted
// since the client computed it) the last valid page is returned instead.
func (r *Repository) Page(ctx context.Context, base Condition, req PageRequest) (*Page, error) {
	req = req.normalize(r.defaultSort())

	sortCol, _, err := r.desc.Column(req.Sort)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("%s is not a sortable field", req.Sort))
	}
	cond, err := r.desc.pageCondition(base, req)
	if err != nil {
		return nil, err
	}
	order := sortCol + " ASC, id ASC"
	if req.Direction == Descending {
		order = sortCol + " DESC, id DESC"
	}

	total, err := r.Count(ctx, cond)
	if err != nil {
		return nil, err
	}
	docs, err := r.find(ctx, cond, order, req.Size, req.skip())
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 && total > 0 && req.Page > 0 {
		if last := lastPage(total, req.Size); last < req.Page {
			req.Page = last
			if docs, err = r.find(ctx, cond, order, req.Size, req.skip()); err != nil {
				return nil, err
			}
		}
	}

	return &Page{
		Body: docs,
		Pagination: Pagination{
			Page:          req.Page,
			Size:          req.Size,
			Sort:          req.Sort,
			Direction:     req.Direction,
			TotalElements: total,
		},
	}, nil
}

func (r *Repository) find(ctx context.Context, cond Condition, order string, limit, offset int) ([]Document, error) {
	where, args, err := r.desc.where(cond, nil)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", r.desc.Columns(), r.desc.Collection, where, order)
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.failure("query", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc, err := r.desc.scan(rows)
		if err != nil {
			return nil, r.failure("scan", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, r.failure("iterate", err)
	}
	return docs, nil
}

func (r *Repository) defaultSort() string {
	if r.desc.DefaultSort != "" {
		return r.desc.DefaultSort
	}
	return "createdAt"
}

// uniqueViolation is the Postgres error code for a unique constraint.
const uniqueViolation = "23505"

func (r *Repository) writeError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return Reject(fmt.Sprintf("%s already exists", capitalize(r.desc.Entity)))
	}
	return r.failure(op, err)
}

// failure marks a driver error as ErrSomethingWentWrong, keeping the cause
// in the chain for the logs.
func (r *Repository) failure(op string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrSomethingWentWrong, op, r.desc.Collection, err)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
