package crud

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func regionDescriptor() *Descriptor {
	return &Descriptor{
		Collection: "regions",
		Entity:     "region",
		Fields: []Field{
			{Name: "name", Kind: String, Rules: "required,min=2,max=120", Search: true},
			{Name: "description", Kind: String, Rules: "omitempty,max=500", Search: true},
		},
		Unique: []string{"name"},
	}
}

func departmentDescriptor() *Descriptor {
	return &Descriptor{
		Collection: "departments",
		Entity:     "department",
		Fields: []Field{
			{Name: "name", Kind: String, Rules: "required,min=2", Search: true},
		},
		References: []Reference{
			{Name: "region", Target: "regions", Fields: []string{"name"}, Required: true, Missing: "Region does not exist"},
		},
		Unique: []string{"name"},
	}
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newTestRepository(db *sql.DB, desc *Descriptor, opts ...Option) *Repository {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewRepository(db, desc, opts...)
}

// regionRow returns the columns of a regions row in select order.
func regionRow(id, name string) []driver.Value {
	return []driver.Value{id, name, nil, fixedNow, fixedNow, "admin"}
}

func regionRows(rows ...[]driver.Value) *sqlmock.Rows {
	r := sqlmock.NewRows(regionDescriptor().selectColumns())
	for _, row := range rows {
		r.AddRow(row...)
	}
	return r
}

func departmentRows(rows ...[]driver.Value) *sqlmock.Rows {
	r := sqlmock.NewRows(departmentDescriptor().selectColumns())
	for _, row := range rows {
		r.AddRow(row...)
	}
	return r
}

type recordingObserver struct {
	states []SyncState
}

func (o *recordingObserver) ObserveSync(_ string, state SyncState) {
	o.states = append(o.states, state)
}
