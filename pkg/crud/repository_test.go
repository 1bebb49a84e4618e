package crud

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const regionColumns = "id, name, description, created_at, updated_at, created_by"

func TestRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := newTestRepository(db, regionDescriptor())

		mock.ExpectQuery(regexp.QuoteMeta(
			"INSERT INTO regions (id, name, created_at, updated_at, created_by) VALUES ($1, $2, $3, $4, $5) RETURNING "+regionColumns)).
			WithArgs(sqlmock.AnyArg(), "Dakar", fixedNow, fixedNow, "admin").
			WillReturnRows(regionRows(regionRow("65f1a2b3c4d5e6f708192a3b", "Dakar")))

		doc, err := repo.Create(ctx, nil, Document{"name": "Dakar"}, "admin")
		require.NoError(t, err)
		assert.Equal(t, "65f1a2b3c4d5e6f708192a3b", doc.ID())
		assert.Equal(t, "Dakar", doc["name"])
		assert.Nil(t, doc["description"])
		assert.Equal(t, fixedNow, doc["createdAt"])
		assert.Equal(t, "admin", doc["createdBy"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation is rejected", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := newTestRepository(db, regionDescriptor())

		mock.ExpectQuery("INSERT INTO regions").
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := repo.Create(ctx, nil, Document{"name": "Dakar"}, "admin")
		var rejected *RejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, "Region already exists", rejected.Message)
	})

	t.Run("other failures are wrapped", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := newTestRepository(db, regionDescriptor())

		mock.ExpectQuery("INSERT INTO regions").WillReturnError(errors.New("connection reset"))

		_, err := repo.Create(ctx, nil, Document{"name": "Dakar"}, "admin")
		require.ErrorIs(t, err, ErrSomethingWentWrong)
		assert.False(t, IsRejected(err))
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestRepository_Read(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := newTestRepository(db, regionDescriptor())

		mock.ExpectQuery(regexp.QuoteMeta("SELECT " + regionColumns + " FROM regions WHERE id = $1")).
			WithArgs("65f1a2b3c4d5e6f708192a3b").
			WillReturnRows(regionRows(regionRow("65f1a2b3c4d5e6f708192a3b", "Dakar")))

		doc, err := repo.Read(ctx, "65f1a2b3c4d5e6f708192a3b")
		require.NoError(t, err)
		assert.Equal(t, "Dakar", doc["name"])
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := newTestRepository(db, regionDescriptor())

		mock.ExpectQuery("SELECT .* FROM regions WHERE id = \\$1").
			WillReturnRows(regionRows())

		_, err := repo.Read(ctx, "65f1a2b3c4d5e6f708192a3b")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := newTestRepository(db, regionDescriptor())

		mock.ExpectQuery("FROM regions WHERE id").WillReturnError(errors.New("connection refused"))

		_, err := repo.Read(ctx, "65f1a2b3c4d5e6f708192a3b")
		assert.ErrorIs(t, err, ErrSomethingWentWrong)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestRepository_ReadEmbedsReference(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := newTestRepository(db, departmentDescriptor())

	mock.ExpectQuery("SELECT id, name, region_id, region_name, created_at, updated_at, created_by FROM departments").
		WillReturnRows(departmentRows(
			[]driver.Value{"65f1a2b3c4d5e6f708192a40", "Pikine", "65f1a2b3c4d5e6f708192a3b", "Dakar", fixedNow, fixedNow, "admin"},
		))

	doc, err := repo.Read(context.Background(), "65f1a2b3c4d5e6f708192a40")
	require.NoError(t, err)
	region, ok := doc.Ref("region")
	require.True(t, ok)
	assert.Equal(t, Document{"id": "65f1a2b3c4d5e6f708192a3b", "name": "Dakar"}, region)
}

func TestRepository_Update(t *testing.T) {
	ctx := context.Background()
	id := "65f1a2b3c4d5e6f708192a3b"

	t.Run("success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := newTestRepository(db, regionDescriptor())

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE regions SET name = $1, updated_at = $2 WHERE id = $3 RETURNING "+regionColumns)).
			WithArgs("Thiès", fixedNow, id).
			WillReturnRows(regionRows(regionRow(id, "Thiès")))

		doc, err := repo.Update(ctx, nil, id, Document{"name": "Thiès"})
		require.NoError(t, err)
		assert.Equal(t, "Thiès", doc["name"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := newTestRepository(db, regionDescriptor())

		mock.ExpectQuery("UPDATE regions").WillReturnRows(regionRows())

		_, err := repo.Update(ctx, nil, id, Document{"name": "Thiès"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := newTestRepository(db, regionDescriptor())
	id := "65f1a2b3c4d5e6f708192a3b"

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM regions WHERE id = $1 RETURNING " + regionColumns)).
		WithArgs(id).
		WillReturnRows(regionRows(regionRow(id, "Dakar")))

	doc, err := repo.Delete(context.Background(), nil, id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID())
}

func TestRepository_DeleteAll(t *testing.T) {
	ctx := context.Background()
	ids := []string{"65f1a2b3c4d5e6f708192a3b", "65f1a2b3c4d5e6f708192a3c"}

	t.Run("opens and commits its own transaction", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := newTestRepository(db, regionDescriptor())

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM regions WHERE id = ANY($1)")).
			WithArgs(pq.Array(ids)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		n, err := repo.DeleteAll(ctx, nil, ids)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("aborts on failure", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := newTestRepository(db, regionDescriptor())

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM regions").WillReturnError(errors.New("lock timeout"))
		mock.ExpectRollback()

		_, err := repo.DeleteAll(ctx, nil, ids)
		require.ErrorIs(t, err, ErrSomethingWentWrong)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("joins the caller transaction", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := newTestRepository(db, regionDescriptor())

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM regions").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		tx, err := db.Begin()
		require.NoError(t, err)
		_, err = repo.DeleteAll(ctx, tx, ids)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_All(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := newTestRepository(db, regionDescriptor())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + regionColumns + " FROM regions ORDER BY created_at DESC, id DESC")).
		WillReturnRows(regionRows(
			regionRow("65f1a2b3c4d5e6f708192a3b", "Dakar"),
			regionRow("65f1a2b3c4d5e6f708192a3c", "Thiès"),
		))

	docs, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestRepository_SearchUnknownField(t *testing.T) {
	db, _ := setupMockDB(t)
	repo := newTestRepository(db, regionDescriptor())

	_, err := repo.Search(context.Background(), Where(Eq("population", 3)))
	assert.ErrorIs(t, err, ErrUnknownField)
}
