package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/platinummonkey/civicbase/pkg/crud"
)

// PermissionsTable holds the permission tags of every profile.
const PermissionsTable = "profile_permissions"

func columnType(c crud.StorageColumn) string {
	if c.Reference != "" && strings.HasSuffix(c.Name, "_id") {
		return "CHAR(24)"
	}
	switch c.Kind {
	case crud.Int:
		return "BIGINT"
	case crud.Float:
		return "DOUBLE PRECISION"
	case crud.Bool:
		return "BOOLEAN"
	case crud.Time:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// SchemaStatements returns the DDL creating a table per descriptor, its
// unique and reference indexes, and the profile permission join table.
// Every statement is idempotent.
func SchemaStatements(descs []*crud.Descriptor) []string {
	var stmts []string
	for _, d := range descs {
		cols := []string{"id CHAR(24) PRIMARY KEY"}
		for _, c := range d.StorageColumns() {
			cols = append(cols, c.Name+" "+columnType(c))
		}
		cols = append(cols,
			"created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
			"updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
			"created_by TEXT",
		)
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", d.Collection, strings.Join(cols, ",\n\t")))

		for _, col := range d.UniqueColumns() {
			stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s_%s_key ON %s (%s)", d.Collection, col, d.Collection, col))
		}
		for _, r := range d.References {
			col := r.IDColumn()
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)", d.Collection, col, d.Collection, col))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at DESC)", d.Collection, d.Collection))
	}

	stmts = append(stmts, `CREATE TABLE IF NOT EXISTS `+PermissionsTable+` (
	profile_id CHAR(24) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	permission TEXT NOT NULL,
	PRIMARY KEY (profile_id, permission)
)`)
	return stmts
}

// EnsureSchema creates the tables and indexes if they do not exist
func EnsureSchema(ctx context.Context, db *sql.DB, descs []*crud.Descriptor) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	for _, stmt := range SchemaStatements(descs) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}
