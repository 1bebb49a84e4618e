package crud

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor_Where(t *testing.T) {
	desc := departmentDescriptor()

	tests := []struct {
		name     string
		cond     Condition
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "empty",
			cond:    Condition{},
			wantSQL: "",
		},
		{
			name:     "equality on reference id",
			cond:     Where(Eq("region", "65f1a2b3c4d5e6f708192a3b")),
			wantSQL:  " WHERE region_id = $1",
			wantArgs: []any{"65f1a2b3c4d5e6f708192a3b"},
		},
		{
			name:    "null equality",
			cond:    Where(Eq("region", nil)),
			wantSQL: " WHERE region_id IS NULL",
		},
		{
			name:     "exclusion keeps nulls",
			cond:     Where(Eq("name", "Pikine"), Ne("id", "65f1a2b3c4d5e6f708192a40")),
			wantSQL:  " WHERE name = $1 AND (id IS NULL OR id <> $2)",
			wantArgs: []any{"Pikine", "65f1a2b3c4d5e6f708192a40"},
		},
		{
			name:     "in list",
			cond:     Where(In("id", []string{"a", "b"})),
			wantSQL:  " WHERE id = ANY($1)",
			wantArgs: []any{pq.Array([]string{"a", "b"})},
		},
		{
			name:     "like patterns are escaped",
			cond:     Where(Predicate{Key: "name", Op: OpStartsWith, Value: "50%_off"}),
			wantSQL:  " WHERE name ILIKE $1",
			wantArgs: []any{`50\%\_off%`},
		},
		{
			name:     "not contains",
			cond:     Where(Predicate{Key: "region.name", Op: OpNotContains, Value: "dak"}),
			wantSQL:  " WHERE (region_name IS NULL OR region_name NOT ILIKE $1)",
			wantArgs: []any{"%dak%"},
		},
		{
			name:     "date equality",
			cond:     Where(Predicate{Key: "createdAt", Op: OpDateIs, Value: "2024-03-01"}),
			wantSQL:  " WHERE DATE(created_at) = $1::date",
			wantArgs: []any{"2024-03-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := desc.where(tt.cond, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestDescriptor_WhereErrors(t *testing.T) {
	desc := departmentDescriptor()

	_, _, err := desc.where(Where(Eq("population", 1)), nil)
	assert.ErrorIs(t, err, ErrUnknownField)

	_, _, err = desc.where(Where(Predicate{Key: "createdAt", Op: OpContains, Value: "x"}), nil)
	var invalid *ValidationError
	assert.ErrorAs(t, err, &invalid)

	_, _, err = desc.where(Where(Predicate{Key: "id", Op: OpIn, Value: "a"}), nil)
	assert.ErrorAs(t, err, &invalid)
}

func TestDescriptor_Column(t *testing.T) {
	desc := departmentDescriptor()

	col, kind, err := desc.Column("updatedAt")
	require.NoError(t, err)
	assert.Equal(t, "updated_at", col)
	assert.Equal(t, Time, kind)

	col, _, err = desc.Column("region.name")
	require.NoError(t, err)
	assert.Equal(t, "region_name", col)

	_, _, err = desc.Column("region.population")
	assert.ErrorIs(t, err, ErrUnknownField)
}
