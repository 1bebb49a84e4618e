package catalog

import (
	"testing"

	"github.com/platinummonkey/civicbase/pkg/crud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func childNames(links []crud.ChildLink) []string {
	names := make([]string, 0, len(links))
	for _, l := range links {
		names = append(names, l.Child.Collection+"."+l.Ref.Name)
	}
	return names
}

func TestDefault_Children(t *testing.T) {
	c := Default()

	tests := []struct {
		parent string
		want   []string
	}{
		{Regions, []string{"departments.region", "enterprises.region", "users.region"}},
		{Departments, []string{"municipalities.department"}},
		{Municipalities, []string{"neighborhoods.municipality"}},
		{Neighborhoods, []string{"beneficiaries.neighborhood"}},
		{Activities, []string{"beneficiaries.activity"}},
		{Enterprises, []string{"resources.enterprise", "users.enterprise"}},
		{Beneficiaries, []string{"resources.beneficiary"}},
		{Profiles, []string{"users.profile"}},
		{Resources, []string{}},
		{Logs, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.parent, func(t *testing.T) {
			assert.Equal(t, tt.want, childNames(c.Children(tt.parent)))
		})
	}
}

func TestDefault_UserProfileSnapshot(t *testing.T) {
	users := Default().MustGet(Users)
	ref, ok := users.Reference("profile")
	require.True(t, ok)
	assert.True(t, ref.Required)

	snap := ref.Snapshot(crud.Document{"id": "65f1a2b3c4d5e6f708192a3b", "name": "AGENT", "description": "Field agent", "createdBy": "admin"})
	assert.Equal(t, crud.Document{"id": "65f1a2b3c4d5e6f708192a3b", "name": "AGENT", "description": "Field agent"}, snap)
}

func TestDefault_PasswordNeverSelected(t *testing.T) {
	users := Default().MustGet(Users)
	assert.NotContains(t, users.Columns(), "password")
	_, _, err := users.Column("password")
	assert.ErrorIs(t, err, crud.ErrUnknownField)
}

func TestNew_Errors(t *testing.T) {
	region := &crud.Descriptor{Collection: Regions, Entity: "region"}

	_, err := New(region, region)
	assert.ErrorIs(t, err, ErrDuplicateCollection)

	orphan := &crud.Descriptor{
		Collection: Departments,
		Entity:     "department",
		References: []crud.Reference{{Name: "region", Target: "zones"}},
	}
	_, err = New(region, orphan)
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestCatalog_Get(t *testing.T) {
	c := Default()

	d, err := c.Get(Beneficiaries)
	require.NoError(t, err)
	assert.Equal(t, "beneficiary", d.Entity)

	_, err = c.Get("planets")
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	assert.Len(t, c.All(), 11)
}
