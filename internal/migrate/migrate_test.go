package migrate

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		version int
		ok      bool
	}{
		{"001_init.sql", 1, true},
		{"012_add_vitals.sql", 12, true},
		{"init.sql", 0, false},
		{"abc_init.sql", 0, false},
		{"000_zero.sql", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := parseVersion(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.version, v)
		})
	}
}

func TestLoad(t *testing.T) {
	files := fstest.MapFS{
		"002_ads.sql":  {Data: []byte("CREATE TABLE ads ();")},
		"001_init.sql": {Data: []byte("CREATE TABLE accounts ();")},
		"README.md":    {Data: []byte("notes")},
		"draft.sql":    {Data: []byte("SELECT 1;")},
	}

	migrations, err := Load(files)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "001_init.sql", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE ads ();", migrations[1].SQL)
}

func TestLoadDuplicateVersion(t *testing.T) {
	_, err := Load(fstest.MapFS{
		"001_init.sql":  {Data: []byte("")},
		"001_other.sql": {Data: []byte("")},
	})
	assert.Error(t, err)
}

func TestLoadRepositoryMigrations(t *testing.T) {
	migrations, err := Load(os.DirFS("../../migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE accounts")

	require.GreaterOrEqual(t, len(migrations), 2)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Contains(t, migrations[1].SQL, "CREATE UNIQUE INDEX uq_dose_records_slot")
}
