package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/erp/mason/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add companies table", "add_companies_table"},
		{"Add-Companies-Table", "add_companies_table"},
		{"ADD__PROJECTS", "add_projects"},
		{"Add Budget 123", "add_budget_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "add project tags", "Tags for projects")
	require.NoError(t, err)

	assert.Len(t, mf.Version, 14)
	assert.Equal(t,
		strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql"),
		strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql"))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add project tags")
	assert.Contains(t, string(up), "Tags for projects")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	names, err := ListMigrations(os.DirFS(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{mf.Version + "_add_project_tags"}, names)
}

func TestCreateMigration_InvalidName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_projects.up.sql":   {Data: []byte("--")},
		"000002_add_projects.down.sql": {Data: []byte("--")},
		"000001_init.up.sql":           {Data: []byte("--")},
		"000001_init.down.sql":         {Data: []byte("--")},
		"README.md":                    {Data: []byte("docs")},
		"nested.up.sql/keep":           {Data: []byte("")},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000002_add_projects"}, names)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	names, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListMigrations_Embedded(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.True(t, strings.HasSuffix(names[0], "_create_companies"))
	assert.True(t, strings.HasSuffix(names[1], "_create_projects"))
}
