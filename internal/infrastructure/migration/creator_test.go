package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/catalogsync/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add notification index", "add_notification_index"},
		{"Add-Notification-Index", "add_notification_index"},
		{"ADD_NOTIFICATION_INDEX", "add_notification_index"},
		{"add__variant__stock", "add_variant_stock"},
		{"Add Tokens 123", "add_tokens_123"},
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
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "add notification index", "Index notification logs by type")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)

	upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), upSuffix)
	downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), downSuffix)
	assert.Equal(t, "000001_add_notification_index", upBase)
	assert.Equal(t, upBase, downBase)

	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "Index notification logs by type")
	assert.Contains(t, string(upContent), "Write your UP migration SQL here")

	downContent, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(downContent), "Rollback")

	t.Run("numbers follow the highest existing version", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "000007_manual.up.sql"), []byte("--"), 0o644))

		next, err := CreateMigration(dir, "second", "")
		require.NoError(t, err)
		assert.Equal(t, "000008", next.Version)
	})

	t.Run("rejects names without letters or digits", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "")
		assert.Error(t, err)
	})
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"000002_add_tokens.up.sql",
		"000002_add_tokens.down.sql",
		"000001_init_schema.up.sql",
		"000001_init_schema.down.sql",
		"README.md",
		".gitkeep",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- test"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0o755))

	got, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init_schema", "000002_add_tokens"}, got)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	got, err := ListMigrations("/nonexistent/path/to/migrations")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListMigrationsFS(t *testing.T) {
	fsys := fstest.MapFS{
		"000001_a.up.sql":   {Data: []byte("--")},
		"000001_a.down.sql": {Data: []byte("--")},
	}
	got, err := ListMigrationsFS(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a"}, got)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := ListMigrationsFS(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	for i, base := range ups {
		_, err := migrations.FS.Open(base + downSuffix)
		assert.NoError(t, err, "missing down migration for %s", base)
		assert.Equal(t, i+2, nextVersion(ups[:i+1]), "versions are contiguous")
	}
}
