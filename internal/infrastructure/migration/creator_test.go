package migration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add orders table", "add_orders_table"},
		{"Add-Orders-Table", "add_orders_table"},
		{"ADD_ORDERS_TABLE", "add_orders_table"},
		{"add__orders__table", "add_orders_table"},
		{"Add Tier 2", "add_tier_2"},
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
	now := time.Date(2026, 10, 1, 9, 5, 0, 0, time.UTC)

	mf, err := CreateMigration(dir, "add order notes", "Free text note on orders", now)
	require.NoError(t, err)

	assert.Equal(t, "20261001090500", mf.Version)
	assert.Equal(t, filepath.Join(dir, "20261001090500_add_order_notes.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20261001090500_add_order_notes.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- add order notes\n")
	assert.Contains(t, string(up), "Free text note on orders")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, err := CreateMigration(dir, "add order notes", "", now)
		assert.Error(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "", now)
		assert.Error(t, err)
	})

	t.Run("creates directory", func(t *testing.T) {
		nested := filepath.Join(dir, "nested", "migrations")
		_, err := CreateMigration(nested, "init", "", now)
		require.NoError(t, err)

		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"20261001090100_create_delivery.up.sql",
		"20261001090100_create_delivery.down.sql",
		"20261001090000_create_catalog.up.sql",
		"20261001090000_create_catalog.down.sql",
		"20261001090200_add_tier.up.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- test"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0o755))

	migrations, err := ListMigrations(dir)
	require.NoError(t, err)

	assert.Equal(t, []Migration{
		{Base: "20261001090000_create_catalog", Version: "20261001090000", HasDown: true},
		{Base: "20261001090100_create_delivery", Version: "20261001090100", HasDown: true},
		{Base: "20261001090200_add_tier", Version: "20261001090200", HasDown: false},
	}, migrations)

	t.Run("missing directory", func(t *testing.T) {
		migrations, err := ListMigrations(filepath.Join(dir, "absent"))
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})
}

func TestRepositoryMigrations(t *testing.T) {
	migrations, err := ListMigrations(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for _, m := range migrations {
		assert.True(t, m.HasDown, "%s has no down migration", m.Base)
		assert.Len(t, m.Version, len(versionLayout), m.Base)
	}
}
