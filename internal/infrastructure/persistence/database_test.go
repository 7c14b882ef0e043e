package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabase_Ping(t *testing.T) {
	gormDB, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()
	db := &Database{DB: gormDB}

	mock.ExpectPing()

	assert.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	gormDB, mock, _ := setupMockDB(t)
	db := &Database{DB: gormDB}

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Stats(t *testing.T) {
	gormDB, _, mockDB := setupMockDB(t)
	defer mockDB.Close()
	db := &Database{DB: gormDB}

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{
		"products", "product_variants", "delivery_modes", "delivery_zones",
		"addresses", "orders", "order_lines", "order_tracking_events", "outbox_events",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	t.Run("idempotent", func(t *testing.T) {
		assert.NoError(t, AutoMigrate(db))
	})

	t.Run("unique order indexes", func(t *testing.T) {
		assert.True(t, db.Migrator().HasIndex("orders", "idx_orders_order_number"))
		assert.True(t, db.Migrator().HasIndex("orders", "idx_orders_idempotency_key"))
	})
}
