package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAddress(t *testing.T, buyerID uuid.UUID, city string) *trade.Address {
	t.Helper()
	addr, err := trade.NewAddress(buyerID, trade.AddressInput{Street: "3 avenue Hassan II", City: city, PostalCode: "10000"})
	require.NoError(t, err)
	return addr
}

func TestGormAddressRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormAddressRepository(db)
	ctx := context.Background()

	buyerID := uuid.New()
	addr := newAddress(t, buyerID, "Rabat")
	require.NoError(t, repo.Save(ctx, addr))

	t.Run("by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, addr.ID)
		require.NoError(t, err)
		assert.Equal(t, "Rabat", found.City)
		assert.Equal(t, trade.DefaultCountry, found.Country)
		assert.True(t, found.IsDefault)
		assert.True(t, found.BelongsTo(buyerID))
	})

	t.Run("default of buyer", func(t *testing.T) {
		found, err := repo.FindDefaultByBuyer(ctx, buyerID)
		require.NoError(t, err)
		assert.Equal(t, addr.ID, found.ID)
	})

	t.Run("save overwrites in place", func(t *testing.T) {
		require.NoError(t, addr.Overwrite(trade.AddressInput{Street: "8 rue Fès", City: "Casablanca", PostalCode: "20000"}))
		require.NoError(t, repo.Save(ctx, addr))

		found, err := repo.FindByID(ctx, addr.ID)
		require.NoError(t, err)
		assert.Equal(t, "Casablanca", found.City)

		all, err := repo.FindByBuyer(ctx, buyerID)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("unknown address", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
	})

	t.Run("buyer without default", func(t *testing.T) {
		_, err := repo.FindDefaultByBuyer(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormAddressRepository_ClearDefault(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormAddressRepository(db)
	ctx := context.Background()

	buyerID := uuid.New()
	old := newAddress(t, buyerID, "Rabat")
	old.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, old))

	other := newAddress(t, uuid.New(), "Tanger")
	require.NoError(t, repo.Save(ctx, other))

	chosen := newAddress(t, buyerID, "Marrakech")
	require.NoError(t, repo.Save(ctx, chosen))

	require.NoError(t, repo.ClearDefault(ctx, buyerID, chosen.ID))

	t.Run("only the kept address stays default", func(t *testing.T) {
		all, err := repo.FindByBuyer(ctx, buyerID)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, chosen.ID, all[0].ID)
		assert.True(t, all[0].IsDefault)
		assert.False(t, all[1].IsDefault)

		def, err := repo.FindDefaultByBuyer(ctx, buyerID)
		require.NoError(t, err)
		assert.Equal(t, chosen.ID, def.ID)
	})

	t.Run("other buyers untouched", func(t *testing.T) {
		found, err := repo.FindByID(ctx, other.ID)
		require.NoError(t, err)
		assert.True(t, found.IsDefault)
	})
}
