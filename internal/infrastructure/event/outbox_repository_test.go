package event

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&outboxRecord{}))
	return db
}

func newOutboxEntry(t *testing.T) *shared.OutboxEntry {
	t.Helper()
	event := newTestEvent("TestEvent")
	return shared.NewOutboxEntry(event, []byte(`{"data":"test data"}`))
}

func TestGormOutboxRepository_SaveAndFind(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	first := newOutboxEntry(t)
	second := newOutboxEntry(t)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, first, second))

	t.Run("pending oldest first", func(t *testing.T) {
		pending, err := repo.FindPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, first.ID, pending[0].ID)
		assert.Equal(t, second.ID, pending[1].ID)
	})

	t.Run("limit applies", func(t *testing.T) {
		pending, err := repo.FindPending(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("find by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.EventID, found.EventID)
		assert.Equal(t, first.Payload, found.Payload)
		assert.Equal(t, shared.OutboxStatusPending, found.Status)
	})

	t.Run("find by unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
	})

	t.Run("save nothing", func(t *testing.T) {
		assert.NoError(t, repo.Save(ctx))
	})
}

func TestGormOutboxRepository_MarkProcessing(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	entry := newOutboxEntry(t)
	require.NoError(t, repo.Save(ctx, entry))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	// a second relay gets nothing
	again, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	assert.Empty(t, again)

	none, err := repo.MarkProcessing(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormOutboxRepository_RetryAndDeadLetter(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	failed := newOutboxEntry(t)
	dead := newOutboxEntry(t)
	require.NoError(t, repo.Save(ctx, failed, dead))

	failed.MarkFailed("broker down")
	require.NoError(t, repo.Update(ctx, failed))

	dead.MaxRetries = 1
	dead.MarkFailed("poison payload")
	require.NoError(t, repo.Update(ctx, dead))

	t.Run("retryable once backoff elapsed", func(t *testing.T) {
		due, err := repo.FindRetryable(ctx, time.Now(), 10)
		require.NoError(t, err)
		assert.Empty(t, due)

		due, err = repo.FindRetryable(ctx, time.Now().Add(time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, failed.ID, due[0].ID)
		assert.Equal(t, "broker down", due[0].LastError)
	})

	t.Run("dead letters", func(t *testing.T) {
		entries, total, err := repo.FindDead(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, entries, 1)
		assert.Equal(t, dead.ID, entries[0].ID)
	})

	t.Run("counts by status", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])
		assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
		assert.Zero(t, counts[shared.OutboxStatusPending])
	})
}

func TestGormOutboxRepository_ReleaseStaleAndCleanup(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	stuck := newOutboxEntry(t)
	sent := newOutboxEntry(t)
	require.NoError(t, repo.Save(ctx, stuck, sent))

	_, err := repo.MarkProcessing(ctx, []uuid.UUID{stuck.ID})
	require.NoError(t, err)

	sent.MarkSent()
	require.NoError(t, repo.Update(ctx, sent))

	released, err := repo.ReleaseStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	found, err := repo.FindByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusFailed, found.Status)
	assert.NotNil(t, found.NextRetryAt)

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, sent.ID)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestGormOutboxRepository_MarkProcessing_SkipsLockedRows(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "outbox_events" WHERE .* FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	claimed, err := NewGormOutboxRepository(db).MarkProcessing(context.Background(), []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
