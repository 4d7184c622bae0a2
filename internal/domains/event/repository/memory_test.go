package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newEvent(code string, hash byte, expiresAt time.Time) *model.Event {
	return &model.Event{
		ID:              uuid.New(),
		GuestCode:       code,
		OwnerSecretHash: []byte{hash},
		Name:            "Event " + code,
		CreatedAt:       expiresAt.Add(-720 * time.Hour),
		ExpiresAt:       expiresAt,
		UploadsOpen:     true,
	}
}

func newPhoto(eventID uuid.UUID, uploadedAt time.Time) *model.Photo {
	return &model.Photo{
		ID:          uuid.New(),
		EventID:     eventID,
		StorageKey:  "events/" + eventID.String() + "/x.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   10,
		UploadedAt:  uploadedAt,
	}
}

func TestMemoryStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	events := store.Events()
	e := newEvent("code1", 1, baseTime)

	err := store.WithinTx(ctx, func(q database.Querier) error {
		return events.Create(ctx, q, e)
	})
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(q database.Querier) error {
		byCode, err := events.FindByGuestCode(ctx, q, "code1", database.ForShare)
		require.NoError(t, err)
		assert.Equal(t, e.ID, byCode.ID)

		byHash, err := events.FindByOwnerHash(ctx, q, []byte{1}, database.NoLock)
		require.NoError(t, err)
		assert.Equal(t, e.ID, byHash.ID)

		_, err = events.FindByGuestCode(ctx, q, "missing", database.NoLock)
		assert.ErrorIs(t, err, model.ErrEventNotFound)

		dup := newEvent("code1", 2, baseTime)
		assert.ErrorIs(t, events.Create(ctx, q, dup), ErrDuplicate)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	e := newEvent("code1", 1, baseTime)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(q database.Querier) error {
		require.NoError(t, store.Events().Create(ctx, q, e))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_ = store.WithinTx(ctx, func(q database.Querier) error {
		_, err := store.Events().FindByID(ctx, q, e.ID, database.NoLock)
		assert.ErrorIs(t, err, model.ErrEventNotFound, "insert rolled back")
		return nil
	})
}

func TestMemoryStore_CloseUploadsOneWay(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	e := newEvent("code1", 1, baseTime)

	_ = store.WithinTx(ctx, func(q database.Querier) error {
		require.NoError(t, store.Events().Create(ctx, q, e))

		changed, err := store.Events().CloseUploads(ctx, q, e.ID)
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = store.Events().CloseUploads(ctx, q, e.ID)
		require.NoError(t, err)
		assert.False(t, changed, "second close is a no-op")
		return nil
	})
}

func TestMemoryStore_ListExpiredOrderAndExclude(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	events := store.Events()

	late := newEvent("late", 1, baseTime.Add(-time.Hour))
	early := newEvent("early", 2, baseTime.Add(-2*time.Hour))
	exact := newEvent("exact", 3, baseTime)
	future := newEvent("future", 4, baseTime.Add(time.Nanosecond))

	_ = store.WithinTx(ctx, func(q database.Querier) error {
		for _, e := range []*model.Event{late, early, exact, future} {
			require.NoError(t, events.Create(ctx, q, e))
		}

		got, err := events.ListExpired(ctx, q, baseTime, 10, nil)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"early", "late", "exact"}, []string{got[0].GuestCode, got[1].GuestCode, got[2].GuestCode})

		got, _ = events.ListExpired(ctx, q, baseTime, 1, []uuid.UUID{early.ID})
		require.Len(t, got, 1)
		assert.Equal(t, "late", got[0].GuestCode)
		return nil
	})
}

func TestMemoryStore_PhotosScopedToEvent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	photos := store.Photos()

	a := newEvent("a", 1, baseTime)
	b := newEvent("b", 2, baseTime)
	older := newPhoto(a.ID, baseTime.Add(-time.Minute))
	newer := newPhoto(a.ID, baseTime)
	other := newPhoto(b.ID, baseTime)

	_ = store.WithinTx(ctx, func(q database.Querier) error {
		require.NoError(t, store.Events().Create(ctx, q, a))
		require.NoError(t, store.Events().Create(ctx, q, b))
		for _, p := range []*model.Photo{older, newer, other} {
			require.NoError(t, photos.Create(ctx, q, p))
		}

		list, err := photos.ListByEvent(ctx, q, a.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID, "most recent first")

		_, err = photos.Get(ctx, q, a.ID, other.ID)
		assert.ErrorIs(t, err, model.ErrPhotoNotFound)

		_, err = photos.Delete(ctx, q, a.ID, other.ID)
		assert.ErrorIs(t, err, model.ErrPhotoNotFound)

		deleted, err := photos.DeleteByIDs(ctx, q, a.ID, []uuid.UUID{older.ID, other.ID})
		require.NoError(t, err)
		require.Len(t, deleted, 1)
		assert.Equal(t, older.ID, deleted[0].ID)

		n, err := photos.DeleteByEvent(ctx, q, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		assert.ErrorIs(t, photos.Create(ctx, q, newPhoto(uuid.New(), baseTime)), model.ErrEventNotFound)
		return nil
	})
}

func TestMemoryStore_DeleteEventCascades(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	e := newEvent("a", 1, baseTime)
	p := newPhoto(e.ID, baseTime)

	_ = store.WithinTx(ctx, func(q database.Querier) error {
		require.NoError(t, store.Events().Create(ctx, q, e))
		require.NoError(t, store.Photos().Create(ctx, q, p))

		require.NoError(t, store.Events().Delete(ctx, q, e.ID))
		require.NoError(t, store.Events().Delete(ctx, q, e.ID), "idempotent")

		list, _ := store.Photos().ListByEvent(ctx, q, e.ID)
		assert.Empty(t, list)
		return nil
	})
}
