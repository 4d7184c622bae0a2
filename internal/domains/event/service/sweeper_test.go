package service

import (
	"context"
	"testing"
	"time"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/internal/infrastructure/realtime"
	"photobooth-backend/internal/infrastructure/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpired_RemovesEventPhotosAndBlobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.createEvent(t, "Party")
	photos := []*model.Photo{env.upload(t, created.Event.GuestCode), env.upload(t, created.Event.GuestCode)}
	sibling := env.createEvent(t, "Sibling")

	env.clock.Set(created.Event.ExpiresAt)
	alive := env.createEvent(t, "Still running")

	result, err := env.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Swept, "both events created at the start have expired")
	assert.Equal(t, 2, result.PhotosDeleted)
	assert.Zero(t, result.Failed)

	_, err = env.svc.ResolvePublic(ctx, created.Event.GuestCode)
	assert.ErrorIs(t, err, model.ErrEventNotFound)
	_, err = env.svc.ResolveOwner(ctx, created.OwnerToken)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = env.svc.ResolvePublic(ctx, sibling.Event.GuestCode)
	assert.ErrorIs(t, err, model.ErrEventNotFound)

	for _, p := range photos {
		assert.False(t, env.blobExists(t, p.StorageKey))
		assert.False(t, env.blobExists(t, p.ThumbnailKey))
	}

	_, err = env.svc.ResolvePublic(ctx, alive.Event.GuestCode)
	assert.NoError(t, err)

	assert.Equal(t, 2, env.notifier.count(realtime.MsgEventExpired))
	assert.True(t, env.notifier.sentTo(created.Event.GuestCode, realtime.MsgEventExpired))
	assert.False(t, env.notifier.sentTo(alive.Event.GuestCode, realtime.MsgEventExpired))
}

func TestSweepExpired_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	created := env.createEvent(t, "Party")
	env.upload(t, created.Event.GuestCode)
	env.clock.Set(created.Event.ExpiresAt.Add(time.Minute))

	first, err := env.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Swept)

	second, err := env.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SweepResult{}, *second)
}

func TestSweepExpired_NeverEarly(t *testing.T) {
	env := newTestEnv(t)
	created := env.createEvent(t, "Party")
	env.clock.Set(created.Event.ExpiresAt.Add(-time.Nanosecond))

	result, err := env.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Scanned)

	gallery, err := env.svc.Gallery(context.Background(), created.Event.GuestCode)
	require.NoError(t, err)
	assert.Equal(t, created.Event.ID, gallery.Event.ID)
}

func TestSweepExpired_FailureIsolatedAndRetried(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	broken := env.createEvent(t, "Broken")
	brokenPhoto := env.upload(t, broken.Event.GuestCode)
	healthy := env.createEvent(t, "Healthy")
	env.upload(t, healthy.Event.GuestCode)

	env.blobs.set(storage.EventPrefix(broken.Event.ID), false, true, false)
	env.clock.Set(broken.Event.ExpiresAt.Add(time.Hour))

	result, err := env.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Swept)
	assert.Equal(t, 1, result.Failed)

	_, err = env.svc.ResolvePublic(ctx, healthy.Event.GuestCode)
	assert.ErrorIs(t, err, model.ErrEventNotFound)

	// event lỗi vẫn còn nhưng không còn truy cập được, uploads đã đóng
	stuck, err := env.svc.ResolvePublic(ctx, broken.Event.GuestCode)
	require.NoError(t, err)
	assert.False(t, stuck.UploadsOpen)
	_, err = env.svc.Gallery(ctx, broken.Event.GuestCode)
	assert.ErrorIs(t, err, model.ErrExpired)
	assert.True(t, env.blobExists(t, brokenPhoto.StorageKey))
	assert.False(t, env.notifier.sentTo(broken.Event.GuestCode, realtime.MsgEventExpired), "not announced until swept")

	env.blobs.set("", false, false, false)

	retry, err := env.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Swept)
	assert.Zero(t, retry.Failed)

	_, err = env.svc.ResolvePublic(ctx, broken.Event.GuestCode)
	assert.ErrorIs(t, err, model.ErrEventNotFound)
	assert.False(t, env.blobExists(t, brokenPhoto.StorageKey))
	assert.True(t, env.notifier.sentTo(broken.Event.GuestCode, realtime.MsgEventExpired))
}

func TestSweepExpired_RemovesOrphanedBlobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.createEvent(t, "Party")

	orphan := storage.EventPrefix(created.Event.ID) + "photos/leftover.jpg"
	require.NoError(t, env.blobs.BlobStore.Put(ctx, orphan, []byte("x"), "image/jpeg"))

	env.clock.Set(created.Event.ExpiresAt)
	result, err := env.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Swept)
	assert.False(t, env.blobExists(t, orphan))
}

func TestSweepExpired_PagesThroughBatches(t *testing.T) {
	env := newTestEnv(t, func(_ *Dependencies, cfg *Config) { cfg.SweepBatchSize = 2 })

	var last *model.CreatedEvent
	for i := 0; i < 5; i++ {
		last = env.createEvent(t, "Party")
		env.clock.Advance(time.Second)
	}
	env.clock.Set(last.Event.ExpiresAt)

	result, err := env.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Scanned)
	assert.Equal(t, 5, result.Swept)
}
