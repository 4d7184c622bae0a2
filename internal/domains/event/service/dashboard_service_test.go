package service

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/internal/infrastructure/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard_SummarizesPhotos(t *testing.T) {
	env := newTestEnv(t)
	created := env.createEvent(t, "Party")
	a := env.upload(t, created.Event.GuestCode)
	b := env.upload(t, created.Event.GuestCode)

	dash, err := env.svc.Dashboard(context.Background(), created.OwnerToken)
	require.NoError(t, err)

	assert.Equal(t, created.Event.ID, dash.Event.ID)
	assert.Equal(t, 2, dash.PhotoCount)
	assert.Equal(t, a.SizeBytes+b.SizeBytes, dash.TotalBytes)
}

func TestDeletePhoto_RemovesRowAndBlobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.createEvent(t, "Party")
	photo := env.upload(t, created.Event.GuestCode)
	keep := env.upload(t, created.Event.GuestCode)

	require.NoError(t, env.svc.DeletePhoto(ctx, created.OwnerToken, photo.ID))

	gallery, err := env.svc.Gallery(ctx, created.Event.GuestCode)
	require.NoError(t, err)
	require.Len(t, gallery.Photos, 1)
	assert.Equal(t, keep.ID, gallery.Photos[0].ID)

	assert.False(t, env.blobExists(t, photo.StorageKey))
	assert.False(t, env.blobExists(t, photo.ThumbnailKey))
	assert.True(t, env.blobExists(t, keep.StorageKey))

	_, err = env.svc.PhotoBlob(ctx, created.Event.GuestCode, photo.ID, false)
	assert.ErrorIs(t, err, model.ErrPhotoNotFound)

	err = env.svc.DeletePhoto(ctx, created.OwnerToken, photo.ID)
	assert.ErrorIs(t, err, model.ErrPhotoNotFound, "second delete finds nothing")

	assert.Equal(t, 1, env.notifier.count(realtime.MsgPhotoDeleted))
}

func TestDeletePhoto_CannotTouchAnotherEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mine := env.createEvent(t, "Mine")
	theirs := env.createEvent(t, "Theirs")
	photo := env.upload(t, theirs.Event.GuestCode)

	err := env.svc.DeletePhoto(ctx, mine.OwnerToken, photo.ID)
	assert.ErrorIs(t, err, model.ErrPhotoNotFound)

	err = env.svc.DeletePhoto(ctx, strings.Repeat("x", 43), photo.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	err = env.svc.DeletePhoto(ctx, theirs.Event.GuestCode, photo.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized, "guest code grants no owner rights")

	assert.True(t, env.blobExists(t, photo.StorageKey))
}

func TestDeletePhotos_IgnoresForeignIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mine := env.createEvent(t, "Mine")
	theirs := env.createEvent(t, "Theirs")

	a := env.upload(t, mine.Event.GuestCode)
	b := env.upload(t, mine.Event.GuestCode)
	c := env.upload(t, mine.Event.GuestCode)
	foreign := env.upload(t, theirs.Event.GuestCode)

	n, err := env.svc.DeletePhotos(ctx, mine.OwnerToken, []uuid.UUID{a.ID, b.ID, foreign.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	photos, err := env.svc.ListPhotos(ctx, mine.OwnerToken)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, c.ID, photos[0].ID)

	assert.True(t, env.blobExists(t, foreign.StorageKey))

	n, err = env.svc.DeletePhotos(ctx, mine.OwnerToken, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWriteArchive_SkipsMissingBlobs(t *testing.T) {
	env := newTestEnv(t, func(_ *Dependencies, cfg *Config) { cfg.DownloadConcurrency = 1 })
	ctx := context.Background()
	created := env.createEvent(t, "Party")

	var photos []*model.Photo
	for i := 0; i < 5; i++ {
		photos = append(photos, env.upload(t, created.Event.GuestCode))
	}
	require.NoError(t, env.blobs.BlobStore.Delete(ctx, photos[2].StorageKey))

	archive, err := env.svc.DownloadAll(ctx, created.OwnerToken, nil)
	require.NoError(t, err)
	require.Len(t, archive.Photos, 5)

	buf := new(bytes.Buffer)
	result, err := env.svc.WriteArchive(ctx, archive, buf)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Included)
	assert.Equal(t, 1, result.Skipped)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 4)
	for _, f := range zr.File {
		assert.True(t, strings.HasSuffix(f.Name, ".png"), f.Name)
		assert.NotContains(t, f.Name, photos[2].ID.String())
		assert.Equal(t, zip.Store, f.Method)
	}
}

func TestDownloadAll_SelectedPhotosOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.createEvent(t, "Party")
	a := env.upload(t, created.Event.GuestCode)
	env.upload(t, created.Event.GuestCode)

	archive, err := env.svc.DownloadAll(ctx, created.OwnerToken, []uuid.UUID{a.ID})
	require.NoError(t, err)
	require.Len(t, archive.Photos, 1)
	assert.Equal(t, a.ID, archive.Photos[0].ID)
}

func TestArchiveEntryName(t *testing.T) {
	id := uuid.MustParse("0b7e5f0a-3c59-4c3e-9d5e-7a51f0b1c2d3")
	p := &model.Photo{
		ID:         id,
		StorageKey: "events/x/photos/" + id.String() + ".jpg",
		UploadedAt: newFakeClock().Now(),
	}

	assert.Equal(t, "20260704-183000_"+id.String()+".jpg", archiveEntryName(p))
}
