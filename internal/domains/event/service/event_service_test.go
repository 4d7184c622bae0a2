package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/internal/infrastructure/realtime"
	"photobooth-backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEvent_FixesExpiryAndIssuesTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateEvent(ctx, model.CreateEventRequest{Name: "  Birthday  ", OwnerEmail: "Host@Example.com"})
	require.NoError(t, err)

	e := created.Event
	assert.Equal(t, "Birthday", e.Name)
	assert.Equal(t, "host@example.com", e.OwnerEmail)
	assert.Equal(t, env.clock.Now(), e.CreatedAt)
	assert.Equal(t, e.CreatedAt.Add(testRetention), e.ExpiresAt)
	assert.True(t, e.UploadsOpen)

	assert.Len(t, e.GuestCode, 16)
	assert.Equal(t, strings.ToLower(e.GuestCode), e.GuestCode)
	assert.Len(t, created.OwnerToken, 43)
	assert.NotContains(t, string(e.OwnerSecretHash), created.OwnerToken, "only the digest is stored")
	assert.Equal(t, hashOwnerToken(created.OwnerToken), e.OwnerSecretHash)

	byCode, err := env.svc.ResolvePublic(ctx, e.GuestCode)
	require.NoError(t, err)
	assert.Equal(t, e.ID, byCode.ID)

	byToken, err := env.svc.ResolveOwner(ctx, created.OwnerToken)
	require.NoError(t, err)
	assert.Equal(t, e.ID, byToken.ID)
	assert.Equal(t, byCode.ExpiresAt, byToken.ExpiresAt, "expiry never mutated")
}

func TestCreateEvent_TokensAreUnique(t *testing.T) {
	env := newTestEnv(t)

	a := env.createEvent(t, "A")
	b := env.createEvent(t, "B")

	assert.NotEqual(t, a.Event.GuestCode, b.Event.GuestCode)
	assert.NotEqual(t, a.OwnerToken, b.OwnerToken)
}

func TestCreateEvent_RejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateEvent(context.Background(), model.CreateEventRequest{Name: ""})
	assert.ErrorIs(t, err, model.ErrInvalidEvent)

	_, err = env.svc.CreateEvent(context.Background(), model.CreateEventRequest{Name: "ok", OwnerEmail: "nope"})
	assert.ErrorIs(t, err, model.ErrInvalidEvent)
}

func TestCreateEvent_RetriesOnIdentifierCollision(t *testing.T) {
	perEvent := guestCodeBytes + ownerTokenBytes
	random := io.MultiReader(
		bytes.NewReader(bytes.Repeat([]byte{0xAA}, perEvent)),
		bytes.NewReader(bytes.Repeat([]byte{0xAA}, perEvent)), // collision
		bytes.NewReader(bytes.Repeat([]byte{0xBB}, perEvent)),
	)
	env := newTestEnv(t, func(d *Dependencies, _ *Config) { d.Random = random })

	first := env.createEvent(t, "first")
	second := env.createEvent(t, "second")

	assert.NotEqual(t, first.Event.GuestCode, second.Event.GuestCode)
	assert.NotEqual(t, first.OwnerToken, second.OwnerToken)
}

func TestCreateEvent_GivesUpAfterRepeatedCollisions(t *testing.T) {
	random := bytes.NewReader(bytes.Repeat([]byte{0x01}, (guestCodeBytes+ownerTokenBytes)*(maxCreateAttempts+1)))
	env := newTestEnv(t, func(d *Dependencies, _ *Config) { d.Random = random })

	env.createEvent(t, "first")

	_, err := env.svc.CreateEvent(context.Background(), model.CreateEventRequest{Name: "second"})
	assert.Error(t, err)
}

func TestResolveOwner_RejectsWrongTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createEvent(t, "Party")

	other := newTestEnv(t).createEvent(t, "Elsewhere")

	tests := map[string]string{
		"empty":                 "",
		"too short":             "abc",
		"not base64url":         strings.Repeat("!", 43),
		"well formed, unknown":  other.OwnerToken,
		"guest code as a token": "aaaaaaaaaaaaaaaa",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := env.svc.ResolveOwner(ctx, token)
			assert.ErrorIs(t, err, model.ErrUnauthorized)
		})
	}
}

func TestResolvePublic_UnknownCode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ResolvePublic(context.Background(), "aaaaaaaaaaaaaaaa")
	assert.ErrorIs(t, err, model.ErrEventNotFound)

	_, err = env.svc.ResolvePublic(context.Background(), "../../etc")
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestCloseUploads_IdempotentAndOneWay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.createEvent(t, "Party")

	event, err := env.svc.CloseUploads(ctx, created.OwnerToken)
	require.NoError(t, err)
	assert.False(t, event.UploadsOpen)

	event, err = env.svc.CloseUploads(ctx, created.OwnerToken)
	require.NoError(t, err, "closing twice succeeds")
	assert.False(t, event.UploadsOpen)

	assert.Equal(t, 1, env.notifier.count(realtime.MsgUploadsClosed), "only the first transition is published")

	_, err = env.svc.CloseUploads(ctx, strings.Repeat("A", 43))
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_ = env.store.WithinTx(ctx, func(q database.Querier) error {
		stored, err := env.store.Events().FindByID(ctx, q, created.Event.ID, database.NoLock)
		require.NoError(t, err)
		assert.False(t, stored.UploadsOpen)
		return nil
	})
}

func TestGallery_ExpiredButUnsweptEvent(t *testing.T) {
	env := newTestEnv(t)
	created := env.createEvent(t, "Party")
	env.upload(t, created.Event.GuestCode)

	env.clock.Set(created.Event.ExpiresAt)

	_, err := env.svc.Gallery(context.Background(), created.Event.GuestCode)
	assert.ErrorIs(t, err, model.ErrExpired)

	_, err = env.svc.Dashboard(context.Background(), created.OwnerToken)
	assert.ErrorIs(t, err, model.ErrExpired)
}
