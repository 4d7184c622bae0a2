package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/internal/domains/event/repository"
	"photobooth-backend/internal/infrastructure/storage"
	"photobooth-backend/pkg/database"

	"github.com/stretchr/testify/require"
)

const (
	testRetention = 30 * 24 * time.Hour
	testMaxBytes  = 10 * 1024 * 1024
)

var errInjected = errors.New("injected failure")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 7, 4, 18, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type published struct {
	EventCode string
	Type      string
	Payload   any
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []published
}

func (n *recordingNotifier) Publish(eventCode, msgType string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, published{EventCode: eventCode, Type: msgType, Payload: payload})
}

func (n *recordingNotifier) count(msgType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.messages {
		if m.Type == msgType {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) sentTo(eventCode, msgType string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.messages {
		if m.EventCode == eventCode && m.Type == msgType {
			return true
		}
	}
	return false
}

// faultyBlobs inject lỗi cho các key bắt đầu bằng failPrefix
type faultyBlobs struct {
	storage.BlobStore
	mu         sync.Mutex
	failPrefix string
	failPut    bool
	failDelete bool
	failGet    bool
	puts       []string
}

func (f *faultyBlobs) shouldFail(op, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failPrefix == "" || !strings.HasPrefix(key, f.failPrefix) {
		return false
	}
	switch op {
	case "put":
		return f.failPut
	case "get":
		return f.failGet
	default:
		return f.failDelete
	}
}

func (f *faultyBlobs) set(prefix string, put, del, get bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPrefix, f.failPut, f.failDelete, f.failGet = prefix, put, del, get
}

func (f *faultyBlobs) putKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.puts...)
}

func (f *faultyBlobs) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.shouldFail("put", key) {
		return errInjected
	}
	f.mu.Lock()
	f.puts = append(f.puts, key)
	f.mu.Unlock()
	return f.BlobStore.Put(ctx, key, data, contentType)
}

func (f *faultyBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	if f.shouldFail("get", key) {
		return nil, errInjected
	}
	return f.BlobStore.Get(ctx, key)
}

func (f *faultyBlobs) Delete(ctx context.Context, key string) error {
	if f.shouldFail("delete", key) {
		return errInjected
	}
	return f.BlobStore.Delete(ctx, key)
}

func (f *faultyBlobs) DeletePrefix(ctx context.Context, prefix string) error {
	if f.shouldFail("delete", prefix) {
		return errInjected
	}
	return f.BlobStore.DeletePrefix(ctx, prefix)
}

// failingPhotos làm Create lỗi sau khi blob đã được ghi
type failingPhotos struct {
	repository.PhotoRepository
	failCreate bool
}

func (f *failingPhotos) Create(ctx context.Context, q database.Querier, p *model.Photo) error {
	if f.failCreate {
		return errInjected
	}
	return f.PhotoRepository.Create(ctx, q, p)
}

type testEnv struct {
	svc      *EventService
	store    *repository.MemoryStore
	blobs    *faultyBlobs
	photos   *failingPhotos
	clock    *fakeClock
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, opts ...func(*Dependencies, *Config)) *testEnv {
	t.Helper()

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		store:    repository.NewMemoryStore(),
		blobs:    &faultyBlobs{BlobStore: local},
		clock:    newFakeClock(),
		notifier: &recordingNotifier{},
	}
	env.photos = &failingPhotos{PhotoRepository: env.store.Photos()}

	deps := Dependencies{
		Tx:       env.store,
		Events:   env.store.Events(),
		Photos:   env.photos,
		Blobs:    env.blobs,
		Images:   storage.NewImageProcessor(testMaxBytes, []string{"image/jpeg", "image/png", "image/jpg"}),
		Notifier: env.notifier,
		Now:      env.clock.Now,
	}
	cfg := Config{Retention: testRetention, SweepBatchSize: 100}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}

	env.svc = NewService(deps, cfg)
	return env
}

func (e *testEnv) createEvent(t *testing.T, name string) *model.CreatedEvent {
	t.Helper()
	created, err := e.svc.CreateEvent(context.Background(), model.CreateEventRequest{Name: name})
	require.NoError(t, err)
	return created
}

func (e *testEnv) upload(t *testing.T, guestCode string) *model.Photo {
	t.Helper()
	photo, err := e.svc.Upload(context.Background(), guestCode, model.UploadInput{
		Data:             testPNG(t),
		ContentType:      "image/png",
		OriginalFilename: "cake.png",
	})
	require.NoError(t, err)
	return photo
}

func (e *testEnv) blobExists(t *testing.T, key string) bool {
	t.Helper()
	_, err := e.blobs.BlobStore.Get(context.Background(), key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		img.Set(x, x%48, color.RGBA{G: 180, A: 255})
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}
