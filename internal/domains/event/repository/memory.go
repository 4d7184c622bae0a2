package repository

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/pkg/database"

	"github.com/google/uuid"
)

// MemoryStore là in-memory implementation của Transactor, EventRepository và
// PhotoRepository. Transactions chạy tuần tự dưới một mutex, lỗi trong fn thì
// state được restore từ snapshot. Repository methods phải được gọi bên trong
// WithinTx; Querier truyền vào bị bỏ qua.
type MemoryStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]model.Event
	photos map[uuid.UUID]model.Photo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[uuid.UUID]model.Event),
		photos: make(map[uuid.UUID]model.Photo),
	}
}

// WithinTx implements database.Transactor
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(q database.Querier) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events, photos := maps.Clone(s.events), maps.Clone(s.photos)
	defer func() {
		if p := recover(); p != nil {
			s.events, s.photos = events, photos
			panic(p)
		}
		if err != nil {
			s.events, s.photos = events, photos
		}
	}()

	return fn(nil)
}

// Events trả về EventRepository view của store
func (s *MemoryStore) Events() EventRepository { return memoryEvents{s} }

// Photos trả về PhotoRepository view của store
func (s *MemoryStore) Photos() PhotoRepository { return memoryPhotos{s} }

type memoryEvents struct{ s *MemoryStore }

func (r memoryEvents) Create(_ context.Context, _ database.Querier, e *model.Event) error {
	for _, existing := range r.s.events {
		if existing.ID == e.ID || existing.GuestCode == e.GuestCode || bytes.Equal(existing.OwnerSecretHash, e.OwnerSecretHash) {
			return ErrDuplicate
		}
	}
	r.s.events[e.ID] = *e
	return nil
}

func (r memoryEvents) find(match func(model.Event) bool) (*model.Event, error) {
	for _, e := range r.s.events {
		if match(e) {
			return &e, nil
		}
	}
	return nil, model.ErrEventNotFound
}

func (r memoryEvents) FindByGuestCode(_ context.Context, _ database.Querier, code string, _ database.RowLock) (*model.Event, error) {
	return r.find(func(e model.Event) bool { return e.GuestCode == code })
}

func (r memoryEvents) FindByOwnerHash(_ context.Context, _ database.Querier, hash []byte, _ database.RowLock) (*model.Event, error) {
	return r.find(func(e model.Event) bool { return bytes.Equal(e.OwnerSecretHash, hash) })
}

func (r memoryEvents) FindByID(_ context.Context, _ database.Querier, id uuid.UUID, _ database.RowLock) (*model.Event, error) {
	e, ok := r.s.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	return &e, nil
}

func (r memoryEvents) CloseUploads(_ context.Context, _ database.Querier, id uuid.UUID) (bool, error) {
	e, ok := r.s.events[id]
	if !ok || !e.UploadsOpen {
		return false, nil
	}
	e.UploadsOpen = false
	r.s.events[id] = e
	return true, nil
}

func (r memoryEvents) ListExpired(_ context.Context, _ database.Querier, now time.Time, limit int, exclude []uuid.UUID) ([]*model.Event, error) {
	var expired []*model.Event
	for _, e := range r.s.events {
		if e.ExpiresAt.After(now) || slices.Contains(exclude, e.ID) {
			continue
		}
		expired = append(expired, &e)
	}

	slices.SortFunc(expired, func(a, b *model.Event) int {
		if c := a.ExpiresAt.Compare(b.ExpiresAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})

	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (r memoryEvents) Delete(_ context.Context, _ database.Querier, id uuid.UUID) error {
	delete(r.s.events, id)
	// ON DELETE CASCADE
	for pid, p := range r.s.photos {
		if p.EventID == id {
			delete(r.s.photos, pid)
		}
	}
	return nil
}

type memoryPhotos struct{ s *MemoryStore }

func (r memoryPhotos) Create(_ context.Context, _ database.Querier, p *model.Photo) error {
	if _, ok := r.s.events[p.EventID]; !ok {
		return model.ErrEventNotFound
	}
	if _, ok := r.s.photos[p.ID]; ok {
		return ErrDuplicate
	}
	r.s.photos[p.ID] = *p
	return nil
}

func (r memoryPhotos) Get(_ context.Context, _ database.Querier, eventID, photoID uuid.UUID) (*model.Photo, error) {
	p, ok := r.s.photos[photoID]
	if !ok || p.EventID != eventID {
		return nil, model.ErrPhotoNotFound
	}
	return &p, nil
}

func (r memoryPhotos) filter(match func(model.Photo) bool) []*model.Photo {
	photos := make([]*model.Photo, 0)
	for _, p := range r.s.photos {
		if match(p) {
			photos = append(photos, &p)
		}
	}
	slices.SortFunc(photos, func(a, b *model.Photo) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})
	return photos
}

func (r memoryPhotos) ListByEvent(_ context.Context, _ database.Querier, eventID uuid.UUID) ([]*model.Photo, error) {
	return r.filter(func(p model.Photo) bool { return p.EventID == eventID }), nil
}

func (r memoryPhotos) ListByIDs(_ context.Context, _ database.Querier, eventID uuid.UUID, ids []uuid.UUID) ([]*model.Photo, error) {
	return r.filter(func(p model.Photo) bool {
		return p.EventID == eventID && slices.Contains(ids, p.ID)
	}), nil
}

func (r memoryPhotos) Delete(ctx context.Context, q database.Querier, eventID, photoID uuid.UUID) (*model.Photo, error) {
	p, err := r.Get(ctx, q, eventID, photoID)
	if err != nil {
		return nil, err
	}
	delete(r.s.photos, photoID)
	return p, nil
}

func (r memoryPhotos) DeleteByIDs(ctx context.Context, q database.Querier, eventID uuid.UUID, ids []uuid.UUID) ([]*model.Photo, error) {
	deleted, _ := r.ListByIDs(ctx, q, eventID, ids)
	for _, p := range deleted {
		delete(r.s.photos, p.ID)
	}
	return deleted, nil
}

func (r memoryPhotos) DeleteByEvent(_ context.Context, _ database.Querier, eventID uuid.UUID) (int, error) {
	n := 0
	for pid, p := range r.s.photos {
		if p.EventID == eventID {
			delete(r.s.photos, pid)
			n++
		}
	}
	return n, nil
}
