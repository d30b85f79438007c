package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/storefront/internal/domain/user"
)

// UsersRepo keeps records in a map. Ids start at 1 and are never reused.
type UsersRepo struct {
	mu     sync.RWMutex
	items  map[int64]user.Record
	nextID int64
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:  make(map[int64]user.Record),
		nextID: 1,
	}
}

func (r *UsersRepo) FindByID(_ context.Context, id int64) (user.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.items[id]
	if !ok {
		return user.Record{}, user.ErrNotFound
	}

	return rec, nil
}

func (r *UsersRepo) FindByEmail(_ context.Context, email string) (user.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.items {
		if rec.Email == email {
			return rec, nil
		}
	}

	return user.Record{}, user.ErrNotFound
}

func (r *UsersRepo) FindAll(_ context.Context) ([]user.Record, error) {
	r.mu.RLock()
	out := make([]user.Record, 0, len(r.items))
	for _, rec := range r.items {
		out = append(out, rec)
	}
	r.mu.RUnlock()

	// same order as the postgres store
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *UsersRepo) Save(ctx context.Context, rec user.Record) (user.Record, error) {
	if err := ctx.Err(); err != nil {
		return user.Record{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, other := range r.items {
		if id != rec.ID && other.Email == rec.Email {
			return user.Record{}, user.ErrEmailTaken
		}
	}

	if rec.ID == 0 {
		rec.ID = r.nextID
		r.nextID++
	} else if _, ok := r.items[rec.ID]; !ok {
		return user.Record{}, user.ErrNotFound
	}

	r.items[rec.ID] = rec

	return rec, nil
}

func (r *UsersRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}

	delete(r.items, id)

	return nil
}

// Ping lets the memory store stand in for the database in readiness checks.
func (r *UsersRepo) Ping(context.Context) error { return nil }
