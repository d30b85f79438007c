package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/geocoder89/storefront/internal/domain/user"
	gocache "github.com/patrickmn/go-cache"
)

// Store matches service.RecordStore.
type Store interface {
	FindByID(ctx context.Context, id int64) (user.Record, error)
	FindByEmail(ctx context.Context, email string) (user.Record, error)
	FindAll(ctx context.Context) ([]user.Record, error)
	Save(ctx context.Context, rec user.Record) (user.Record, error)
	Delete(ctx context.Context, id int64) error
}

const listKey = "users:all"

// UsersCache is a read-through, per-process cache in front of a Store. Any
// write through it drops the affected entry and the list. Writes made by
// other replicas are seen once the TTL runs out.
//
// A read only fills the cache if no write touched its key while the store
// call was in flight, so a slow read cannot put back a value a write already
// replaced.
type UsersCache struct {
	next Store
	c    *gocache.Cache

	mu      sync.Mutex
	seq     uint64
	idGen   map[int64]uint64
	listGen uint64
}

func NewUsersCache(next Store, ttl time.Duration) *UsersCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &UsersCache{
		next:  next,
		c:     gocache.New(ttl, 2*ttl),
		idGen: make(map[int64]uint64),
	}
}

func idKey(id int64) string { return "users:id:" + strconv.FormatInt(id, 10) }

func (u *UsersCache) FindByID(ctx context.Context, id int64) (user.Record, error) {
	if v, ok := u.c.Get(idKey(id)); ok {
		return v.(user.Record), nil
	}

	u.mu.Lock()
	gen := u.idGen[id]
	u.mu.Unlock()

	rec, err := u.next.FindByID(ctx, id)
	if err != nil {
		return user.Record{}, err
	}

	u.mu.Lock()
	if u.idGen[id] == gen {
		u.c.SetDefault(idKey(id), rec)
	}
	u.mu.Unlock()

	return rec, nil
}

// FindByEmail backs uniqueness checks and is never cached.
func (u *UsersCache) FindByEmail(ctx context.Context, email string) (user.Record, error) {
	return u.next.FindByEmail(ctx, email)
}

func (u *UsersCache) FindAll(ctx context.Context) ([]user.Record, error) {
	if v, ok := u.c.Get(listKey); ok {
		cached := v.([]user.Record)
		out := make([]user.Record, len(cached))
		copy(out, cached)
		return out, nil
	}

	u.mu.Lock()
	gen := u.listGen
	u.mu.Unlock()

	recs, err := u.next.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	if u.listGen == gen {
		stored := make([]user.Record, len(recs))
		copy(stored, recs)
		u.c.SetDefault(listKey, stored)
	}
	u.mu.Unlock()

	return recs, nil
}

func (u *UsersCache) Save(ctx context.Context, rec user.Record) (user.Record, error) {
	saved, err := u.next.Save(ctx, rec)
	u.invalidate(rec.ID)
	return saved, err
}

func (u *UsersCache) Delete(ctx context.Context, id int64) error {
	err := u.next.Delete(ctx, id)
	u.invalidate(id)
	return err
}

// invalidate runs after the store call so that any read that started before
// the write sees a newer generation when it tries to fill. An id of zero only
// touches the list.
func (u *UsersCache) invalidate(id int64) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.seq++
	u.listGen = u.seq
	u.c.Delete(listKey)

	if id != 0 {
		u.idGen[id] = u.seq
		u.c.Delete(idKey(id))
	}
}
