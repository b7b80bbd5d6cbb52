// Package testutil provides in-memory stand-ins for the durable store and the
// cache so unit tests run without Postgres or Redis.
package testutil

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sdko-org/shortlink/internal/cache"
	"github.com/sdko-org/shortlink/internal/models"
	"github.com/sdko-org/shortlink/internal/shortener"
)

// MemStore implements shortener.Store over maps. It mirrors the durable
// store's contract: duplicate codes are rejected with ErrDuplicateCode and
// missing rows surface ErrNotFound.
type MemStore struct {
	mu     sync.Mutex
	links  map[string]*models.ShortLink
	clicks []models.ClickEvent

	// ExistsHook, when set, overrides CodeExists. Lets allocator tests
	// script collision behavior.
	ExistsHook func(code string) (bool, error)

	// IncrementErr and InsertErr, when set, fail the click effects.
	IncrementErr error
	InsertErr    error
}

func NewMemStore() *MemStore {
	return &MemStore{links: make(map[string]*models.ShortLink)}
}

func (m *MemStore) Create(ctx context.Context, link *models.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.links {
		if existing.ShortCode == link.ShortCode {
			return shortener.ErrDuplicateCode
		}
	}
	now := time.Now()
	link.CreatedAt = now
	link.UpdatedAt = now
	cp := *link
	m.links[link.ID] = &cp
	return nil
}

func (m *MemStore) CodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	hook := m.ExistsHook
	m.mu.Unlock()
	if hook != nil {
		return hook(code)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, link := range m.links {
		if link.ShortCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) FindActiveByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, link := range m.links {
		if link.ShortCode == code && link.Status == models.StatusActive {
			cp := *link
			return &cp, nil
		}
	}
	return nil, shortener.ErrNotFound
}

func (m *MemStore) FindByID(ctx context.Context, id, ownerID string) (*models.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if link, ok := m.links[id]; ok && link.OwnerID == ownerID {
		cp := *link
		return &cp, nil
	}
	return nil, shortener.ErrNotFound
}

func (m *MemStore) Save(ctx context.Context, link *models.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	link.UpdatedAt = time.Now()
	cp := *link
	// Mirrors the durable contract: Save never writes the click counter.
	if existing, ok := m.links[link.ID]; ok {
		cp.ClickCount = existing.ClickCount
	}
	m.links[link.ID] = &cp
	return nil
}

func (m *MemStore) Delete(ctx context.Context, link *models.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, link.ID)
	kept := m.clicks[:0]
	for _, c := range m.clicks {
		if c.ShortLinkID != link.ID {
			kept = append(kept, c)
		}
	}
	m.clicks = kept
	return nil
}

func (m *MemStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.ShortLink, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.ShortLink
	for _, link := range m.links {
		if link.OwnerID == ownerID {
			all = append(all, *link)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *MemStore) IncrementClickCount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IncrementErr != nil {
		return m.IncrementErr
	}
	if link, ok := m.links[id]; ok {
		link.ClickCount++
	}
	return nil
}

func (m *MemStore) InsertClick(ctx context.Context, click *models.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.clicks = append(m.clicks, *click)
	return nil
}

// Link returns a copy of the stored row, or nil.
func (m *MemStore) Link(id string) *models.ShortLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	if link, ok := m.links[id]; ok {
		cp := *link
		return &cp
	}
	return nil
}

// Clicks returns a copy of the recorded click events.
func (m *MemStore) Clicks() []models.ClickEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ClickEvent, len(m.clicks))
	copy(out, m.clicks)
	return out
}

// Count returns the number of stored links.
func (m *MemStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

// FakeKV implements cache.KV over a map. Setting Err makes every operation
// fail, which tests use to simulate an unavailable cache.
type FakeKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration

	Err error
}

func NewFakeKV() *FakeKV {
	return &FakeKV{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (f *FakeKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	val, ok := f.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return val, nil
}

func (f *FakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *FakeKV) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for _, key := range keys {
		delete(f.data, key)
		delete(f.ttls, key)
	}
	return nil
}

func (f *FakeKV) Incr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *FakeKV) Expire(ctx context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.ttls[key] = ttl
	return nil
}

// Value returns the raw value stored at key, or "".
func (f *FakeKV) Value(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key]
}

// TTL returns the TTL recorded for key.
func (f *FakeKV) TTL(key string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ttls[key]
}

// Has reports whether key is present.
func (f *FakeKV) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}
