package shortener_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdko-org/shortlink/internal/cache"
	"github.com/sdko-org/shortlink/internal/models"
	"github.com/sdko-org/shortlink/internal/shortener"
	"github.com/sdko-org/shortlink/internal/testutil"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newService(store shortener.Store, kv cache.KV) *shortener.Service {
	logger := quietLogger()
	links := cache.NewLinks(logger, kv, time.Hour)
	alloc := shortener.NewAllocator(store, 6, 5)
	return shortener.NewService(logger, store, links, alloc)
}

func TestService_CreateValidatesDestination(t *testing.T) {
	svc := newService(testutil.NewMemStore(), testutil.NewFakeKV())

	for _, raw := range []string{"", "not a url", "example.com/page", "/relative/path", "https://"} {
		_, err := svc.Create(context.Background(), shortener.CreateInput{
			OriginalURL: raw,
			OwnerID:     "owner-1",
		})
		assert.ErrorIs(t, err, shortener.ErrInvalidURL, "destination %q", raw)
	}
}

func TestService_CreateGeneratesCodeAndCaches(t *testing.T) {
	store := testutil.NewMemStore()
	kv := testutil.NewFakeKV()
	svc := newService(store, kv)

	link, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)
	assert.Len(t, link.ShortCode, 6)
	assert.Equal(t, models.StatusActive, link.Status)
	assert.NotEmpty(t, link.ID)

	// Write-through snapshot under url:{code}.
	assert.True(t, kv.Has("url:"+link.ShortCode))
	assert.Contains(t, kv.Value("url:"+link.ShortCode), `"original_url":"https://example.com/page"`)
	assert.Contains(t, kv.Value("url:"+link.ShortCode), `"status":"active"`)
}

func TestService_CustomCodeConflict(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newService(store, testutil.NewFakeKV())

	first, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/first",
		CustomCode:  "promo1",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/second",
		CustomCode:  "promo1",
		OwnerID:     "owner-2",
	})
	assert.ErrorIs(t, err, shortener.ErrCodeTaken)

	// The first record is untouched.
	kept := store.Link(first.ID)
	require.NotNil(t, kept)
	assert.Equal(t, "https://example.com/first", kept.OriginalURL)
	assert.Equal(t, 1, store.Count())
}

// racingStore fails the first insert with a duplicate-key error, simulating a
// concurrent allocator winning the same candidate code.
type racingStore struct {
	*testutil.MemStore
	mu        sync.Mutex
	failsLeft int
}

func (r *racingStore) Create(ctx context.Context, link *models.ShortLink) error {
	r.mu.Lock()
	if r.failsLeft > 0 {
		r.failsLeft--
		r.mu.Unlock()
		return shortener.ErrDuplicateCode
	}
	r.mu.Unlock()
	return r.MemStore.Create(ctx, link)
}

func TestService_RetriesLostCodeRace(t *testing.T) {
	store := &racingStore{MemStore: testutil.NewMemStore(), failsLeft: 2}
	svc := newService(store, testutil.NewFakeKV())

	link, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)
	assert.Len(t, link.ShortCode, 6)
	assert.Equal(t, 1, store.Count())
}

func TestService_CustomCodeRaceIsConflict(t *testing.T) {
	store := &racingStore{MemStore: testutil.NewMemStore(), failsLeft: 1}
	svc := newService(store, testutil.NewFakeKV())

	_, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		CustomCode:  "promo1",
		OwnerID:     "owner-1",
	})
	assert.ErrorIs(t, err, shortener.ErrCodeTaken)
}

func TestService_ConcurrentCreatesYieldDistinctCodes(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newService(store, testutil.NewFakeKV())

	const n = 50
	var wg sync.WaitGroup
	codes := make(chan string, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			link, err := svc.Create(context.Background(), shortener.CreateInput{
				OriginalURL: "https://example.com/page",
				OwnerID:     "owner-1",
			})
			if assert.NoError(t, err) {
				codes <- link.ShortCode
			}
		}()
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]bool)
	for code := range codes {
		assert.False(t, seen[code], "duplicate code %q", code)
		seen[code] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, store.Count())
}

func TestService_ResolveServesFromCache(t *testing.T) {
	store := testutil.NewMemStore()
	kv := testutil.NewFakeKV()
	svc := newService(store, kv)

	link, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)

	// Remove the durable row; the snapshot alone must still serve the
	// redirect until its TTL or an eviction.
	require.NoError(t, store.Delete(context.Background(), link))

	resolved, err := svc.Resolve(context.Background(), link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", resolved.OriginalURL)
	assert.Equal(t, link.ID, resolved.ID)
}

func TestService_ResolveMissRepopulatesCache(t *testing.T) {
	store := testutil.NewMemStore()
	kv := testutil.NewFakeKV()
	svc := newService(store, kv)

	link, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)

	require.NoError(t, kv.Del(context.Background(), "url:"+link.ShortCode))

	resolved, err := svc.Resolve(context.Background(), link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", resolved.OriginalURL)
	assert.True(t, kv.Has("url:"+link.ShortCode), "durable hit must repopulate the cache")
}

func TestService_ResolveIsIdempotent(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newService(store, testutil.NewFakeKV())

	link, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		resolved, err := svc.Resolve(context.Background(), link.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/page", resolved.OriginalURL)
	}
	assert.Equal(t, "https://example.com/page", store.Link(link.ID).OriginalURL)
}

func TestService_ResolveUnknownCode(t *testing.T) {
	svc := newService(testutil.NewMemStore(), testutil.NewFakeKV())

	_, err := svc.Resolve(context.Background(), "nosuch")
	assert.ErrorIs(t, err, shortener.ErrNotFound)
}

func TestService_StaleInactiveSnapshotEvicted(t *testing.T) {
	store := testutil.NewMemStore()
	kv := testutil.NewFakeKV()
	svc := newService(store, kv)

	link, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)

	inactive := models.StatusInactive
	_, err = svc.Update(context.Background(), link.ID, "owner-1", shortener.UpdateInput{Status: &inactive})
	require.NoError(t, err)

	// The refreshed snapshot is inactive; the next lookup must 404 and
	// evict it.
	_, err = svc.Resolve(context.Background(), link.ShortCode)
	assert.ErrorIs(t, err, shortener.ErrNotFound)
	assert.False(t, kv.Has("url:"+link.ShortCode))

	// And the durable path agrees.
	_, err = svc.Resolve(context.Background(), link.ShortCode)
	assert.ErrorIs(t, err, shortener.ErrNotFound)
}

func TestService_ExpiryBoundary(t *testing.T) {
	t.Run("cache path", func(t *testing.T) {
		store := testutil.NewMemStore()
		kv := testutil.NewFakeKV()
		svc := newService(store, kv)

		now := time.Now()
		link, err := svc.Create(context.Background(), shortener.CreateInput{
			OriginalURL: "https://example.com/page",
			ExpiresAt:   &now,
			OwnerID:     "owner-1",
		})
		require.NoError(t, err)

		_, err = svc.Resolve(context.Background(), link.ShortCode)
		assert.ErrorIs(t, err, shortener.ErrNotFound)
		assert.False(t, kv.Has("url:"+link.ShortCode), "stale snapshot must be evicted")
	})

	t.Run("durable path", func(t *testing.T) {
		store := testutil.NewMemStore()
		kv := testutil.NewFakeKV()
		svc := newService(store, kv)

		past := time.Now().Add(-time.Minute)
		link, err := svc.Create(context.Background(), shortener.CreateInput{
			OriginalURL: "https://example.com/page",
			ExpiresAt:   &past,
			OwnerID:     "owner-1",
		})
		require.NoError(t, err)
		require.NoError(t, kv.Del(context.Background(), "url:"+link.ShortCode))

		// The row exists and is ACTIVE, but its expiry has passed.
		_, err = svc.Resolve(context.Background(), link.ShortCode)
		assert.ErrorIs(t, err, shortener.ErrNotFound)
		assert.False(t, kv.Has("url:"+link.ShortCode), "expired rows must not refresh the cache")
	})
}

func TestService_CacheFailureFallsThrough(t *testing.T) {
	store := testutil.NewMemStore()
	kv := testutil.NewFakeKV()
	svc := newService(store, kv)

	link, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)

	kv.Err = context.DeadlineExceeded

	resolved, err := svc.Resolve(context.Background(), link.ShortCode)
	require.NoError(t, err, "cache outage must degrade to a durable read")
	assert.Equal(t, "https://example.com/page", resolved.OriginalURL)
}

func TestService_UpdatePartial(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newService(store, testutil.NewFakeKV())

	link, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		Title:       "before",
		Description: "desc",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)

	title := "after"
	updated, err := svc.Update(context.Background(), link.ID, "owner-1", shortener.UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, "desc", updated.Description)
	assert.Equal(t, models.StatusActive, updated.Status)

	bad := "paused"
	_, err = svc.Update(context.Background(), link.ID, "owner-1", shortener.UpdateInput{Status: &bad})
	assert.ErrorIs(t, err, shortener.ErrInvalidStatus)
}

// clickingStore lands an atomic counter bump right after every read,
// simulating a click arriving between an update's read and its save.
type clickingStore struct {
	*testutil.MemStore
}

func (c *clickingStore) FindByID(ctx context.Context, id, ownerID string) (*models.ShortLink, error) {
	link, err := c.MemStore.FindByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if err := c.MemStore.IncrementClickCount(ctx, id); err != nil {
		return nil, err
	}
	return link, nil
}

func TestService_UpdateKeepsConcurrentClicks(t *testing.T) {
	store := &clickingStore{MemStore: testutil.NewMemStore()}
	svc := newService(store, testutil.NewFakeKV())

	link, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.IncrementClickCount(context.Background(), link.ID))
	}

	// The read returns click_count 5, then the sixth click lands before the
	// save. The save writes metadata only, so the click survives.
	title := "renamed"
	_, err = svc.Update(context.Background(), link.ID, "owner-1", shortener.UpdateInput{Title: &title})
	require.NoError(t, err)

	saved := store.Link(link.ID)
	assert.Equal(t, "renamed", saved.Title)
	assert.Equal(t, int64(6), saved.ClickCount, "save must not write back the stale counter")
}

func TestService_OwnerScoping(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newService(store, testutil.NewFakeKV())

	link, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), link.ID, "owner-2")
	assert.ErrorIs(t, err, shortener.ErrNotFound)

	err = svc.Delete(context.Background(), link.ID, "owner-2")
	assert.ErrorIs(t, err, shortener.ErrNotFound)
	assert.Equal(t, 1, store.Count())
}

func TestService_DeleteEvictsCache(t *testing.T) {
	store := testutil.NewMemStore()
	kv := testutil.NewFakeKV()
	svc := newService(store, kv)

	link, err := svc.Create(context.Background(), shortener.CreateInput{
		OriginalURL: "https://example.com/page",
		OwnerID:     "owner-1",
	})
	require.NoError(t, err)
	require.True(t, kv.Has("url:"+link.ShortCode))

	require.NoError(t, svc.Delete(context.Background(), link.ID, "owner-1"))
	assert.False(t, kv.Has("url:"+link.ShortCode))
	assert.Equal(t, 0, store.Count())

	_, err = svc.Resolve(context.Background(), link.ShortCode)
	assert.ErrorIs(t, err, shortener.ErrNotFound)
}
