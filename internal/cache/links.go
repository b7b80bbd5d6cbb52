package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sdko-org/shortlink/internal/models"
	"github.com/sirupsen/logrus"
)

// Snapshot is the denormalized projection of a short link stored in the cache.
// It is never authoritative: status and expiry are re-checked at read time, and
// the durable row remains the source of truth.
type Snapshot struct {
	ID          string     `json:"id"`
	OriginalURL string     `json:"original_url"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at"`
	OwnerID     string     `json:"owner_id"`
}

func SnapshotOf(link *models.ShortLink) Snapshot {
	return Snapshot{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		Status:      link.Status,
		ExpiresAt:   link.ExpiresAt,
		OwnerID:     link.OwnerID,
	}
}

// Expired reports whether the snapshot's semantic expiry has passed. An expiry
// equal to now counts as expired.
func (s Snapshot) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// Links is the write-through snapshot cache keyed by short code. Cache store
// failures are logged and degraded to a miss or no-op; they never reach the
// redirect path's caller.
type Links struct {
	kv  KV
	ttl time.Duration
	log *logrus.Entry
}

func NewLinks(logger *logrus.Logger, kv KV, ttl time.Duration) *Links {
	return &Links{
		kv:  kv,
		ttl: ttl,
		log: logger.WithField("component", "link_cache"),
	}
}

func linkKey(code string) string {
	return fmt.Sprintf("url:%s", code)
}

func (c *Links) Put(ctx context.Context, code string, snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.log.WithError(err).WithField("code", code).Warn("Failed to encode snapshot")
		return
	}
	if err := c.kv.Set(ctx, linkKey(code), string(data), c.ttl); err != nil {
		c.log.WithError(err).WithField("code", code).Warn("Failed to cache snapshot")
	}
}

func (c *Links) Get(ctx context.Context, code string) (Snapshot, bool) {
	data, err := c.kv.Get(ctx, linkKey(code))
	if err != nil {
		if err != ErrMiss {
			c.log.WithError(err).WithField("code", code).Warn("Cache read failed, falling through")
		}
		return Snapshot{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		c.log.WithError(err).WithField("code", code).Warn("Corrupt snapshot, evicting")
		c.Evict(ctx, code)
		return Snapshot{}, false
	}
	return snap, true
}

func (c *Links) Evict(ctx context.Context, code string) {
	if err := c.kv.Del(ctx, linkKey(code)); err != nil {
		c.log.WithError(err).WithField("code", code).Warn("Failed to evict snapshot")
	}
}
