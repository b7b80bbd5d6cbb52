package shortener

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sdko-org/shortlink/internal/cache"
	"github.com/sdko-org/shortlink/internal/models"
	"github.com/sirupsen/logrus"
)

type CreateInput struct {
	OriginalURL string
	CustomCode  string
	Title       string
	Description string
	ExpiresAt   *time.Time
	OwnerID     string
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	ExpiresAt   *time.Time
}

// Resolved is what the redirect path needs from a live link: enough to issue
// the redirect and to hand the click recorder an identity.
type Resolved struct {
	ID          string
	Code        string
	OriginalURL string
}

// Service implements short link creation, resolution and owner-scoped
// mutation on top of the durable store and the snapshot cache.
type Service struct {
	store Store
	cache *cache.Links
	alloc *Allocator
	log   *logrus.Entry
	now   func() time.Time
}

func NewService(logger *logrus.Logger, store Store, links *cache.Links, alloc *Allocator) *Service {
	return &Service{
		store: store,
		cache: links,
		alloc: alloc,
		log:   logger.WithField("component", "shortener"),
		now:   time.Now,
	}
}

// Create validates the destination, allocates a code and persists the link,
// then populates the cache. An insert losing the race to a concurrent
// allocator is retried with a fresh code; for custom codes the loss is a
// conflict surfaced to the caller.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.ShortLink, error) {
	if !validDestination(in.OriginalURL) {
		return nil, ErrInvalidURL
	}

	for attempt := 0; attempt < s.alloc.maxAttempts; attempt++ {
		code, err := s.alloc.Allocate(ctx, in.CustomCode)
		if err != nil {
			return nil, err
		}

		link := &models.ShortLink{
			ID:          uuid.NewString(),
			OriginalURL: in.OriginalURL,
			ShortCode:   code,
			Title:       in.Title,
			Description: in.Description,
			Status:      models.StatusActive,
			ExpiresAt:   in.ExpiresAt,
			OwnerID:     in.OwnerID,
		}

		err = s.store.Create(ctx, link)
		if err == nil {
			s.cache.Put(ctx, code, cache.SnapshotOf(link))
			return link, nil
		}
		if errors.Is(err, ErrDuplicateCode) {
			if in.CustomCode != "" {
				return nil, ErrCodeTaken
			}
			s.log.WithField("code", code).Debug("Lost code race, retrying allocation")
			continue
		}
		return nil, err
	}
	return nil, ErrAllocationExhausted
}

// Resolve returns the live destination for a code, or ErrNotFound. Expired
// and missing links are indistinguishable to the caller. The cache is
// consulted first; a stale hit is evicted, and a fresh durable hit always
// repopulates the cache so subsequent reads stay fast.
func (s *Service) Resolve(ctx context.Context, code string) (*Resolved, error) {
	now := s.now()

	if snap, ok := s.cache.Get(ctx, code); ok {
		if snap.Status != models.StatusActive || snap.Expired(now) {
			s.cache.Evict(ctx, code)
			return nil, ErrNotFound
		}
		return &Resolved{ID: snap.ID, Code: code, OriginalURL: snap.OriginalURL}, nil
	}

	link, err := s.store.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link.Expired(now) {
		// Not redirect-eligible, so the cache is left alone.
		return nil, ErrNotFound
	}

	s.cache.Put(ctx, code, cache.SnapshotOf(link))
	return &Resolved{ID: link.ID, Code: code, OriginalURL: link.OriginalURL}, nil
}

func (s *Service) Get(ctx context.Context, id, ownerID string) (*models.ShortLink, error) {
	return s.store.FindByID(ctx, id, ownerID)
}

func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]models.ShortLink, int64, error) {
	return s.store.ListByOwner(ctx, ownerID, limit, offset)
}

// Update applies a partial, owner-scoped update and refreshes the cache
// snapshot so the redirect path converges without waiting out the TTL.
func (s *Service) Update(ctx context.Context, id, ownerID string, in UpdateInput) (*models.ShortLink, error) {
	if in.Status != nil && *in.Status != models.StatusActive && *in.Status != models.StatusInactive {
		return nil, ErrInvalidStatus
	}

	link, err := s.store.FindByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		link.Title = *in.Title
	}
	if in.Description != nil {
		link.Description = *in.Description
	}
	if in.Status != nil {
		link.Status = *in.Status
	}
	if in.ExpiresAt != nil {
		link.ExpiresAt = in.ExpiresAt
	}

	if err := s.store.Save(ctx, link); err != nil {
		return nil, err
	}

	s.cache.Put(ctx, link.ShortCode, cache.SnapshotOf(link))
	return link, nil
}

// Delete removes the durable row (click events cascade) and evicts the cache
// entry.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	link, err := s.store.FindByID(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, link); err != nil {
		return err
	}
	s.cache.Evict(ctx, link.ShortCode)
	return nil
}

func validDestination(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
