package storage

import (
	"context"
	"errors"

	"github.com/sdko-org/shortlink/internal/models"
	"github.com/sdko-org/shortlink/internal/shortener"
	"gorm.io/gorm"
)

// LinkStore is the gorm-backed implementation of shortener.Store.
type LinkStore struct {
	db *gorm.DB
}

func NewLinkStore(db *gorm.DB) *LinkStore {
	return &LinkStore{db: db}
}

func (s *LinkStore) Create(ctx context.Context, link *models.ShortLink) error {
	err := s.db.WithContext(ctx).Omit("Clicks").Create(link).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shortener.ErrDuplicateCode
	}
	return err
}

func (s *LinkStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ShortLink{}).
		Where("short_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (s *LinkStore) FindActiveByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	var link models.ShortLink
	err := s.db.WithContext(ctx).
		Where("short_code = ? AND status = ?", code, models.StatusActive).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shortener.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *LinkStore) FindByID(ctx context.Context, id, ownerID string) (*models.ShortLink, error) {
	var link models.ShortLink
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shortener.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *LinkStore) Save(ctx context.Context, link *models.ShortLink) error {
	// The counter is owned by IncrementClickCount; a full-row write here
	// would revert clicks landing between the caller's read and this save.
	return s.db.WithContext(ctx).Omit("Clicks", "ClickCount").Save(link).Error
}

func (s *LinkStore) Delete(ctx context.Context, link *models.ShortLink) error {
	// Click events go with the row via the FK's ON DELETE CASCADE.
	return s.db.WithContext(ctx).Delete(&models.ShortLink{}, "id = ?", link.ID).Error
}

func (s *LinkStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.ShortLink, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).
		Model(&models.ShortLink{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var links []models.ShortLink
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&links).Error
	return links, total, err
}

// IncrementClickCount bumps the counter in a single SQL statement so
// concurrent clicks never lose updates.
func (s *LinkStore) IncrementClickCount(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Model(&models.ShortLink{}).
		Where("id = ?", id).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1)).Error
}

func (s *LinkStore) InsertClick(ctx context.Context, click *models.ClickEvent) error {
	return s.db.WithContext(ctx).Create(click).Error
}
