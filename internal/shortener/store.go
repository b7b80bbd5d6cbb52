package shortener

import (
	"context"

	"github.com/sdko-org/shortlink/internal/models"
)

// Store is the durable source of truth for short links and click events.
// Implementations return ErrDuplicateCode from Create when the short_code
// unique constraint rejects the insert, and ErrNotFound from the Find methods
// when no row matches. Save persists mutable metadata only; the click counter
// is moved exclusively through IncrementClickCount so concurrent clicks are
// never reverted by an owner edit.
type Store interface {
	Create(ctx context.Context, link *models.ShortLink) error
	CodeExists(ctx context.Context, code string) (bool, error)
	FindActiveByCode(ctx context.Context, code string) (*models.ShortLink, error)
	FindByID(ctx context.Context, id, ownerID string) (*models.ShortLink, error)
	Save(ctx context.Context, link *models.ShortLink) error
	Delete(ctx context.Context, link *models.ShortLink) error
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.ShortLink, int64, error)
	IncrementClickCount(ctx context.Context, id string) error
	InsertClick(ctx context.Context, click *models.ClickEvent) error
}
