package models

import (
	"time"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type ShortLink struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	OriginalURL string `gorm:"type:text;not null"`
	ShortCode   string `gorm:"type:varchar(10);not null;uniqueIndex"`
	Title       string `gorm:"type:varchar(255)"`
	Description string `gorm:"type:text"`
	Status      string `gorm:"type:varchar(10);not null;default:active;index"`
	ClickCount  int64  `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   *time.Time `gorm:"index"`
	OwnerID     string     `gorm:"type:varchar(36);not null;index"`

	Clicks []ClickEvent `gorm:"foreignKey:ShortLinkID;constraint:OnDelete:CASCADE"`
}

type ClickEvent struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	ShortLinkID string    `gorm:"type:varchar(36);not null;index"`
	IPAddress   string    `gorm:"type:varchar(45)"`
	UserAgent   string    `gorm:"type:text"`
	Referer     string    `gorm:"type:text"`
	ClickedAt   time.Time `gorm:"index;not null"`
}

func (ShortLink) TableName() string {
	return "short_links"
}

func (ClickEvent) TableName() string {
	return "click_events"
}

// Expired reports whether the link's absolute expiry has passed. A link whose
// expiry equals now is already expired.
func (l *ShortLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}
