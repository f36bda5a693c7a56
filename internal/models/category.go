package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups a user's pixels under a label. Names are unique per
// owner, compared exactly.
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"type:text;not null;uniqueIndex:idx_categories_user_name"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_categories_user_name"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	User   User    `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`
	Pixels []Pixel `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
}
