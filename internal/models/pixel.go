package models

import (
	"time"

	"github.com/google/uuid"
)

// Pixel is a per-email tracking record. Token is the opaque public
// lookup key embedded in the image URL; it never changes once issued.
// ViewCount is a denormalized counter kept equal to the number of View
// rows by updating both inside one transaction.
type Pixel struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Token          string     `gorm:"type:text;uniqueIndex;not null"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	CategoryID     *uuid.UUID `gorm:"type:uuid;index"`
	RecipientEmail string     `gorm:"type:text;not null"`
	EmailSubject   string     `gorm:"type:text;not null"`
	CreatorIP      string     `gorm:"type:text"`
	ViewCount      int64      `gorm:"not null;default:0"`
	Notifications  bool       `gorm:"not null;default:false"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`

	User     User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`
	Category *Category `gorm:"foreignKey:CategoryID;references:ID"`
	Views    []View    `gorm:"foreignKey:PixelID"`
}
