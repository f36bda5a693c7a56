package models

import (
	"time"

	"github.com/google/uuid"
)

// View is one recorded fetch of a pixel's image.
type View struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PixelID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ViewerIP  string    `gorm:"type:text"`
	UserAgent string    `gorm:"type:text"`
	ViewedAt  time.Time `gorm:"not null;default:now();index"`

	Pixel Pixel `gorm:"constraint:OnDelete:CASCADE;foreignKey:PixelID;references:ID"`
}
