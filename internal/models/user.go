package models

import (
	"time"

	"github.com/google/uuid"
)

// User account states. New accounts stay PENDING until the emailed
// one-time code is confirmed.
const (
	UserStatePending = "PENDING"
	UserStateActive  = "ACTIVE"
)

// User represents a registered owner of tracking pixels.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string    `gorm:"type:text;uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:text;not null"`
	State        string    `gorm:"type:text;not null;default:'PENDING'"`
	Otp          *string   `gorm:"type:text"`
	OtpExpiresAt *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	Categories []Category `gorm:"constraint:OnDelete:CASCADE"`
	Pixels     []Pixel    `gorm:"constraint:OnDelete:CASCADE"`
}
