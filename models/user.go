package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the locally-owned account row. The primary key is the canonical
// identity key produced by middleware.NormalizeClaims — either the modern
// "provider|subject" form or a legacy bare subject preserved from older rows.
type User struct {
	ID                string  `gorm:"primaryKey" json:"id"`
	Username          string  `gorm:"index" json:"username"`
	Email             string  `json:"email,omitempty"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`

	// Identity bookkeeping
	Provider  string `gorm:"index" json:"provider"` // e.g., "google", "apple", "replit"
	SubjectID string `gorm:"index" json:"-"`        // raw OAuth subject claim

	// Economy & progression. gem_coins is only ever mutated through the
	// atomic `gem_coins = gem_coins + ?` path, never read-modify-write.
	GemCoins int64 `json:"gem_coins" gorm:"default:0"`
	TotalXP  int64 `json:"total_xp" gorm:"default:0"`
	Level    int   `json:"level" gorm:"default:1"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
