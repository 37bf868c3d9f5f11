package models

import (
	"time"
)

// VideoProcessingStatus tracks the moderation pipeline state of a video.
type VideoProcessingStatus string

const (
	VideoStatusPending  VideoProcessingStatus = "pending"
	VideoStatusApproved VideoProcessingStatus = "approved"
	VideoStatusRejected VideoProcessingStatus = "rejected"
)

// Video is a geo-tagged video post. Coordinates are persisted as strings to
// keep exact decimal precision across storage round-trips; parse with
// strconv.ParseFloat at the point of use.
type Video struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string `gorm:"index;not null" json:"user_id"`
	Title        string `gorm:"not null" json:"title"`
	Slug         string `gorm:"index" json:"slug"`
	Description  string `gorm:"type:text" json:"description"`
	VideoURL     string `gorm:"type:text" json:"video_url"`     // CDN URL
	ThumbnailURL string `gorm:"type:text" json:"thumbnail_url"` // CDN URL

	Latitude  *string `gorm:"type:varchar(24)" json:"latitude,omitempty"`
	Longitude *string `gorm:"type:varchar(24)" json:"longitude,omitempty"`

	ProcessingStatus VideoProcessingStatus `gorm:"type:varchar(16);default:'pending';index" json:"processing_status"`
	IsActive         bool                  `gorm:"default:true" json:"is_active"`

	// Set when the video was posted as a quest submission.
	QuestID *string `gorm:"index" json:"quest_id,omitempty"`

	Timestamps
}

// VideoAnchor is the minimal projection used as a reward spawn reference.
type VideoAnchor struct {
	ID        string `json:"id"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}
