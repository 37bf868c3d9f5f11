package models

import (
	"time"
)

// NotificationType categorizes in-app notifications for client rendering.
type NotificationType string

const (
	NotificationQuestCompleted NotificationType = "quest_completed"
	NotificationQuestFailed    NotificationType = "quest_failed"
	NotificationRewardEarned   NotificationType = "reward_earned"
	NotificationSystem         NotificationType = "system"
)

// Notification is a per-user inbox row; delivery to the push gateway is
// best-effort and never blocks creating the row.
type Notification struct {
	ID               string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID           string           `gorm:"index;not null" json:"user_id"`
	Title            string           `gorm:"not null" json:"title"`
	Message          string           `gorm:"type:text" json:"message"`
	Type             NotificationType `gorm:"type:varchar(32);default:'system'" json:"type"`
	RelatedContentID *string          `json:"related_content_id,omitempty"`
	IsRead           bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
}
