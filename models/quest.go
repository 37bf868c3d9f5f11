package models

import (
	"time"
)

// QuestStatus: active is the only non-terminal state. A quest leaves active
// exactly once, at or after its end date, decided by the completion checker.
type QuestStatus string

const (
	QuestStatusActive    QuestStatus = "active"
	QuestStatusCompleted QuestStatus = "completed"
	QuestStatusFailed    QuestStatus = "failed"
)

// Quest is a time-boxed group goal: it succeeds when at least
// RequiredParticipants approved video submissions exist by EndDate.
type Quest struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Slug        string `gorm:"index" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	CreatorID   string `gorm:"index" json:"creator_id"`
	ImageURL    string `gorm:"type:text" json:"image_url"`

	Status   QuestStatus `gorm:"type:varchar(16);default:'active';index" json:"status"`
	IsActive bool        `gorm:"default:true;index" json:"is_active"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `gorm:"index" json:"end_date"`

	RequiredParticipants int   `gorm:"not null" json:"required_participants"`
	RewardPerParticipant int64 `gorm:"not null" json:"reward_per_participant"` // gem coins

	Timestamps

	// Calculated, never stored
	ParticipantCount int64 `json:"participant_count,omitempty" gorm:"-"`
}

// QuestParticipant links a user to a quest. HasPosted flips when the user's
// quest submission clears moderation; only posted participants are paid.
type QuestParticipant struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	QuestID   string    `gorm:"index;not null;uniqueIndex:idx_quest_user" json:"quest_id"`
	UserID    string    `gorm:"index;not null;uniqueIndex:idx_quest_user" json:"user_id"`
	HasPosted bool      `gorm:"default:false" json:"has_posted"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// QuestPayoutStatus for the at-least-once fan-out outbox.
type QuestPayoutStatus string

const (
	PayoutStatusPending   QuestPayoutStatus = "pending"
	PayoutStatusCompleted QuestPayoutStatus = "completed"
)

// QuestPayout is an outbox row: one pending payout per posted participant is
// persisted in the same transaction that marks the quest terminal, so a crash
// mid fan-out never loses a notification or coin credit. CoinReward is zero
// for failed-quest notifications.
type QuestPayout struct {
	ID         string            `gorm:"primaryKey;type:uuid" json:"id"`
	QuestID    string            `gorm:"index;not null" json:"quest_id"`
	UserID     string            `gorm:"index;not null" json:"user_id"`
	CoinReward int64             `json:"coin_reward"`
	Title      string            `json:"title"`
	Message    string            `gorm:"type:text" json:"message"`
	Status     QuestPayoutStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
