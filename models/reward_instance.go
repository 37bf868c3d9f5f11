package models

import (
	"time"
)

// RewardKind distinguishes the two geofenced collectible types. They share
// one lifecycle (spawn → collect | expire → sweep) and one in-memory store.
type RewardKind string

const (
	RewardKindTreasureChest RewardKind = "treasure_chest"
	RewardKindMysteryBox    RewardKind = "mystery_box"
)

// RewardInstance is a live geofenced collectible. Instances are purely
// in-memory: they are created by the spawn scheduler, flipped to collected by
// a successful claim, and evicted by the sweeper. A process restart loses all
// live instances; there is deliberately no persistence contract for them.
//
// Coordinates are decimal-degree strings, matching how video locations are
// stored. An instance is claimable iff !IsCollected && now < ExpiresAt.
type RewardInstance struct {
	ID         string     `json:"id"`
	Kind       RewardKind `json:"kind"`
	Latitude   string     `json:"latitude"`
	Longitude  string     `json:"longitude"`
	CoinReward int        `json:"coin_reward"`
	XPReward   int        `json:"xp_reward,omitempty"` // mystery boxes only
	Difficulty string     `json:"difficulty"`

	SpawnedAt   time.Time `json:"spawned_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	IsCollected bool      `json:"is_collected"`

	// Back-reference to the video used as spawn anchor (informational only).
	NearestVideoID       string  `json:"nearest_video_id,omitempty"`
	NearestVideoDistance float64 `json:"nearest_video_distance,omitempty"` // miles
}
