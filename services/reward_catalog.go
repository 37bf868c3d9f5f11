// services/reward_catalog.go
package services

import (
	"math/rand"
)

// RewardTier pairs a coin payout with an informational difficulty label.
// Mystery-box tiers additionally carry an XP payout.
type RewardTier struct {
	Coins      int
	XP         int
	Difficulty string
}

// TreasureChestTiers is the fixed treasure-chest catalog. Selection is
// uniform-random across tiers, with no weighting by magnitude.
var TreasureChestTiers = []RewardTier{
	{Coins: 5, Difficulty: "easy"},
	{Coins: 10, Difficulty: "medium"},
	{Coins: 20, Difficulty: "hard"},
	{Coins: 40, Difficulty: "very_hard"},
	{Coins: 100, Difficulty: "extreme"},
}

// MysteryBoxTiers is the mystery-box catalog; boxes pay coins and XP.
var MysteryBoxTiers = []RewardTier{
	{Coins: 3, XP: 10, Difficulty: "common"},
	{Coins: 8, XP: 25, Difficulty: "uncommon"},
	{Coins: 15, XP: 50, Difficulty: "rare"},
	{Coins: 30, XP: 120, Difficulty: "epic"},
	{Coins: 75, XP: 300, Difficulty: "legendary"},
}

func pickRewardTier(rng *rand.Rand, tiers []RewardTier) RewardTier {
	return tiers[rng.Intn(len(tiers))]
}
