package services

import (
	"sync"
	"testing"
	"time"

	"jemzy-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChest(id string, expiresAt time.Time) *models.RewardInstance {
	return &models.RewardInstance{
		ID:         id,
		Kind:       models.RewardKindTreasureChest,
		Latitude:   "40.0",
		Longitude:  "-74.0",
		CoinReward: 20,
		Difficulty: "hard",
		SpawnedAt:  time.Now(),
		ExpiresAt:  expiresAt,
	}
}

func TestClaimLifecycle(t *testing.T) {
	store := NewRewardStore()
	now := time.Now()
	store.Insert(newChest("c1", now.Add(time.Hour)))

	inst, status := store.Claim("c1", now, nil)
	require.Equal(t, ClaimOK, status)
	assert.True(t, inst.IsCollected)
	assert.Equal(t, 20, inst.CoinReward)

	// Collected instance stays in the store until swept.
	_, ok := store.Get("c1")
	assert.True(t, ok)

	_, status = store.Claim("c1", now, nil)
	assert.Equal(t, ClaimAlreadyCollected, status)
}

func TestClaimUnknownID(t *testing.T) {
	store := NewRewardStore()
	_, status := store.Claim("nope", time.Now(), nil)
	assert.Equal(t, ClaimNotFound, status)
}

func TestClaimExpiredEvictsLazily(t *testing.T) {
	store := NewRewardStore()
	now := time.Now()
	store.Insert(newChest("c1", now.Add(-time.Minute)))

	_, status := store.Claim("c1", now, nil)
	assert.Equal(t, ClaimExpired, status)

	// The failed claim already evicted it.
	_, ok := store.Get("c1")
	assert.False(t, ok)
	_, status = store.Claim("c1", now, nil)
	assert.Equal(t, ClaimNotFound, status)
}

func TestClaimGateRejection(t *testing.T) {
	store := NewRewardStore()
	now := time.Now()
	store.Insert(newChest("c1", now.Add(time.Hour)))

	_, status := store.Claim("c1", now, func(models.RewardInstance) bool { return false })
	assert.Equal(t, ClaimRejected, status)

	// A rejected claim leaves the instance claimable.
	inst, ok := store.Get("c1")
	require.True(t, ok)
	assert.False(t, inst.IsCollected)
}

func TestClaimIsCompareAndSet(t *testing.T) {
	store := NewRewardStore()
	now := time.Now()
	store.Insert(newChest("c1", now.Add(time.Hour)))

	const claimers = 32
	var wg sync.WaitGroup
	results := make([]ClaimStatus, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.Claim("c1", now, nil)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, status := range results {
		if status == ClaimOK {
			wins++
		} else {
			assert.Equal(t, ClaimAlreadyCollected, status)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent claim may succeed")
}

func TestSweepBoundary(t *testing.T) {
	store := NewRewardStore()
	now := time.Now()
	store.Insert(newChest("past", now.Add(-time.Millisecond)))
	store.Insert(newChest("future", now.Add(time.Millisecond)))

	removed := store.Sweep(now)
	assert.Equal(t, 1, removed)

	_, ok := store.Get("past")
	assert.False(t, ok)
	_, ok = store.Get("future")
	assert.True(t, ok)
}

func TestSweepRemovesCollected(t *testing.T) {
	store := NewRewardStore()
	now := time.Now()
	store.Insert(newChest("c1", now.Add(time.Hour)))

	_, status := store.Claim("c1", now, nil)
	require.Equal(t, ClaimOK, status)

	assert.Equal(t, 1, store.Sweep(now))
	assert.Equal(t, 0, store.Len())
}

func TestListActiveFiltersAndEvicts(t *testing.T) {
	store := NewRewardStore()
	now := time.Now()

	store.Insert(newChest("live", now.Add(time.Hour)))
	store.Insert(newChest("dead", now.Add(-time.Hour)))
	box := newChest("box", now.Add(time.Hour))
	box.Kind = models.RewardKindMysteryBox
	store.Insert(box)

	chests := store.ListActive(models.RewardKindTreasureChest, now)
	require.Len(t, chests, 1)
	assert.Equal(t, "live", chests[0].ID)

	// The expired instance was lazily evicted during the walk.
	assert.Equal(t, 2, store.Len())

	boxes := store.ListActive(models.RewardKindMysteryBox, now)
	require.Len(t, boxes, 1)
	assert.Equal(t, "box", boxes[0].ID)
}
