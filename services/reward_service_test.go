package services

import (
	"encoding/json"
	"math"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"jemzy-backend/models"
	"jemzy-backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRewardService(t *testing.T) (*GeoRewardService, *RewardStore) {
	t.Helper()
	db := newTestDB(t)
	store := NewRewardStore()
	return NewGeoRewardService(db, store, NewUserService(db)), store
}

// latOffsetForFeet returns the degree latitude delta that puts a point the
// given number of feet due north (pure haversine inversion).
func latOffsetForFeet(feet float64) float64 {
	return (feet / utils.FeetPerMile) / utils.EarthRadiusMiles * 180.0 / math.Pi
}

func TestSpawnWithoutAnchors(t *testing.T) {
	svc, store := newRewardService(t)

	inst, err := svc.Spawn(models.RewardKindTreasureChest)
	require.NoError(t, err)
	assert.Nil(t, inst)
	assert.Equal(t, 0, store.Len())
}

func TestSpawnNearAnchor(t *testing.T) {
	svc, store := newRewardService(t)
	seedUser(t, svc.DB, "poster")
	seedVideo(t, svc.DB, "v1", "poster", "40.0", "-74.0")

	before := time.Now()
	inst, err := svc.Spawn(models.RewardKindTreasureChest)
	require.NoError(t, err)
	require.NotNil(t, inst)

	assert.Equal(t, models.RewardKindTreasureChest, inst.Kind)
	assert.Equal(t, "v1", inst.NearestVideoID)
	assert.False(t, inst.IsCollected)
	assert.Equal(t, 1, store.Len())

	// Lifetime lands in [2h, 6h).
	lifetime := inst.ExpiresAt.Sub(inst.SpawnedAt)
	assert.True(t, inst.SpawnedAt.Before(inst.ExpiresAt))
	assert.GreaterOrEqual(t, lifetime, MinRewardLifetime)
	assert.Less(t, lifetime, MaxRewardLifetime)
	assert.False(t, inst.SpawnedAt.Before(before))

	// Within the max spawn radius of the anchor (equirectangular offset is
	// locally close to great-circle at this latitude).
	lat, err := strconv.ParseFloat(inst.Latitude, 64)
	require.NoError(t, err)
	lng, err := strconv.ParseFloat(inst.Longitude, 64)
	require.NoError(t, err)
	assert.LessOrEqual(t, utils.DistanceMiles(40.0, -74.0, lat, lng), MaxSpawnRadiusMiles*1.01)

	// Tier came from the treasure catalog.
	found := false
	for _, tier := range TreasureChestTiers {
		if tier.Coins == inst.CoinReward && tier.Difficulty == inst.Difficulty {
			found = true
		}
	}
	assert.True(t, found, "reward tier %d/%s not in catalog", inst.CoinReward, inst.Difficulty)
}

func TestSpawnDeterministicWithSeed(t *testing.T) {
	svcA, _ := newRewardService(t)
	seedUser(t, svcA.DB, "poster")
	seedVideo(t, svcA.DB, "v1", "poster", "40.0", "-74.0")

	svcB := NewGeoRewardService(svcA.DB, NewRewardStore(), svcA.Users)

	svcA.SetRand(rand.New(rand.NewSource(42)))
	svcB.SetRand(rand.New(rand.NewSource(42)))

	a, err := svcA.Spawn(models.RewardKindMysteryBox)
	require.NoError(t, err)
	require.NotNil(t, a)
	b, err := svcB.Spawn(models.RewardKindMysteryBox)
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.Equal(t, a.Latitude, b.Latitude)
	assert.Equal(t, a.Longitude, b.Longitude)
	assert.Equal(t, a.CoinReward, b.CoinReward)
	assert.Equal(t, a.XPReward, b.XPReward)
	assert.Equal(t, a.Difficulty, b.Difficulty)
}

func TestCollectSuccessCreditsBalance(t *testing.T) {
	svc, store := newRewardService(t)
	user := seedUser(t, svc.DB, "collector")
	require.Zero(t, user.GemCoins)

	chest := newChest("c1", time.Now().Add(time.Hour))
	store.Insert(chest)

	result := svc.Collect(user.ID, "c1", 40.0, -74.0)
	require.True(t, result.Success, "message: %s", result.Message)
	assert.Equal(t, 20, result.CoinReward)
	assert.InDelta(t, 0, result.DistanceFeet, 0.001)

	var reloaded models.User
	require.NoError(t, svc.DB.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, int64(20), reloaded.GemCoins)

	// Collected but still stored until the sweeper runs.
	inst, ok := store.Get("c1")
	require.True(t, ok)
	assert.True(t, inst.IsCollected)
}

func TestCollectTwiceNeverDoubleCredits(t *testing.T) {
	svc, store := newRewardService(t)
	user := seedUser(t, svc.DB, "collector")
	store.Insert(newChest("c1", time.Now().Add(time.Hour)))

	first := svc.Collect(user.ID, "c1", 40.0, -74.0)
	require.True(t, first.Success)

	second := svc.Collect(user.ID, "c1", 40.0, -74.0)
	assert.False(t, second.Success)
	assert.Contains(t, second.Message, "already collected")

	var reloaded models.User
	require.NoError(t, svc.DB.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, int64(20), reloaded.GemCoins)
}

func TestCollectUnknownInstance(t *testing.T) {
	svc, _ := newRewardService(t)
	seedUser(t, svc.DB, "collector")

	result := svc.Collect("collector", "ghost", 40.0, -74.0)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "not found")
}

func TestCollectExpiredInstance(t *testing.T) {
	svc, store := newRewardService(t)
	seedUser(t, svc.DB, "collector")
	store.Insert(newChest("c1", time.Now().Add(-time.Second)))

	result := svc.Collect("collector", "c1", 40.0, -74.0)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "expired")

	// Lazy eviction on the failed claim.
	assert.Equal(t, 0, store.Len())
}

func TestCollectRadiusBoundary(t *testing.T) {
	svc, store := newRewardService(t)
	user := seedUser(t, svc.DB, "collector")

	// Just inside the inclusive 100 ft bound.
	store.Insert(newChest("near", time.Now().Add(time.Hour)))
	inside := svc.Collect(user.ID, "near", 40.0+latOffsetForFeet(99.99), -74.0)
	require.True(t, inside.Success, "99.99 ft claim should pass: %s", inside.Message)
	assert.InDelta(t, 99.99, inside.DistanceFeet, 0.01)

	// Just beyond it.
	store.Insert(newChest("far", time.Now().Add(time.Hour)))
	outside := svc.Collect(user.ID, "far", 40.0+latOffsetForFeet(100.01), -74.0)
	require.False(t, outside.Success)
	assert.Contains(t, outside.Message, "Too far")
	assert.InDelta(t, 100.01, outside.DistanceFeet, 0.01)

	// An out-of-range attempt leaves the instance claimable.
	retry := svc.Collect(user.ID, "far", 40.0, -74.0)
	assert.True(t, retry.Success)
}

func TestCollectCreditFailureConsumesInstance(t *testing.T) {
	svc, store := newRewardService(t)
	// No user row: the credit call fails after the claim flip.
	store.Insert(newChest("c1", time.Now().Add(time.Hour)))

	result := svc.Collect("missing-user", "c1", 40.0, -74.0)
	assert.False(t, result.Success)
	assert.Equal(t, "Reward service temporarily unavailable", result.Message)

	// The instance stays consumed; it is never un-claimed.
	inst, ok := store.Get("c1")
	require.True(t, ok)
	assert.True(t, inst.IsCollected)
}

func TestListActiveHandlerShape(t *testing.T) {
	svc, store := newRewardService(t)
	store.Insert(newChest("c1", time.Now().Add(time.Hour)))

	active := svc.ListActive(models.RewardKindTreasureChest)
	require.Len(t, active, 1)
	assert.Equal(t, "c1", active[0].ID)
	assert.Empty(t, svc.ListActive(models.RewardKindMysteryBox))
}

func TestCollectionResultKeepsZeroDistanceInJSON(t *testing.T) {
	// A claim standing exactly on the reward reports 0 feet; the field must
	// still appear in the response body.
	result := CollectionResult{Success: true, CoinReward: 20, DistanceFeet: 0, Message: "Collected!"}

	payload, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"distance_feet":0`)
}
