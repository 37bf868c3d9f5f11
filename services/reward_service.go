// services/reward_service.go
package services

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"jemzy-backend/middleware"
	"jemzy-backend/models"
	"jemzy-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gameplay constants. Fixed by product design, not environment-driven.
const (
	// CollectionRadiusFeet is the claim gate; the bound is inclusive, so a
	// claim at exactly 100 feet succeeds.
	CollectionRadiusFeet = 100.0
	// MaxSpawnRadiusMiles bounds the random offset from the anchor video.
	MaxSpawnRadiusMiles = 1.0
	// Reward lifetime is uniform in [MinRewardLifetime, MaxRewardLifetime).
	MinRewardLifetime = 2 * time.Hour
	MaxRewardLifetime = 6 * time.Hour
)

// CollectionResult is what a claim attempt returns to the HTTP layer. All
// claim outcomes, including dependency failures, arrive here as a typed
// result rather than an error — one bad claim must never take down a timer
// cycle or a neighboring request.
type CollectionResult struct {
	Success      bool    `json:"success"`
	CoinReward   int     `json:"coin_reward,omitempty"`
	XPReward     int     `json:"xp_reward,omitempty"`
	DistanceFeet float64 `json:"distance_feet"`
	Message      string  `json:"message"`
}

// GeoRewardService owns the ephemeral reward lifecycle: spawning instances
// near geo-tagged videos, gating collection by proximity, and sweeping
// expired ones. Durable effects (coin credits, XP) go through UserService.
type GeoRewardService struct {
	DB    *gorm.DB
	Store *RewardStore
	Users *UserService

	// rng is injectable for deterministic spawn tests; guarded because
	// rand.Rand is not safe for concurrent use across timers and handlers.
	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewGeoRewardService(db *gorm.DB, store *RewardStore, users *UserService) *GeoRewardService {
	return &GeoRewardService{
		DB:    db,
		Store: store,
		Users: users,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand swaps the randomness source (tests only).
func (s *GeoRewardService) SetRand(rng *rand.Rand) {
	s.rng = rng
}

// Spawn places one new reward instance of the given kind near a randomly
// chosen geo-tagged video. Returns (nil, nil) when no anchor content exists.
func (s *GeoRewardService) Spawn(kind models.RewardKind) (*models.RewardInstance, error) {
	anchors, err := s.listAnchors()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spawn anchors: %w", err)
	}
	if len(anchors) == 0 {
		log.Printf("📭 [SPAWN] no geo-tagged videos available, skipping %s spawn", kind)
		return nil, nil
	}

	s.rngMu.Lock()
	anchor := anchors[s.rng.Intn(len(anchors))]
	angle := s.rng.Float64() * 2 * math.Pi
	dist := s.rng.Float64() * MaxSpawnRadiusMiles
	lifetime := MinRewardLifetime + time.Duration(s.rng.Float64()*float64(MaxRewardLifetime-MinRewardLifetime))
	var tier RewardTier
	if kind == models.RewardKindMysteryBox {
		tier = pickRewardTier(s.rng, MysteryBoxTiers)
	} else {
		tier = pickRewardTier(s.rng, TreasureChestTiers)
	}
	s.rngMu.Unlock()

	anchorLat, err1 := strconv.ParseFloat(anchor.Latitude, 64)
	anchorLng, err2 := strconv.ParseFloat(anchor.Longitude, 64)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("anchor video %s has unparseable coordinates", anchor.ID)
	}

	lat, lng := utils.OffsetLocation(anchorLat, anchorLng, angle, dist)

	now := time.Now()
	inst := &models.RewardInstance{
		ID:                   uuid.NewString(),
		Kind:                 kind,
		Latitude:             strconv.FormatFloat(lat, 'f', -1, 64),
		Longitude:            strconv.FormatFloat(lng, 'f', -1, 64),
		CoinReward:           tier.Coins,
		XPReward:             tier.XP,
		Difficulty:           tier.Difficulty,
		SpawnedAt:            now,
		ExpiresAt:            now.Add(lifetime),
		NearestVideoID:       anchor.ID,
		NearestVideoDistance: dist,
	}
	s.Store.Insert(inst)

	log.Printf("💎 [SPAWN] %s %s (%d coins, %s) near video %s, expires %s",
		kind, inst.ID, inst.CoinReward, inst.Difficulty, anchor.ID,
		inst.ExpiresAt.Format(time.RFC3339))
	return inst, nil
}

// listAnchors returns active approved videos with coordinates.
func (s *GeoRewardService) listAnchors() ([]models.VideoAnchor, error) {
	var anchors []models.VideoAnchor
	err := s.DB.Model(&models.Video{}).
		Select("id", "latitude", "longitude").
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("is_active = ?", true).
		Where("processing_status = ?", models.VideoStatusApproved).
		Scan(&anchors).Error
	return anchors, err
}

// Collect runs the claim sequence for one user against one instance: the
// instance must exist, be uncollected, be unexpired, and be within radius,
// checked in that order with the first failure winning. The flip to collected
// is atomic inside the store; the coin credit afterwards never un-claims on
// failure.
func (s *GeoRewardService) Collect(userID, instanceID string, claimLat, claimLng float64) CollectionResult {
	now := time.Now()

	var distanceFeet float64
	inst, status := s.Store.Claim(instanceID, now, func(inst models.RewardInstance) bool {
		instLat, err1 := strconv.ParseFloat(inst.Latitude, 64)
		instLng, err2 := strconv.ParseFloat(inst.Longitude, 64)
		if err1 != nil || err2 != nil {
			return false
		}
		distanceFeet = utils.DistanceFeet(claimLat, claimLng, instLat, instLng)
		return distanceFeet <= CollectionRadiusFeet
	})

	switch status {
	case ClaimNotFound:
		return CollectionResult{Success: false, Message: "Reward not found or expired"}
	case ClaimAlreadyCollected:
		return CollectionResult{Success: false, Message: "Reward already collected"}
	case ClaimExpired:
		return CollectionResult{Success: false, Message: "Reward expired"}
	case ClaimRejected:
		return CollectionResult{
			Success:      false,
			DistanceFeet: distanceFeet,
			Message: fmt.Sprintf("Too far away: you are %d feet from the reward (must be within %d feet)",
				int(math.Round(distanceFeet)), int(CollectionRadiusFeet)),
		}
	}

	// Eligibility confirmed and instance marked collected. Credit failures
	// from here on are logged and surfaced generically; the instance stays
	// consumed.
	if err := s.Users.CreditCoins(userID, int64(inst.CoinReward)); err != nil {
		log.Printf("❌ [COLLECT] coin credit failed for user %s on %s: %v", userID, inst.ID, err)
		return CollectionResult{Success: false, Message: "Reward service temporarily unavailable"}
	}
	if inst.XPReward > 0 {
		if _, err := s.Users.AwardXP(userID, int64(inst.XPReward), fmt.Sprintf("%s_%s", inst.Kind, inst.ID)); err != nil {
			// Coins landed; XP is secondary. Log and report success.
			log.Printf("⚠️ [COLLECT] XP award failed for user %s on %s: %v", userID, inst.ID, err)
		}
	}

	log.Printf("🏆 [COLLECT] user %s collected %s %s (+%d coins, +%d xp, %.0f ft)",
		userID, inst.Kind, inst.ID, inst.CoinReward, inst.XPReward, distanceFeet)
	return CollectionResult{
		Success:      true,
		CoinReward:   inst.CoinReward,
		XPReward:     inst.XPReward,
		DistanceFeet: distanceFeet,
		Message:      fmt.Sprintf("Collected! You earned %d gem coins", inst.CoinReward),
	}
}

// SweepExpired evicts collected and time-expired instances.
func (s *GeoRewardService) SweepExpired() int {
	removed := s.Store.Sweep(time.Now())
	if removed > 0 {
		log.Printf("🧹 [SWEEP] evicted %d reward instance(s)", removed)
	}
	return removed
}

// ListActive returns the currently claimable instances of a kind.
func (s *GeoRewardService) ListActive(kind models.RewardKind) []models.RewardInstance {
	return s.Store.ListActive(kind, time.Now())
}

// --- Fiber handlers ---

// GetTreasureChests lists claimable treasure chests.
func (s *GeoRewardService) GetTreasureChests(c *fiber.Ctx) error {
	return c.JSON(s.ListActive(models.RewardKindTreasureChest))
}

// GetMysteryBoxes lists claimable mystery boxes.
func (s *GeoRewardService) GetMysteryBoxes(c *fiber.Ctx) error {
	return c.JSON(s.ListActive(models.RewardKindMysteryBox))
}

// CollectReward handles POST /s/{treasure-chests,mystery-boxes}/:id/collect.
func (s *GeoRewardService) CollectReward(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.LocalsUserID).(string)
	instanceID := c.Params("id")

	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if math.IsNaN(req.Latitude) || math.IsNaN(req.Longitude) ||
		req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coordinates"})
	}

	result := s.Collect(userID, instanceID, req.Latitude, req.Longitude)
	statusCode := fiber.StatusOK
	if !result.Success {
		statusCode = fiber.StatusConflict
	}
	return c.Status(statusCode).JSON(result)
}

// SpawnReward handles POST /s/admin/rewards/spawn (ops/testing hook).
func (s *GeoRewardService) SpawnReward(c *fiber.Ctx) error {
	kind := models.RewardKind(c.Query("kind", string(models.RewardKindTreasureChest)))
	if kind != models.RewardKindTreasureChest && kind != models.RewardKindMysteryBox {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown reward kind"})
	}

	inst, err := s.Spawn(kind)
	if err != nil {
		log.Printf("❌ [SPAWN] manual spawn failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "spawn failed"})
	}
	if inst == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no geo-tagged videos to anchor a spawn"})
	}
	return c.Status(fiber.StatusCreated).JSON(inst)
}

// SweepRewards handles POST /s/admin/rewards/sweep.
func (s *GeoRewardService) SweepRewards(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"removed": s.SweepExpired()})
}
