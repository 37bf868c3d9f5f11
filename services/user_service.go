// services/user_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"jemzy-backend/middleware"
	"jemzy-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// BaseXPPerLevel feeds the level curve: reaching level n+1 from n costs
// floor(BaseXPPerLevel * n^1.2) XP on top of what level n cost.
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to go from currentLevel to the next one.
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// xpThresholdForLevel returns the cumulative XP needed to *hold* the level.
func xpThresholdForLevel(level int) int64 {
	var total int64
	for l := 1; l < level; l++ {
		total += xpForNextLevel(l)
	}
	return total
}

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// ResolveUser maps normalized OAuth claims onto a local account row,
// creating one on first sight. Legacy preservation: accounts created before
// canonical "provider|subject" keys were introduced are keyed by the bare
// subject; when such a row exists it keeps its original key forever.
func (s *UserService) ResolveUser(claims middleware.IdentityClaims) (*models.User, error) {
	if claims.Subject == "" {
		return nil, errors.New("claims carry no subject")
	}

	// Legacy row keyed by the raw subject wins over the canonical key.
	var user models.User
	err := s.DB.First(&user, "id = ?", claims.Subject).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	canonical := middleware.CanonicalKey(claims.Provider, claims.Subject)
	err = s.DB.First(&user, "id = ?", canonical).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		ID:        canonical,
		Username:  claims.Username,
		Email:     claims.Email,
		Provider:  claims.Provider,
		SubjectID: claims.Subject,
		Level:     1,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	log.Printf("👤 New user registered: %s (provider=%s)", user.ID, user.Provider)
	return &user, nil
}

// ResolveUserID is the resolver handed to the user-context middleware: it
// returns the storage key every request-scoped handler should use.
func (s *UserService) ResolveUserID(claims middleware.IdentityClaims) (string, error) {
	user, err := s.ResolveUser(claims)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// CreditCoins adds amount to the user's gem balance with a single additive
// UPDATE; concurrent credits serialize in the database, never read-modify-write.
func (s *UserService) CreditCoins(userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	res := s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("gem_coins", gorm.Expr("gem_coins + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no user row for %s", userID)
	}
	return nil
}

// AwardXP adds XP inside a transaction and applies any pending level-ups.
func (s *UserService) AwardXP(userID string, xp int64, reason string) (*models.User, error) {
	var updated *models.User
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("user not found for %s", userID)
		}

		user.TotalXP += xp
		for user.TotalXP >= xpThresholdForLevel(user.Level+1) {
			user.Level++
			now := time.Now()
			user.LastLevelUpAt = &now
		}

		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		updated = &models.User{}
		*updated = user

		log.Printf("🎮 XP awarded: %s → XP=%d, Lvl=%d (reason: %s)",
			userID, user.TotalXP, user.Level, reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetProfile returns the authenticated user's account row, creating it on
// first request.
func (s *UserService) GetProfile(c *fiber.Ctx) error {
	claims, ok := c.Locals(middleware.LocalsClaims).(middleware.IdentityClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing identity context"})
	}

	user, err := s.ResolveUser(claims)
	if err != nil {
		log.Printf("DB error resolving user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load profile"})
	}

	return c.JSON(fiber.Map{
		"id":               user.ID,
		"username":         user.Username,
		"provider":         user.Provider,
		"gem_coins":        user.GemCoins,
		"total_xp":         user.TotalXP,
		"level":            user.Level,
		"xp_to_next_level": xpThresholdForLevel(user.Level+1) - user.TotalXP,
		"last_level_up_at": user.LastLevelUpAt,
	})
}
