// services/quest_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"jemzy-backend/middleware"
	"jemzy-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// QuestService owns quest CRUD and the completion sweep. A quest leaves
// `active` exactly once: the sweep decides completed vs failed by comparing
// approved submissions to the required-participant threshold (>= succeeds).
type QuestService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Users         *UserService
}

func NewQuestService(db *gorm.DB, notifications *NotificationService, users *UserService) *QuestService {
	return &QuestService{DB: db, Notifications: notifications, Users: users}
}

// CheckExpiredQuests scans for active quests past their end date and
// transitions each independently: one failing quest never blocks the rest.
// The status flip and the per-participant payout rows commit in one
// transaction (the outbox), so a crash mid fan-out loses nothing; the
// dispatcher retires pending payouts afterwards, at-least-once.
func (s *QuestService) CheckExpiredQuests() {
	now := time.Now()

	var quests []models.Quest
	err := s.DB.Where("status = ? AND is_active = ? AND end_date <= ?",
		models.QuestStatusActive, true, now).
		Find(&quests).Error
	if err != nil {
		log.Printf("❌ [QUEST_CHECK] DB error listing expired quests: %v", err)
		return
	}

	for _, quest := range quests {
		if err := s.finalizeQuest(&quest); err != nil {
			log.Printf("❌ [QUEST_CHECK] failed to finalize quest %s: %v", quest.ID, err)
		}
	}

	if processed := s.ProcessPendingPayouts(); processed > 0 {
		log.Printf("💸 [QUEST_CHECK] retired %d payout(s)", processed)
	}
}

// finalizeQuest decides the outcome of one expired quest and writes the
// terminal status plus the payout outbox rows atomically.
func (s *QuestService) finalizeQuest(quest *models.Quest) error {
	approvedCount, err := s.countApprovedSubmissions(quest.ID)
	if err != nil {
		return fmt.Errorf("counting approved submissions: %w", err)
	}

	succeeded := approvedCount >= int64(quest.RequiredParticipants)
	newStatus := models.QuestStatusFailed
	if succeeded {
		newStatus = models.QuestStatusCompleted
	}

	var participants []models.QuestParticipant
	if err := s.DB.Where("quest_id = ? AND has_posted = ?", quest.ID, true).
		Find(&participants).Error; err != nil {
		return fmt.Errorf("listing posted participants: %w", err)
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		// Guard against a concurrent checker cycle: only the transition out
		// of active wins; zero rows means someone else already finalized.
		res := tx.Model(&models.Quest{}).
			Where("id = ? AND status = ?", quest.ID, models.QuestStatusActive).
			Updates(map[string]interface{}{"status": newStatus, "is_active": false})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		for _, p := range participants {
			payout := models.QuestPayout{
				ID:      uuid.NewString(),
				QuestID: quest.ID,
				UserID:  p.UserID,
				Status:  models.PayoutStatusPending,
			}
			if succeeded {
				payout.CoinReward = quest.RewardPerParticipant
				payout.Title = "Quest Completed! 🎉"
				payout.Message = fmt.Sprintf(
					"\"%s\" succeeded with %d of %d required participants. You earned %d gem coins!",
					quest.Title, approvedCount, quest.RequiredParticipants, quest.RewardPerParticipant)
			} else {
				payout.Title = "Quest Failed"
				payout.Message = fmt.Sprintf(
					"\"%s\" ended with %d of %d required participants. Better luck next time!",
					quest.Title, approvedCount, quest.RequiredParticipants)
			}
			if err := tx.Create(&payout).Error; err != nil {
				return err
			}
		}

		log.Printf("🏁 [QUEST_CHECK] quest %q → %s (%d/%d approved, %d payout(s) queued)",
			quest.Title, newStatus, approvedCount, quest.RequiredParticipants, len(participants))
		return nil
	})
}

// countApprovedSubmissions tallies active, moderation-approved quest videos.
func (s *QuestService) countApprovedSubmissions(questID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Video{}).
		Where("quest_id = ? AND processing_status = ? AND is_active = ?",
			questID, models.VideoStatusApproved, true).
		Count(&count).Error
	return count, err
}

// ProcessPendingPayouts retires outbox rows: notification first, then the
// coin credit, then the completed flip. Any failure leaves the row pending
// for the next cycle, so delivery is at-least-once.
func (s *QuestService) ProcessPendingPayouts() int {
	var payouts []models.QuestPayout
	if err := s.DB.Where("status = ?", models.PayoutStatusPending).
		Order("created_at ASC").Limit(200).
		Find(&payouts).Error; err != nil {
		log.Printf("❌ [PAYOUT] DB error listing pending payouts: %v", err)
		return 0
	}

	processed := 0
	for _, payout := range payouts {
		ntype := models.NotificationQuestFailed
		if payout.CoinReward > 0 {
			ntype = models.NotificationQuestCompleted
		}

		questID := payout.QuestID
		if err := s.Notifications.Create(payout.UserID, payout.Title, payout.Message, ntype, &questID); err != nil {
			log.Printf("⚠️ [PAYOUT] notification failed for payout %s: %v", payout.ID, err)
			continue
		}

		if payout.CoinReward > 0 {
			if err := s.Users.CreditCoins(payout.UserID, payout.CoinReward); err != nil {
				log.Printf("⚠️ [PAYOUT] coin credit failed for payout %s: %v", payout.ID, err)
				continue
			}
		}

		now := time.Now()
		if err := s.DB.Model(&models.QuestPayout{}).
			Where("id = ?", payout.ID).
			Updates(map[string]interface{}{"status": models.PayoutStatusCompleted, "completed_at": now}).
			Error; err != nil {
			log.Printf("⚠️ [PAYOUT] failed to mark payout %s completed: %v", payout.ID, err)
			continue
		}
		processed++
	}
	return processed
}

// --- Fiber handlers ---

// CreateQuest creates an active quest owned by the authenticated user.
func (s *QuestService) CreateQuest(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.LocalsUserID).(string)

	var req struct {
		Title                string    `json:"title"`
		Description          string    `json:"description"`
		ImageURL             string    `json:"image_url"`
		StartDate            time.Time `json:"start_date"`
		EndDate              time.Time `json:"end_date"`
		RequiredParticipants int       `json:"required_participants"`
		RewardPerParticipant int64     `json:"reward_per_participant"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}
	if req.RequiredParticipants < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "required_participants must be at least 1"})
	}
	if req.RewardPerParticipant < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reward_per_participant cannot be negative"})
	}
	if !req.EndDate.After(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_date must be in the future"})
	}
	if req.StartDate.IsZero() {
		req.StartDate = time.Now()
	}

	quest := &models.Quest{
		ID:                   uuid.NewString(),
		Title:                req.Title,
		Slug:                 slug.Make(req.Title),
		Description:          req.Description,
		ImageURL:             req.ImageURL,
		CreatorID:            userID,
		Status:               models.QuestStatusActive,
		IsActive:             true,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		RequiredParticipants: req.RequiredParticipants,
		RewardPerParticipant: req.RewardPerParticipant,
	}
	if err := s.DB.Create(quest).Error; err != nil {
		log.Printf("DB Error creating quest: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create quest"})
	}
	return c.Status(fiber.StatusCreated).JSON(quest)
}

// GetQuests lists quests; ?status=active|completed|failed|any (default active).
func (s *QuestService) GetQuests(c *fiber.Ctx) error {
	query := s.DB.Model(&models.Quest{})
	switch status := c.Query("status", "active"); status {
	case "any":
	case "active", "completed", "failed":
		query = query.Where("status = ?", status)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status filter"})
	}

	var quests []models.Quest
	if err := query.Order("end_date ASC").Find(&quests).Error; err != nil {
		log.Printf("DB Error fetching quests: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch quests"})
	}

	for i := range quests {
		s.DB.Model(&models.QuestParticipant{}).
			Where("quest_id = ?", quests[i].ID).
			Count(&quests[i].ParticipantCount)
	}
	return c.JSON(quests)
}

// GetQuestByID returns one quest with its participant count.
func (s *QuestService) GetQuestByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid quest ID"})
	}

	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quest not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	s.DB.Model(&models.QuestParticipant{}).
		Where("quest_id = ?", quest.ID).
		Count(&quest.ParticipantCount)
	return c.JSON(quest)
}

// JoinQuest enrolls the authenticated user into an active quest (idempotent).
func (s *QuestService) JoinQuest(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.LocalsUserID).(string)
	questID := c.Params("id")
	if _, err := uuid.Parse(questID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid quest ID"})
	}

	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", questID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quest not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if quest.Status != models.QuestStatusActive || !quest.IsActive {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Quest is no longer active"})
	}
	if time.Now().After(quest.EndDate) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Quest has ended"})
	}

	participant := models.QuestParticipant{
		ID:      uuid.NewString(),
		QuestID: questID,
		UserID:  userID,
	}
	err := s.DB.Where("quest_id = ? AND user_id = ?", questID, userID).
		FirstOrCreate(&participant).Error
	if err != nil {
		log.Printf("DB Error joining quest: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to join quest"})
	}
	return c.JSON(fiber.Map{"message": "Joined quest", "participant": participant})
}

// RunQuestCheck handles POST /s/admin/quests/check (ops/testing hook).
func (s *QuestService) RunQuestCheck(c *fiber.Ctx) error {
	s.CheckExpiredQuests()
	return c.JSON(fiber.Map{"message": "quest check completed"})
}
