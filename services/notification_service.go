// services/notification_service.go
package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"jemzy-backend/middleware"
	"jemzy-backend/models"
	"jemzy-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationService persists per-user notifications and forwards them,
// best-effort, to the external push gateway.
type NotificationService struct {
	DB             *gorm.DB
	PushGatewayURL string // empty disables push delivery
	PushToken      string
	HTTPClient     *http.Client
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		DB:             db,
		PushGatewayURL: os.Getenv("PUSH_GATEWAY_URL"),
		PushToken:      os.Getenv("PUSH_GATEWAY_TOKEN"),
		HTTPClient:     utils.HTTPClient,
	}
}

// Create inserts the notification row and then attempts push delivery.
// Push failure is logged and swallowed — the inbox row is the contract.
func (s *NotificationService) Create(userID, title, message string, ntype models.NotificationType, relatedContentID *string) error {
	n := &models.Notification{
		ID:               uuid.NewString(),
		UserID:           userID,
		Title:            title,
		Message:          message,
		Type:             ntype,
		RelatedContentID: relatedContentID,
	}
	if err := s.DB.Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	s.pushBestEffort(n)
	return nil
}

func (s *NotificationService) pushBestEffort(n *models.Notification) {
	if s.PushGatewayURL == "" {
		return
	}

	payload, err := json.Marshal(fiber.Map{
		"user_id": n.UserID,
		"title":   n.Title,
		"body":    n.Message,
		"type":    n.Type,
	})
	if err != nil {
		log.Printf("⚠️ [PUSH] marshal failed: %v", err)
		return
	}

	req, err := http.NewRequest("POST", s.PushGatewayURL+"/api/v1/push", bytes.NewReader(payload))
	if err != nil {
		log.Printf("⚠️ [PUSH] request build failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", s.PushToken)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		log.Printf("⚠️ [PUSH] delivery failed for user %s: %v", n.UserID, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("⚠️ [PUSH] gateway returned %d for user %s", resp.StatusCode, n.UserID)
	}
}

// --- Fiber handlers ---

// GetUserNotifications lists the authenticated user's inbox, newest first.
func (s *NotificationService) GetUserNotifications(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.LocalsUserID).(string)

	query := s.DB.Where("user_id = ?", userID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(100).Find(&notifications).Error; err != nil {
		log.Printf("DB error fetching notifications: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch notifications"})
	}
	return c.JSON(notifications)
}

// MarkNotificationRead marks one owned notification as read (idempotent).
func (s *NotificationService) MarkNotificationRead(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.LocalsUserID).(string)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification ID"})
	}

	var n models.Notification
	if err := s.DB.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if !n.IsRead {
		n.IsRead = true
		if err := s.DB.Save(&n).Error; err != nil {
			log.Printf("DB error marking notification read: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark as read"})
		}
	}
	return c.JSON(fiber.Map{"message": "OK", "notification_id": n.ID, "is_read": true})
}

// MarkAllNotificationsRead marks the whole inbox read.
func (s *NotificationService) MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.LocalsUserID).(string)

	result := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		log.Printf("Bulk mark read failed: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notifications"})
	}

	return c.JSON(fiber.Map{"message": "OK", "marked_count": result.RowsAffected})
}
