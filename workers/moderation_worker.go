// workers/moderation_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"jemzy-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModerationClient polls the external video-intelligence service for
// moderation verdicts on pending videos and applies them locally.
type ModerationClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewModerationClient(db *gorm.DB) *ModerationClient {
	baseURL := os.Getenv("MODERATION_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("MODERATION_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("MODERATION_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("MODERATION_SERVICE_TOKEN environment variable is required")
	}

	return &ModerationClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type verdict struct {
	VideoID string `json:"video_id"`
	Verdict string `json:"verdict"` // "approved" | "rejected" | "pending"
	Reason  string `json:"reason,omitempty"`
}

// FetchVerdicts asks the moderation service for the current verdicts on a
// batch of video ids. Videos still being analyzed come back "pending".
func (c *ModerationClient) FetchVerdicts(ctx context.Context, videoIDs []string) ([]verdict, error) {
	payload, err := json.Marshal(map[string]interface{}{"video_ids": videoIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verdict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/api/v1/moderation/verdicts", c.BaseURL), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call moderation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("moderation service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Verdicts []verdict `json:"verdicts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode moderation response: %w", err)
	}
	return response.Verdicts, nil
}

// PollModeration drives the moderation pipeline: every tick it gathers
// pending videos, fetches verdicts, and applies approved/rejected outcomes.
// Approving a quest submission also flips the participant's has_posted flag,
// which is what the quest completion checker pays out on.
func PollModeration(ctx context.Context, client *ModerationClient, pollInterval time.Duration) {
	log.Println("🔎 Starting moderation polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Moderation polling stopped.")
			return
		case <-ticker.C:
			if err := client.processPending(ctx); err != nil {
				log.Printf("❌ Moderation cycle failed: %v", err)
			}
		}
	}
}

func (c *ModerationClient) processPending(ctx context.Context) error {
	var pending []models.Video
	err := c.DB.Where("processing_status = ?", models.VideoStatusPending).
		Order("created_at ASC").Limit(50).
		Find(&pending).Error
	if err != nil {
		return fmt.Errorf("listing pending videos: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	ids := make([]string, len(pending))
	byID := make(map[string]models.Video, len(pending))
	for i, v := range pending {
		ids[i] = v.ID
		byID[v.ID] = v
	}

	verdicts, err := c.FetchVerdicts(ctx, ids)
	if err != nil {
		return err
	}

	applied := 0
	for _, v := range verdicts {
		video, ok := byID[v.VideoID]
		if !ok || v.Verdict == "pending" {
			continue
		}
		if err := c.applyVerdict(&video, v); err != nil {
			log.Printf("❌ Failed to apply verdict %s to video %s: %v", v.Verdict, v.VideoID, err)
			continue
		}
		applied++
	}
	if applied > 0 {
		log.Printf("📋 Applied %d moderation verdict(s)", applied)
	}
	return nil
}

func (c *ModerationClient) applyVerdict(video *models.Video, v verdict) error {
	var status models.VideoProcessingStatus
	switch v.Verdict {
	case "approved":
		status = models.VideoStatusApproved
	case "rejected":
		status = models.VideoStatusRejected
	default:
		return fmt.Errorf("unknown verdict %q", v.Verdict)
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Video{}).
			Where("id = ?", video.ID).
			Update("processing_status", status).Error; err != nil {
			return err
		}

		// An approved quest submission counts the participant as posted.
		if status == models.VideoStatusApproved && video.QuestID != nil {
			if err := tx.Model(&models.QuestParticipant{}).
				Where("quest_id = ? AND user_id = ?", *video.QuestID, video.UserID).
				Update("has_posted", true).Error; err != nil {
				return err
			}
		}

		// Inbox row for the uploader; push delivery is handled elsewhere.
		title, message, ntype := "Your video is live! 🎥", "Your video passed review and is now visible on the map.", models.NotificationSystem
		if status == models.VideoStatusRejected {
			title = "Video rejected"
			message = "Your video did not pass content review."
			if v.Reason != "" {
				message = fmt.Sprintf("Your video did not pass content review: %s", v.Reason)
			}
		}
		return tx.Create(&models.Notification{
			ID:               uuid.NewString(),
			UserID:           video.UserID,
			Title:            title,
			Message:          message,
			Type:             ntype,
			RelatedContentID: &video.ID,
		}).Error
	})
}
