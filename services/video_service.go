// services/video_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"time"

	"jemzy-backend/middleware"
	"jemzy-backend/models"
	"jemzy-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const maxVideoUploadBytes = 512 * 1024 * 1024 // 512MB

type VideoService struct {
	DB *gorm.DB
}

func NewVideoService(db *gorm.DB) *VideoService {
	return &VideoService{DB: db}
}

// UploadVideo creates a new geo-tagged video post. The video file and
// optional thumbnail go to R2 (CDN URLs stored) or fall back to local disk
// when R2 is not configured. New videos enter the moderation pipeline as
// `pending`; they only become spawn anchors and quest submissions once the
// moderation worker approves them.
func (s *VideoService) UploadVideo(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.LocalsUserID).(string)

	videoFile, err := c.FormFile("video_file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "video_file is required"})
	}
	if videoFile.Size > maxVideoUploadBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file too large (max 512MB)"})
	}

	title := c.FormValue("title")
	if title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}

	// Coordinates are optional but validated when present, and stored as the
	// exact strings the client sent.
	latStr, lngStr := c.FormValue("latitude"), c.FormValue("longitude")
	var latitude, longitude *string
	if latStr != "" || lngStr != "" {
		lat, err1 := strconv.ParseFloat(latStr, 64)
		lng, err2 := strconv.ParseFloat(lngStr, 64)
		if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid latitude/longitude"})
		}
		latitude, longitude = &latStr, &lngStr
	}

	video := &models.Video{
		ID:               uuid.NewString(),
		UserID:           userID,
		Title:            title,
		Slug:             slug.Make(title),
		Description:      c.FormValue("description"),
		Latitude:         latitude,
		Longitude:        longitude,
		ProcessingStatus: models.VideoStatusPending,
		IsActive:         true,
	}

	// Quest submissions require prior enrollment.
	if questID := c.FormValue("quest_id"); questID != "" {
		var quest models.Quest
		if err := s.DB.First(&quest, "id = ?", questID).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quest not found"})
		}
		if quest.Status != models.QuestStatusActive || !quest.IsActive || time.Now().After(quest.EndDate) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "quest is no longer accepting submissions"})
		}
		var count int64
		s.DB.Model(&models.QuestParticipant{}).
			Where("quest_id = ? AND user_id = ?", questID, userID).
			Count(&count)
		if count == 0 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "join the quest before submitting"})
		}
		video.QuestID = &questID
	}

	videoURL, err := s.storeUpload(videoFile, "videos", video.ID, ".mp4")
	if err != nil {
		log.Printf("❌ Video upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store video file"})
	}
	video.VideoURL = videoURL

	if thumbFile, err := c.FormFile("thumbnail"); err == nil && thumbFile.Size > 0 {
		thumbURL, err := s.storeUpload(thumbFile, "thumbnails", video.ID, ".jpg")
		if err != nil {
			log.Printf("❌ Thumbnail upload failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store thumbnail"})
		}
		video.ThumbnailURL = thumbURL
	}

	if err := s.DB.Create(video).Error; err != nil {
		log.Printf("DB Error creating video: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create video"})
	}
	return c.Status(fiber.StatusCreated).JSON(video)
}

// storeUpload sends the file to R2 when configured, local disk otherwise.
func (s *VideoService) storeUpload(fileHeader *multipart.FileHeader, prefix, id, defaultExt string) (string, error) {
	ext := filepath.Ext(fileHeader.Filename)
	if ext == "" {
		ext = defaultExt
	}
	key := fmt.Sprintf("%s/%s%s", prefix, id, ext)

	if utils.R2Enabled() {
		return utils.UploadFileToR2(fileHeader, key)
	}

	localPath := utils.GetUploadPath(key)
	if err := utils.SaveFile(fileHeader, localPath); err != nil {
		return "", err
	}
	return "/" + localPath, nil
}

// GetVideos lists active approved videos. Optional lat/lng/radius_miles
// query params narrow results to a proximity circle; quest_id filters to a
// quest's submissions.
func (s *VideoService) GetVideos(c *fiber.Ctx) error {
	query := s.DB.Where("is_active = ? AND processing_status = ?", true, models.VideoStatusApproved)
	if questID := c.Query("quest_id"); questID != "" {
		query = query.Where("quest_id = ?", questID)
	}

	var videos []models.Video
	if err := query.Order("created_at DESC").Limit(500).Find(&videos).Error; err != nil {
		log.Printf("DB Error fetching videos: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch videos"})
	}

	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" || lngStr == "" {
		return c.JSON(videos)
	}

	lat, err1 := strconv.ParseFloat(latStr, 64)
	lng, err2 := strconv.ParseFloat(lngStr, 64)
	radius, err3 := strconv.ParseFloat(c.Query("radius_miles", "5"), 64)
	if err1 != nil || err2 != nil || err3 != nil || radius <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid proximity filter"})
	}

	nearby := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if v.Latitude == nil || v.Longitude == nil {
			continue
		}
		vLat, err1 := strconv.ParseFloat(*v.Latitude, 64)
		vLng, err2 := strconv.ParseFloat(*v.Longitude, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if utils.DistanceMiles(lat, lng, vLat, vLng) <= radius {
			nearby = append(nearby, v)
		}
	}
	return c.JSON(nearby)
}

// GetVideoByID fetches one video.
func (s *VideoService) GetVideoByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid video ID"})
	}

	var video models.Video
	if err := s.DB.First(&video, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Video not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(video)
}

// DeleteVideo soft-deletes an owned video.
func (s *VideoService) DeleteVideo(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.LocalsUserID).(string)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid video ID"})
	}

	var video models.Video
	if err := s.DB.Where("id = ? AND user_id = ?", id, userID).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Video not found or not owned"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&video).Error; err != nil {
		log.Printf("DB Error deleting video: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete video"})
	}
	return c.JSON(fiber.Map{"message": "Video deleted successfully"})
}
