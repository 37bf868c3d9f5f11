package services

import (
	"fmt"
	"strings"
	"testing"

	"jemzy-backend/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Video{},
		&models.Quest{},
		&models.QuestParticipant{},
		&models.QuestPayout{},
		&models.Notification{},
	))
	return db
}

// seedUser inserts a user row with a zero balance.
func seedUser(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()
	user := &models.User{ID: id, Username: "u_" + id, Provider: "google", SubjectID: id, Level: 1}
	require.NoError(t, db.Create(user).Error)
	return user
}

// seedVideo inserts an active approved geo-tagged video.
func seedVideo(t *testing.T, db *gorm.DB, id, userID, lat, lng string) *models.Video {
	t.Helper()
	video := &models.Video{
		ID:               id,
		UserID:           userID,
		Title:            "video " + id,
		Latitude:         &lat,
		Longitude:        &lng,
		ProcessingStatus: models.VideoStatusApproved,
		IsActive:         true,
	}
	require.NoError(t, db.Create(video).Error)
	return video
}
