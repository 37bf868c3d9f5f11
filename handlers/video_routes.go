// handlers/video_routes.go
package handlers

import (
	"jemzy-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupVideoRoutes(app *fiber.App, videoService *services.VideoService) {
	app.Get("/videos", videoService.GetVideos)
	app.Get("/videos/:id", videoService.GetVideoByID)

	app.Post("/s/videos", videoService.UploadVideo)
	app.Delete("/s/videos/:id", videoService.DeleteVideo)
}
