// handlers/user_routes.go
package handlers

import (
	"jemzy-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService, notificationService *services.NotificationService) {
	app.Get("/s/user/profile", userService.GetProfile)

	app.Get("/s/user/notifications", notificationService.GetUserNotifications)
	app.Post("/s/user/notifications/:id/read", notificationService.MarkNotificationRead)
	app.Post("/s/user/notifications/read-all", notificationService.MarkAllNotificationsRead)
}
