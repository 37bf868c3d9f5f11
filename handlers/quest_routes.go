// handlers/quest_routes.go
package handlers

import (
	"jemzy-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupQuestRoutes(app *fiber.App, questService *services.QuestService) {
	app.Get("/quests", questService.GetQuests)
	app.Get("/quests/:id", questService.GetQuestByID)

	app.Post("/s/quests", questService.CreateQuest)
	app.Post("/s/quests/:id/join", questService.JoinQuest)

	app.Post("/s/admin/quests/check", questService.RunQuestCheck)
}
