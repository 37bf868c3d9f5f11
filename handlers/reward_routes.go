// handlers/reward_routes.go
package handlers

import (
	"jemzy-backend/services"

	"github.com/gofiber/fiber/v2"
)

// SetupRewardRoutes wires the geofenced reward endpoints. Listing is public
// (gateway-authed only); collecting and ops hooks need user context, which
// main applies globally via the user-context middleware.
func SetupRewardRoutes(app *fiber.App, rewardService *services.GeoRewardService) {
	app.Get("/treasure-chests", rewardService.GetTreasureChests)
	app.Get("/mystery-boxes", rewardService.GetMysteryBoxes)

	app.Post("/s/treasure-chests/:id/collect", rewardService.CollectReward)
	app.Post("/s/mystery-boxes/:id/collect", rewardService.CollectReward)

	app.Post("/s/admin/rewards/spawn", rewardService.SpawnReward)
	app.Post("/s/admin/rewards/sweep", rewardService.SweepRewards)
}
