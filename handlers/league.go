package handlers

import (
	"prediction-league-system/middleware"
	"prediction-league-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupLeagueRoutes wires the whole HTTP surface: public reads, user
// prediction/favourite routes under /s/, and the admin routes under
// /s/admin/.
func SetupLeagueRoutes(
	app *fiber.App,
	db *gorm.DB,
	matchService *services.MatchService,
	predictionService *services.PredictionService,
	favouriteService *services.FavouriteService,
	scoreService *services.ScoreService,
) {
	// Public routes
	app.Get("/countries", matchService.GetAllCountries)
	app.Get("/countries/:slug", matchService.GetCountryBySlug)
	app.Get("/groups", matchService.GetAllGroups)
	app.Get("/matches", matchService.GetAllMatches)
	app.Get("/matches/:id", matchService.GetMatchByID)
	app.Get("/leaderboard", scoreService.GetLeaderboard)
	app.Get("/leaderboard/:user_id/breakdown", scoreService.GetUserBreakdown)

	// Authenticated user routes
	secured := app.Group("/s", middleware.UserContextMiddleware(db))
	secured.Get("/predictions", predictionService.GetMyPredictions)
	secured.Put("/predictions", predictionService.UpsertPrediction)
	secured.Post("/predictions/lucky", predictionService.VeryLuckyPredictions)
	secured.Post("/predictions/:match_id/lucky", predictionService.LuckyPrediction)
	secured.Get("/favourites", favouriteService.GetMyFavourites)
	secured.Put("/favourites", favouriteService.UpsertFavourites)

	// Admin routes
	admin := secured.Group("/admin", middleware.AdminOnlyMiddleware())
	admin.Post("/countries", matchService.CreateCountry)
	admin.Post("/matches", matchService.CreateMatch)
	admin.Put("/matches/:id/outcome", matchService.SetOutcome)
	admin.Post("/recalculate", scoreService.Recalculate)
}
