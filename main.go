package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prediction-league-system/handlers"
	"prediction-league-system/models"
	"prediction-league-system/services"
	"prediction-league-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Country{},
		&models.Group{},
		&models.GroupMembership{},
		&models.Location{},
		&models.MatchParticipant{},
		&models.Match{},
		&models.MatchOutcome{},
		&models.MatchPrediction{},
		&models.Favourite{},
		&models.UserMatchPoints{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	app := fiber.New(fiber.Config{
		AppName: "Prediction League API",
	})
	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	scoreService := services.NewScoreService(db)
	matchService := services.NewMatchService(db, scoreService)
	predictionService := services.NewPredictionService(db)
	favouriteService := services.NewFavouriteService(db)

	handlers.SetupLeagueRoutes(app, db, matchService, predictionService, favouriteService, scoreService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional: pull outcomes from an external results feed instead of
	// waiting for an admin to type them in.
	if resultSync, err := workers.NewResultSyncClient(db, scoreService); err != nil {
		log.Printf("Results feed polling disabled: %v", err)
	} else {
		go workers.PollResults(ctx, resultSync, 60*time.Second)
		log.Println("✅ Results feed polling running (every 60s)")
	}

	scoreService.StartRecalcScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()
	log.Printf("✅ Server running on http://localhost:%s", port)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
