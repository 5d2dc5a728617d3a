package services

import (
	"errors"
	"log"
	"math/rand"
	"time"

	"prediction-league-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PredictionService handles user score predictions, including the "I feel
// lucky" random generator.
type PredictionService struct {
	DB *gorm.DB
}

func NewPredictionService(db *gorm.DB) *PredictionService {
	return &PredictionService{DB: db}
}

// goalPossibilities is the weighted distribution the lucky generator draws
// goals from: mostly 0-2, the odd thrashing.
var goalPossibilities = [25]int{
	0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 4, 4, 5, 6, 7,
}

// generateRandomPrediction rolls a plausible random forecast for one match.
// Knockout fixtures that come up drawn also get penalties and extra time;
// decided ones just get a coin-flipped duration.
func generateRandomPrediction(rng *rand.Rand, userID string, match models.Match) models.MatchPrediction {
	homeScore := goalPossibilities[rng.Intn(len(goalPossibilities))]
	awayScore := goalPossibilities[rng.Intn(len(goalPossibilities))]

	timeOfFirstGoal := 0
	if homeScore > 0 || awayScore > 0 {
		timeOfFirstGoal = rng.Intn(90)
	}

	pred := models.MatchPrediction{
		ID:      uuid.NewString(),
		UserID:  userID,
		MatchID: match.ID,

		HomeScore:       homeScore,
		AwayScore:       awayScore,
		TimeOfFirstGoal: timeOfFirstGoal,

		Source: models.PredictionSourceLucky,
	}

	if match.StageID == models.StageGroup {
		return pred
	}

	if homeScore == awayScore {
		home := rng.Intn(10)
		var away int
		if home < 5 {
			away = 5
		} else if rng.Intn(2) == 0 {
			away = home + 1
		} else {
			away = home - 1
		}
		extraTime := 120
		pred.HomePenalties = &home
		pred.AwayPenalties = &away
		pred.Duration = &extraTime
	} else {
		duration := regularDuration
		if rng.Intn(2) == 0 {
			duration = 120
		}
		pred.Duration = &duration
	}
	return pred
}

// upsertPrediction writes a prediction keyed on (user_id, match_id),
// overwriting scores, penalties, duration and source on conflict.
func upsertPrediction(tx *gorm.DB, pred models.MatchPrediction) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "match_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"home_score",
			"away_score",
			"time_of_first_goal",
			"home_penalties",
			"away_penalties",
			"duration",
			"source",
			"updated_at",
		}),
	}).Create(&pred).Error
}

// GetMyPredictions lists the requesting user's predictions.
func (s *PredictionService) GetMyPredictions(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var preds []models.MatchPrediction
	if err := s.DB.Where("user_id = ?", userID).
		Order("match_id ASC").
		Find(&preds).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch predictions"})
	}
	return c.JSON(preds)
}

// UpsertPrediction stores or replaces the user's forecast for one match.
// Rejected once the match has kicked off — and even if a late row slipped in
// through some other path, the scoring engine would award it nothing.
func (s *PredictionService) UpsertPrediction(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	type Req struct {
		MatchID         int    `json:"match_id"`
		HomeScore       int    `json:"home_score"`
		AwayScore       int    `json:"away_score"`
		TimeOfFirstGoal int    `json:"time_of_first_goal"`
		HomePenalties   *int   `json:"home_penalties,omitempty"`
		AwayPenalties   *int   `json:"away_penalties,omitempty"`
		Duration        *int   `json:"duration,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.HomeScore < 0 || req.AwayScore < 0 || req.TimeOfFirstGoal < 0 || req.TimeOfFirstGoal > 120 {
		return c.Status(400).JSON(fiber.Map{"error": "scores must be non-negative and time_of_first_goal within 0-120"})
	}
	if req.Duration != nil && *req.Duration != 90 && *req.Duration != 120 {
		return c.Status(400).JSON(fiber.Map{"error": "duration must be 90 or 120"})
	}

	var match models.Match
	if err := s.DB.First(&match, "id = ?", req.MatchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "match not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if !time.Now().Before(match.Time) {
		return c.Status(403).JSON(fiber.Map{"error": "match has kicked off, predictions are closed"})
	}

	// Knockout fixtures need the extra fields: a duration always, the
	// tie-breakers when the scores draw.
	if match.StageID != models.StageGroup {
		if req.Duration == nil {
			return c.Status(400).JSON(fiber.Map{"error": "a knockout prediction needs a duration (90 or 120)"})
		}
		if req.HomeScore == req.AwayScore && (req.HomePenalties == nil || req.AwayPenalties == nil) {
			return c.Status(400).JSON(fiber.Map{"error": "a drawn knockout prediction needs home_penalties and away_penalties"})
		}
	}

	pred := models.MatchPrediction{
		ID:      uuid.NewString(),
		UserID:  userID,
		MatchID: req.MatchID,

		HomeScore:       req.HomeScore,
		AwayScore:       req.AwayScore,
		TimeOfFirstGoal: req.TimeOfFirstGoal,

		HomePenalties: req.HomePenalties,
		AwayPenalties: req.AwayPenalties,
		Duration:      req.Duration,

		Source: models.PredictionSourceManual,
	}
	if err := upsertPrediction(s.DB, pred); err != nil {
		log.Printf("ERROR upserting prediction for user %s match %d: %v", userID, req.MatchID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to save prediction"})
	}
	return c.Status(201).JSON(pred)
}

// LuckyPrediction rolls a random forecast for a single upcoming match.
func (s *PredictionService) LuckyPrediction(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	matchID, err := c.ParamsInt("match_id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid match_id"})
	}

	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "match not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if !time.Now().Before(match.Time) {
		return c.Status(403).JSON(fiber.Map{"error": "match has kicked off, predictions are closed"})
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pred := generateRandomPrediction(rng, userID, match)
	if err := upsertPrediction(s.DB, pred); err != nil {
		log.Printf("ERROR lucky prediction for user %s match %d: %v", userID, matchID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to save prediction"})
	}
	return c.Status(201).JSON(pred)
}

// VeryLuckyPredictions fills every upcoming match the user hasn't predicted
// manually: empty slots and earlier lucky rolls get a fresh random forecast,
// hand-entered predictions are left alone.
func (s *PredictionService) VeryLuckyPredictions(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var matches []models.Match
	if err := s.DB.Where("time > ?", time.Now()).Find(&matches).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch matches"})
	}

	var manual []models.MatchPrediction
	if err := s.DB.Where("user_id = ? AND source = ?", userID, models.PredictionSourceManual).
		Find(&manual).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch predictions"})
	}
	manualByMatch := make(map[int]bool, len(manual))
	for _, p := range manual {
		manualByMatch[p.MatchID] = true
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	created := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, match := range matches {
			if manualByMatch[match.ID] {
				continue
			}
			if err := upsertPrediction(tx, generateRandomPrediction(rng, userID, match)); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR very lucky predictions for user %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to save predictions"})
	}
	return c.JSON(fiber.Map{"message": "lucky predictions rolled", "count": created})
}
