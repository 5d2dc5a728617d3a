package services

import (
	"errors"
	"log"
	"time"

	"prediction-league-system/models"
	"prediction-league-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchService handles fixtures, countries and groups, plus the admin
// outcome endpoint that feeds the recalculation pipeline.
type MatchService struct {
	DB     *gorm.DB
	Scores *ScoreService
}

func NewMatchService(db *gorm.DB, scores *ScoreService) *MatchService {
	return &MatchService{DB: db, Scores: scores}
}

// GetAllMatches lists fixtures with participants, locations and any
// outcomes, in schedule order.
func (s *MatchService) GetAllMatches(c *fiber.Ctx) error {
	var matches []models.Match
	err := s.DB.
		Preload("HomeParticipant.Country").
		Preload("AwayParticipant.Country").
		Preload("Location").
		Preload("Outcome").
		Order("time ASC, id ASC").
		Find(&matches).Error
	if err != nil {
		log.Printf("ERROR fetching matches: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch matches"})
	}
	return c.JSON(matches)
}

// GetMatchByID returns a single fixture with everything preloaded.
func (s *MatchService) GetMatchByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid match id"})
	}

	var match models.Match
	err = s.DB.
		Preload("HomeParticipant.Country").
		Preload("AwayParticipant.Country").
		Preload("Location").
		Preload("Outcome").
		First(&match, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "match not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(match)
}

// CreateMatch registers a fixture together with its two participant slots.
func (s *MatchService) CreateMatch(c *fiber.Ctx) error {
	type participantReq struct {
		CountryID       *int    `json:"country_id,omitempty"`
		GroupID         *int    `json:"group_id,omitempty"`
		GroupDrawnPlace *int    `json:"group_drawn_place,omitempty"`
		PreviousMatchID *int    `json:"previous_match_id,omitempty"`
		Result          *string `json:"result,omitempty"`
	}
	type Req struct {
		MatchID    int            `json:"match_id"`
		StageID    int            `json:"stage_id"`
		LocationID *int           `json:"location_id,omitempty"`
		Time       string         `json:"time"` // RFC3339
		Home       participantReq `json:"home"`
		Away       participantReq `json:"away"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.MatchID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "match_id must be a positive fixture number"})
	}
	// Validate the stage up front so a bad fixture can't poison a later
	// recalculation.
	if _, err := PhaseOf(req.StageID); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "stage_id must be within 1-6"})
	}
	kickoff, err := time.Parse(time.RFC3339, req.Time)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid time (use RFC3339)"})
	}

	match := models.Match{
		ID:         req.MatchID,
		StageID:    req.StageID,
		LocationID: req.LocationID,
		Time:       kickoff,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		home := models.MatchParticipant{
			CountryID:       req.Home.CountryID,
			StageID:         req.StageID,
			GroupID:         req.Home.GroupID,
			GroupDrawnPlace: req.Home.GroupDrawnPlace,
			PreviousMatchID: req.Home.PreviousMatchID,
			Result:          req.Home.Result,
		}
		away := models.MatchParticipant{
			CountryID:       req.Away.CountryID,
			StageID:         req.StageID,
			GroupID:         req.Away.GroupID,
			GroupDrawnPlace: req.Away.GroupDrawnPlace,
			PreviousMatchID: req.Away.PreviousMatchID,
			Result:          req.Away.Result,
		}
		if err := tx.Create(&home).Error; err != nil {
			return err
		}
		if err := tx.Create(&away).Error; err != nil {
			return err
		}
		match.HomeParticipantID = home.ID
		match.AwayParticipantID = away.ID
		return tx.Create(&match).Error
	})
	if err != nil {
		log.Printf("ERROR creating match %d: %v", req.MatchID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create match"})
	}
	return c.Status(201).JSON(match)
}

// SetOutcome writes (or rewrites) a match result and recomputes that match's
// points before responding, so the leaderboard is never served stale.
func (s *MatchService) SetOutcome(c *fiber.Ctx) error {
	matchID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid match id"})
	}

	type Req struct {
		HomeScore       int  `json:"home_score"`
		AwayScore       int  `json:"away_score"`
		TimeOfFirstGoal int  `json:"time_of_first_goal"`
		HomePenalties   *int `json:"home_penalties,omitempty"`
		AwayPenalties   *int `json:"away_penalties,omitempty"`
		Duration        *int `json:"duration,omitempty"`
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
	if (req.HomePenalties == nil) != (req.AwayPenalties == nil) {
		return c.Status(400).JSON(fiber.Map{"error": "penalties must be given for both sides or neither"})
	}

	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "match not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	outcome := models.MatchOutcome{
		MatchID:         matchID,
		HomeScore:       req.HomeScore,
		AwayScore:       req.AwayScore,
		TimeOfFirstGoal: req.TimeOfFirstGoal,
		HomePenalties:   req.HomePenalties,
		AwayPenalties:   req.AwayPenalties,
		Duration:        req.Duration,
	}
	err = s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "match_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"home_score",
			"away_score",
			"time_of_first_goal",
			"home_penalties",
			"away_penalties",
			"duration",
			"updated_at",
		}),
	}).Create(&outcome).Error
	if err != nil {
		log.Printf("ERROR writing outcome for match %d: %v", matchID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to save outcome"})
	}

	if err := s.Scores.RecalculateMatch(matchID); err != nil {
		log.Printf("ERROR recalculating match %d after outcome write: %v", matchID, err)
		return c.Status(500).JSON(fiber.Map{"error": "outcome saved but recalculation failed", "details": err.Error()})
	}
	return c.JSON(outcome)
}

// CreateCountry registers a competing nation. The slug is derived from the
// normalized name and used in public URLs.
func (s *MatchService) CreateCountry(c *fiber.Ctx) error {
	type Req struct {
		Name       string `json:"name"`
		Flag       string `json:"flag"`
		SeedingPot string `json:"seeding_pot"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}

	name := utils.NormalizeCountryName(req.Name)
	country := models.Country{
		Name:       name,
		Slug:       slug.Make(name),
		Flag:       req.Flag,
		SeedingPot: req.SeedingPot,
	}
	if err := s.DB.Create(&country).Error; err != nil {
		log.Printf("ERROR creating country %q: %v", name, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create country"})
	}
	return c.Status(201).JSON(country)
}

// GetAllCountries lists the competing nations.
func (s *MatchService) GetAllCountries(c *fiber.Ctx) error {
	var countries []models.Country
	if err := s.DB.Order("name ASC").Find(&countries).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch countries"})
	}
	return c.JSON(countries)
}

// GetCountryBySlug resolves a country from its URL slug.
func (s *MatchService) GetCountryBySlug(c *fiber.Ctx) error {
	var country models.Country
	if err := s.DB.First(&country, "slug = ?", c.Params("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "country not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(country)
}

// GetAllGroups lists the group-stage pools with their members.
func (s *MatchService) GetAllGroups(c *fiber.Ctx) error {
	var groups []models.Group
	err := s.DB.
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("current_position ASC")
		}).
		Preload("Members.Country").
		Order("name ASC").
		Find(&groups).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch groups"})
	}
	return c.JSON(groups)
}
