package services

import (
	"fmt"
	"log"
	"time"

	"prediction-league-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavouriteService manages per-phase favourite country picks.
type FavouriteService struct {
	DB *gorm.DB
}

func NewFavouriteService(db *gorm.DB) *FavouriteService {
	return &FavouriteService{DB: db}
}

// GetMyFavourites lists the requesting user's picks ordered by phase and
// slot.
func (s *FavouriteService) GetMyFavourites(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var favs []models.Favourite
	if err := s.DB.Where("user_id = ?", userID).
		Order("phase ASC, choice ASC").
		Find(&favs).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch favourites"})
	}
	return c.JSON(favs)
}

// UpsertFavourites replaces the user's picks for one phase. Slots may be
// left nil. Every write bumps UpdatedAt, which is exactly what the scoring
// cutoff keys on: a pick changed after a match kicked off scores nothing for
// that match.
func (s *FavouriteService) UpsertFavourites(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	type Req struct {
		Phase      int    `json:"phase"`
		CountryIDs []*int `json:"country_ids"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Phase < models.PhaseGroup || req.Phase > models.PhaseFinal {
		return c.Status(400).JSON(fiber.Map{"error": "phase must be 0, 1 or 2"})
	}
	slots := models.FavouriteSlots(req.Phase)
	if len(req.CountryIDs) > slots {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("phase %d allows at most %d favourites", req.Phase, slots),
		})
	}

	// Validate the referenced countries exist.
	for _, id := range req.CountryIDs {
		if id == nil {
			continue
		}
		var country models.Country
		if err := s.DB.First(&country, "id = ?", *id).Error; err != nil {
			return c.Status(400).JSON(fiber.Map{"error": fmt.Sprintf("country %d not found", *id)})
		}
	}

	now := time.Now()
	var saved []models.Favourite
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for i, countryID := range req.CountryIDs {
			fav := models.Favourite{
				ID:        uuid.NewString(),
				UserID:    userID,
				Phase:     req.Phase,
				Choice:    i + 1,
				CountryID: countryID,
				Source:    models.PredictionSourceManual,
				UpdatedAt: now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "phase"}, {Name: "choice"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"country_id",
					"source",
					"updated_at",
				}),
			}).Create(&fav).Error
			if err != nil {
				return err
			}
			saved = append(saved, fav)
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR upserting favourites for user %s phase %d: %v", userID, req.Phase, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to save favourites"})
	}
	return c.Status(201).JSON(saved)
}
