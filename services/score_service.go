package services

import (
	"fmt"
	"log"
	"sync"

	"prediction-league-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScoreService owns the recalculation pipeline: it joins users x finished
// matches, runs the scoring engine per pair, and upserts the breakdown rows
// plus the derived user scores inside a single transaction.
type ScoreService struct {
	DB *gorm.DB

	// Serializes recompute invocations. An admin double-clicking
	// "recalculate" blocks on the second call instead of interleaving
	// writes with the first.
	recalcMu sync.Mutex
}

func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{DB: db}
}

// scoredMatch is a match joined with its outcome and resolved participants,
// ready for the engine.
type scoredMatch struct {
	ctx     MatchContext
	outcome models.MatchOutcome
}

// RecalculateAll recomputes every UserMatchPoints row and every user score
// from scratch. Idempotent: rerunning it with unchanged inputs rewrites
// identical rows. Matches without an outcome contribute nothing, and any
// stale breakdown rows for such matches are deleted so the sum invariant
// holds.
func (s *ScoreService) RecalculateAll() error {
	s.recalcMu.Lock()
	defer s.recalcMu.Unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		games, err := loadScoredMatches(tx, nil)
		if err != nil {
			return err
		}

		if err := deleteStalePoints(tx, games); err != nil {
			return err
		}

		rows, err := s.computeRows(tx, games, nil)
		if err != nil {
			return err
		}

		if err := upsertPoints(tx, rows); err != nil {
			return err
		}
		return resumUserScores(tx)
	})
}

// RecalculateMatch recomputes the breakdown rows for a single match (the
// incremental path taken after an outcome write), then resums every user's
// score. The full resum is a cheap aggregate and immune to drift, which
// beats incremental arithmetic.
func (s *ScoreService) RecalculateMatch(matchID int) error {
	s.recalcMu.Lock()
	defer s.recalcMu.Unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		games, err := loadScoredMatches(tx, &matchID)
		if err != nil {
			return err
		}

		if len(games) == 0 {
			// Outcome gone (or never written): drop whatever rows the
			// match had so nobody keeps points from a retracted result.
			if err := tx.Where("match_id = ?", matchID).
				Delete(&models.UserMatchPoints{}).Error; err != nil {
				return fmt.Errorf("failed to delete retracted points: %w", err)
			}
			return resumUserScores(tx)
		}

		rows, err := s.computeRows(tx, games, &matchID)
		if err != nil {
			return err
		}

		if err := upsertPoints(tx, rows); err != nil {
			return err
		}
		return resumUserScores(tx)
	})
}

// loadScoredMatches loads matches joined with outcomes and participants.
// Matches without an outcome are skipped here, not in the engine. A non-nil
// matchID restricts the load to that one fixture.
func loadScoredMatches(tx *gorm.DB, matchID *int) ([]scoredMatch, error) {
	q := tx.Preload("HomeParticipant").Preload("AwayParticipant").Preload("Outcome")
	if matchID != nil {
		q = q.Where("id = ?", *matchID)
	}

	var matches []models.Match
	if err := q.Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}

	games := make([]scoredMatch, 0, len(matches))
	for _, m := range matches {
		if m.Outcome == nil {
			continue
		}
		games = append(games, scoredMatch{
			ctx: MatchContext{
				MatchID:       m.ID,
				StageID:       m.StageID,
				Time:          m.Time,
				HomeCountryID: m.HomeParticipant.CountryID,
				AwayCountryID: m.AwayParticipant.CountryID,
			},
			outcome: *m.Outcome,
		})
	}
	return games, nil
}

// computeRows builds the full (user, finished match) cross product and runs
// the engine over it. A non-nil matchID limits the prediction load to that
// match on the incremental path.
func (s *ScoreService) computeRows(tx *gorm.DB, games []scoredMatch, matchID *int) ([]models.UserMatchPoints, error) {
	var users []models.User
	if err := tx.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	predQuery := tx.Model(&models.MatchPrediction{})
	if matchID != nil {
		predQuery = predQuery.Where("match_id = ?", *matchID)
	}
	var predictions []models.MatchPrediction
	if err := predQuery.Find(&predictions).Error; err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}

	var favourites []models.Favourite
	if err := tx.Find(&favourites).Error; err != nil {
		return nil, fmt.Errorf("failed to load favourites: %w", err)
	}

	type userMatch struct {
		userID  string
		matchID int
	}
	predsByUserMatch := make(map[userMatch]models.MatchPrediction, len(predictions))
	for _, p := range predictions {
		predsByUserMatch[userMatch{p.UserID, p.MatchID}] = p
	}
	favsByUser := make(map[string][]models.Favourite)
	for _, f := range favourites {
		favsByUser[f.UserID] = append(favsByUser[f.UserID], f)
	}

	rows := make([]models.UserMatchPoints, 0, len(users)*len(games))
	for _, user := range users {
		for _, game := range games {
			var pred *models.MatchPrediction
			if p, ok := predsByUserMatch[userMatch{user.ID, game.ctx.MatchID}]; ok {
				pred = &p
			}
			row, err := ComputeUserMatchPoints(user.ID, favsByUser[user.ID], pred, game.ctx, game.outcome)
			if err != nil {
				// Typically ErrInvalidStage. Abort the whole transaction
				// rather than skipping the row.
				return nil, fmt.Errorf("scoring user %s match %d: %w", user.ID, game.ctx.MatchID, err)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// upsertPoints bulk-writes breakdown rows: insert on first computation,
// overwrite all four point columns on recompute.
func upsertPoints(tx *gorm.DB, rows []models.UserMatchPoints) error {
	if len(rows) == 0 {
		return nil
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "match_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"favourites",
			"prediction",
			"time_of_first_goal",
			"total",
		}),
	}).CreateInBatches(&rows, 500).Error
	if err != nil {
		return fmt.Errorf("failed to upsert match points: %w", err)
	}
	return nil
}

// deleteStalePoints removes breakdown rows for matches that no longer have
// an outcome, e.g. an admin retracted a result. Without this the sum
// invariant would silently keep counting phantom points.
func deleteStalePoints(tx *gorm.DB, games []scoredMatch) error {
	ids := make([]int, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.ctx.MatchID)
	}

	q := tx.Model(&models.UserMatchPoints{})
	if len(ids) > 0 {
		q = q.Where("match_id NOT IN ?", ids)
	} else {
		// No finished matches means no row may survive. GORM refuses a
		// bare delete, so spell the condition out.
		q = q.Where("1 = 1")
	}
	if err := q.Delete(&models.UserMatchPoints{}).Error; err != nil {
		return fmt.Errorf("failed to delete stale points: %w", err)
	}
	return nil
}

// resumUserScores rewrites every user's aggregate score as the sum of their
// breakdown rows. Runs after all breakdown writes in the same transaction so
// a reader never sees a score reflecting only some matches.
func resumUserScores(tx *gorm.DB) error {
	err := tx.Exec(`UPDATE users SET score = COALESCE(
		(SELECT SUM(ump.total) FROM user_match_points ump WHERE ump.user_id = users.id), 0)`).Error
	if err != nil {
		return fmt.Errorf("failed to resum user scores: %w", err)
	}
	return nil
}

// --- HTTP surface ---

// Recalculate is the admin trigger for a full recompute.
func (s *ScoreService) Recalculate(c *fiber.Ctx) error {
	if err := s.RecalculateAll(); err != nil {
		log.Printf("ERROR full recalculation failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "recalculation failed", "details": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "scores recalculated"})
}

// GetLeaderboard returns all users ordered by score (ties broken by login so
// the ordering is stable).
func (s *ScoreService) GetLeaderboard(c *fiber.Ctx) error {
	type entry struct {
		UserID      string  `json:"user_id"`
		Login       string  `json:"login"`
		DisplayName *string `json:"display_name,omitempty"`
		Score       int     `json:"score"`
	}
	var entries []entry
	err := s.DB.Model(&models.User{}).
		Select("id AS user_id, login, display_name, score").
		Order("score DESC, login ASC").
		Scan(&entries).Error
	if err != nil {
		log.Printf("ERROR fetching leaderboard: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}
	return c.JSON(entries)
}

// GetUserBreakdown returns one user's per-match point rows, the detail view
// behind a leaderboard entry.
func (s *ScoreService) GetUserBreakdown(c *fiber.Ctx) error {
	userID := c.Params("user_id")

	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var rows []models.UserMatchPoints
	if err := s.DB.Where("user_id = ?", userID).
		Order("match_id ASC").
		Find(&rows).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch breakdown"})
	}

	return c.JSON(fiber.Map{
		"user_id":   user.ID,
		"login":     user.Login,
		"score":     user.Score,
		"breakdown": rows,
	})
}
