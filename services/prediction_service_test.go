package services

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"prediction-league-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPredictionApp(db *gorm.DB, userID string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	})
	svc := NewPredictionService(db)
	app.Put("/predictions", svc.UpsertPrediction)
	return app
}

func putPrediction(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("PUT", "/predictions", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

// seedUpcomingMatches creates one group and one semi-final fixture kicking
// off tomorrow, so the cutoff check passes.
func seedUpcomingMatches(t *testing.T, db *gorm.DB) {
	t.Helper()
	kick := time.Now().Add(24 * time.Hour)

	for i, m := range []models.Match{
		{ID: 1, StageID: models.StageGroup, Time: kick},
		{ID: 61, StageID: models.StageSemiFinal, Time: kick},
	} {
		hp := models.MatchParticipant{ID: i*2 + 101, StageID: m.StageID}
		ap := models.MatchParticipant{ID: i*2 + 102, StageID: m.StageID}
		require.NoError(t, db.Create(&hp).Error)
		require.NoError(t, db.Create(&ap).Error)
		m.HomeParticipantID = hp.ID
		m.AwayParticipantID = ap.ID
		require.NoError(t, db.Create(&m).Error)
	}
}

func TestUpsertPredictionKnockoutRequiresDuration(t *testing.T) {
	db := newTestDB(t)
	seedUpcomingMatches(t, db)
	user := models.User{ID: "33333333-3333-3333-3333-333333333333", Login: "carol"}
	require.NoError(t, db.Create(&user).Error)
	app := newPredictionApp(db, user.ID)

	// Knockout without a duration is an incomplete form.
	resp := putPrediction(t, app, `{"match_id":61,"home_score":2,"away_score":1,"time_of_first_goal":20}`)
	assert.Equal(t, 400, resp.StatusCode)

	// With a duration it goes through.
	resp = putPrediction(t, app, `{"match_id":61,"home_score":2,"away_score":1,"time_of_first_goal":20,"duration":120}`)
	assert.Equal(t, 201, resp.StatusCode)

	// Group matches never ask for one.
	resp = putPrediction(t, app, `{"match_id":1,"home_score":2,"away_score":1,"time_of_first_goal":20}`)
	assert.Equal(t, 201, resp.StatusCode)
}

func TestUpsertPredictionDrawnKnockoutRequiresPenalties(t *testing.T) {
	db := newTestDB(t)
	seedUpcomingMatches(t, db)
	user := models.User{ID: "33333333-3333-3333-3333-333333333333", Login: "carol"}
	require.NoError(t, db.Create(&user).Error)
	app := newPredictionApp(db, user.ID)

	resp := putPrediction(t, app, `{"match_id":61,"home_score":1,"away_score":1,"time_of_first_goal":20,"duration":120}`)
	assert.Equal(t, 400, resp.StatusCode)

	resp = putPrediction(t, app, `{"match_id":61,"home_score":1,"away_score":1,"time_of_first_goal":20,"duration":120,"home_penalties":5,"away_penalties":4}`)
	assert.Equal(t, 201, resp.StatusCode)

	var pred models.MatchPrediction
	require.NoError(t, db.First(&pred, "user_id = ? AND match_id = ?", user.ID, 61).Error)
	require.NotNil(t, pred.HomePenalties)
	assert.Equal(t, 5, *pred.HomePenalties)
}
