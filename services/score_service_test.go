package services

import (
	"fmt"
	"testing"
	"time"

	"prediction-league-system/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testDBCounter++
	dsn := fmt.Sprintf("file:scoretest%d?mode=memory&cache=shared", testDBCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
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
	))
	return db
}

// seedLeague sets up two users, two countries and two group matches. Match 1
// finished 2-1 with the first goal on minute 13; match 2 has no outcome yet.
// Alice predicted 2-1 (first goal minute 10) and holds the home country as a
// group favourite; Bob predicted an 0-2 away win.
func seedLeague(t *testing.T, db *gorm.DB) (alice, bob models.User) {
	t.Helper()

	kick := time.Date(2026, 6, 14, 18, 0, 0, 0, time.UTC)
	before := kick.Add(-48 * time.Hour)

	alice = models.User{ID: "11111111-1111-1111-1111-111111111111", Login: "alice"}
	bob = models.User{ID: "22222222-2222-2222-2222-222222222222", Login: "bob"}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)

	home := models.Country{ID: 10, Name: "Norway", Slug: "norway"}
	away := models.Country{ID: 20, Name: "Brazil", Slug: "brazil"}
	require.NoError(t, db.Create(&home).Error)
	require.NoError(t, db.Create(&away).Error)

	for i, m := range []models.Match{
		{ID: 1, StageID: models.StageGroup, Time: kick},
		{ID: 2, StageID: models.StageGroup, Time: kick.Add(3 * time.Hour)},
	} {
		hp := models.MatchParticipant{ID: i*2 + 1, CountryID: intPtr(10), StageID: m.StageID}
		ap := models.MatchParticipant{ID: i*2 + 2, CountryID: intPtr(20), StageID: m.StageID}
		require.NoError(t, db.Create(&hp).Error)
		require.NoError(t, db.Create(&ap).Error)
		m.HomeParticipantID = hp.ID
		m.AwayParticipantID = ap.ID
		require.NoError(t, db.Create(&m).Error)
	}

	require.NoError(t, db.Create(&models.MatchOutcome{
		MatchID: 1, HomeScore: 2, AwayScore: 1, TimeOfFirstGoal: 13,
	}).Error)

	require.NoError(t, db.Create(&models.MatchPrediction{
		ID: "aaaaaaaa-0000-0000-0000-000000000001", UserID: alice.ID, MatchID: 1,
		HomeScore: 2, AwayScore: 1, TimeOfFirstGoal: 10,
		Source: models.PredictionSourceManual, UpdatedAt: before,
	}).Error)
	require.NoError(t, db.Create(&models.MatchPrediction{
		ID: "bbbbbbbb-0000-0000-0000-000000000001", UserID: bob.ID, MatchID: 1,
		HomeScore: 0, AwayScore: 2, TimeOfFirstGoal: 30,
		Source: models.PredictionSourceManual, UpdatedAt: before,
	}).Error)

	require.NoError(t, db.Create(&models.Favourite{
		ID: "aaaaaaaa-ffff-0000-0000-000000000001", UserID: alice.ID,
		Phase: models.PhaseGroup, Choice: 1, CountryID: intPtr(10), UpdatedAt: before,
	}).Error)

	return alice, bob
}

func loadPoints(t *testing.T, db *gorm.DB) []models.UserMatchPoints {
	t.Helper()
	var rows []models.UserMatchPoints
	require.NoError(t, db.Order("user_id, match_id").Find(&rows).Error)
	return rows
}

func loadScore(t *testing.T, db *gorm.DB, userID string) int {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, "id = ?", userID).Error)
	return user.Score
}

func TestRecalculateAll(t *testing.T) {
	db := newTestDB(t)
	alice, bob := seedLeague(t, db)

	svc := NewScoreService(db)
	require.NoError(t, svc.RecalculateAll())

	rows := loadPoints(t, db)
	require.Len(t, rows, 2, "one row per user for the single finished match")

	// Alice: exact 2-1 → prediction 7; minute 10 vs 13 → 2; favourite on
	// the winning home side → 2 goals + 3 = 5.
	assert.Equal(t, models.UserMatchPoints{
		UserID: alice.ID, MatchID: 1,
		Favourites: 5, Prediction: 7, TimeOfFirstGoal: 2, Total: 14,
	}, rows[0])

	// Bob: wrong winner, neither score exact, no favourites.
	assert.Equal(t, models.UserMatchPoints{
		UserID: bob.ID, MatchID: 1,
		Favourites: 0, Prediction: 0, TimeOfFirstGoal: 0, Total: 0,
	}, rows[1])

	assert.Equal(t, 14, loadScore(t, db, alice.ID))
	assert.Equal(t, 0, loadScore(t, db, bob.ID))
}

func TestRecalculateAllBeforeAnyResult(t *testing.T) {
	db := newTestDB(t)
	alice, bob := seedLeague(t, db)

	// Season start: fixtures and predictions exist but no result is in yet.
	require.NoError(t, db.Delete(&models.MatchOutcome{}, "match_id = ?", 1).Error)

	svc := NewScoreService(db)
	require.NoError(t, svc.RecalculateAll())

	assert.Empty(t, loadPoints(t, db))
	assert.Zero(t, loadScore(t, db, alice.ID))
	assert.Zero(t, loadScore(t, db, bob.ID))
}

func TestRecalculateAllIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	alice, _ := seedLeague(t, db)

	svc := NewScoreService(db)
	require.NoError(t, svc.RecalculateAll())
	first := loadPoints(t, db)
	firstScore := loadScore(t, db, alice.ID)

	require.NoError(t, svc.RecalculateAll())
	assert.Equal(t, first, loadPoints(t, db))
	assert.Equal(t, firstScore, loadScore(t, db, alice.ID))
}

func TestScoreEqualsSumOfBreakdown(t *testing.T) {
	db := newTestDB(t)
	seedLeague(t, db)

	// Finish the second match too so users have multiple rows.
	require.NoError(t, db.Create(&models.MatchOutcome{
		MatchID: 2, HomeScore: 1, AwayScore: 1, TimeOfFirstGoal: 55,
	}).Error)

	svc := NewScoreService(db)
	require.NoError(t, svc.RecalculateAll())

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, user := range users {
		var sum int
		require.NoError(t, db.Model(&models.UserMatchPoints{}).
			Where("user_id = ?", user.ID).
			Select("COALESCE(SUM(total), 0)").
			Scan(&sum).Error)
		assert.Equal(t, sum, user.Score, "user %s", user.Login)
	}
}

func TestStaleRowsForOutcomelessMatchesAreDeleted(t *testing.T) {
	db := newTestDB(t)
	alice, _ := seedLeague(t, db)

	// A leftover row for match 2, which has no outcome — from some earlier
	// erroneous write.
	require.NoError(t, db.Create(&models.UserMatchPoints{
		UserID: alice.ID, MatchID: 2,
		Favourites: 9, Prediction: 9, TimeOfFirstGoal: 9, Total: 27,
	}).Error)

	svc := NewScoreService(db)
	require.NoError(t, svc.RecalculateAll())

	rows := loadPoints(t, db)
	for _, row := range rows {
		assert.NotEqual(t, 2, row.MatchID, "match without outcome must have no rows")
	}
	assert.Equal(t, 14, loadScore(t, db, alice.ID), "phantom points must not survive")
}

func TestRecalculateMatchIncremental(t *testing.T) {
	db := newTestDB(t)
	alice, bob := seedLeague(t, db)

	svc := NewScoreService(db)
	require.NoError(t, svc.RecalculateAll())
	require.Equal(t, 14, loadScore(t, db, alice.ID))

	// Match 2 finishes 1-1; Alice's home favourite picks up 1 goal + draw.
	require.NoError(t, db.Create(&models.MatchOutcome{
		MatchID: 2, HomeScore: 1, AwayScore: 1, TimeOfFirstGoal: 55,
	}).Error)
	require.NoError(t, svc.RecalculateMatch(2))

	rows := loadPoints(t, db)
	require.Len(t, rows, 4)
	assert.Equal(t, 16, loadScore(t, db, alice.ID))
	assert.Equal(t, 0, loadScore(t, db, bob.ID))
}

func TestRecalculateMatchRetractedOutcome(t *testing.T) {
	db := newTestDB(t)
	alice, _ := seedLeague(t, db)

	svc := NewScoreService(db)
	require.NoError(t, svc.RecalculateAll())
	require.Equal(t, 14, loadScore(t, db, alice.ID))

	// The admin retracts the result entirely.
	require.NoError(t, db.Delete(&models.MatchOutcome{}, "match_id = ?", 1).Error)
	require.NoError(t, svc.RecalculateMatch(1))

	assert.Empty(t, loadPoints(t, db))
	assert.Equal(t, 0, loadScore(t, db, alice.ID))
}

func TestInvalidStageRollsBackEverything(t *testing.T) {
	db := newTestDB(t)
	seedLeague(t, db)

	// A corrupted fixture with an unknown stage and an outcome.
	hp := models.MatchParticipant{ID: 90, CountryID: intPtr(10), StageID: 9}
	ap := models.MatchParticipant{ID: 91, CountryID: intPtr(20), StageID: 9}
	require.NoError(t, db.Create(&hp).Error)
	require.NoError(t, db.Create(&ap).Error)
	require.NoError(t, db.Create(&models.Match{
		ID: 99, StageID: 9, HomeParticipantID: hp.ID, AwayParticipantID: ap.ID,
		Time: time.Date(2026, 7, 1, 20, 0, 0, 0, time.UTC),
	}).Error)
	require.NoError(t, db.Create(&models.MatchOutcome{
		MatchID: 99, HomeScore: 1, AwayScore: 0, TimeOfFirstGoal: 5,
	}).Error)

	svc := NewScoreService(db)
	err := svc.RecalculateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStage)

	// Nothing was committed: no rows, no scores.
	assert.Empty(t, loadPoints(t, db))
	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, user := range users {
		assert.Zero(t, user.Score)
	}
}

func TestLatePredictionScoresZeroButRowExists(t *testing.T) {
	db := newTestDB(t)
	_, bob := seedLeague(t, db)

	// Bob's prediction was administratively restored after kickoff; it must
	// produce a zero row, not be skipped.
	require.NoError(t, db.Model(&models.MatchPrediction{}).
		Where("user_id = ? AND match_id = ?", bob.ID, 1).
		Update("updated_at", time.Date(2026, 6, 14, 19, 0, 0, 0, time.UTC)).Error)

	svc := NewScoreService(db)
	require.NoError(t, svc.RecalculateAll())

	var row models.UserMatchPoints
	require.NoError(t, db.First(&row, "user_id = ? AND match_id = ?", bob.ID, 1).Error)
	assert.Zero(t, row.Total)
}
