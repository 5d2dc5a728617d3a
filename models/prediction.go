package models

import (
	"time"
)

// Prediction sources.
const (
	PredictionSourceManual = "manual"
	PredictionSourceLucky  = "lucky"
)

// MatchPrediction is one user's forecast for one match, unique per
// (user, match). Mutable by the owner until kickoff; the scoring engine
// additionally zeroes anything whose UpdatedAt is at or past kickoff, so a
// row smuggled in late can never score.
type MatchPrediction struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"uniqueIndex:idx_prediction_user_match;not null" json:"user_id"`
	MatchID int    `gorm:"uniqueIndex:idx_prediction_user_match;not null" json:"match_id"`

	HomeScore       int `gorm:"not null" json:"home_score"`
	AwayScore       int `gorm:"not null" json:"away_score"`
	TimeOfFirstGoal int `gorm:"not null" json:"time_of_first_goal"` // 0 = no goal predicted

	// Knockout-only fields; nil for group-stage predictions.
	HomePenalties *int `json:"home_penalties,omitempty"`
	AwayPenalties *int `json:"away_penalties,omitempty"`
	Duration      *int `json:"duration,omitempty"` // 90 or 120

	Source string `gorm:"type:varchar(16);default:'manual'" json:"source"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Favourite phases. Group favourites score group matches only, and so on.
const (
	PhaseGroup    = 0
	PhaseKnockout = 1
	PhaseFinal    = 2
)

// Favourite is a user's pre-committed pick of a country for one phase of the
// tournament. Phase 0 and 1 have four slots each, phase 2 a single finalist
// pick; unique per (user, phase, choice). CountryID nil means the slot was
// left blank.
type Favourite struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string `gorm:"uniqueIndex:idx_favourite_user_phase_choice;not null" json:"user_id"`
	Phase     int    `gorm:"uniqueIndex:idx_favourite_user_phase_choice;not null" json:"phase"`
	Choice    int    `gorm:"uniqueIndex:idx_favourite_user_phase_choice;not null" json:"choice"`
	CountryID *int   `json:"country_id,omitempty"`

	Source string `gorm:"type:varchar(16);default:'manual'" json:"source"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// FavouriteSlots returns how many favourite choices a phase allows.
func FavouriteSlots(phase int) int {
	if phase == PhaseFinal {
		return 1
	}
	return 4
}
