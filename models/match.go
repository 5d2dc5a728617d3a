package models

import (
	"time"
)

// Stage identifiers as used throughout scoring. Stage 1 is the group stage,
// 2-3 are the early knockout rounds, 4-6 are quarter-final and later
// (stage 5 is the final itself, 6 the third-place playoff).
const (
	StageGroup        = 1
	StageRoundOf16    = 2
	StageQuarterFinal = 3
	StageSemiFinal    = 4
	StageFinal        = 5
	StageThirdPlace   = 6
)

// MatchParticipant is one side of a fixture. CountryID is nil until the slot
// resolves — knockout fixtures are created as "winner of group A" or
// "winner of match 52" long before the country is known.
type MatchParticipant struct {
	ID        int  `gorm:"primaryKey" json:"id"`
	CountryID *int `gorm:"index" json:"country_id,omitempty"`
	StageID   int  `gorm:"not null" json:"stage_id"`

	// Exactly one of these describes where the participant comes from.
	GroupID         *int    `json:"group_id,omitempty"`
	GroupDrawnPlace *int    `json:"group_drawn_place,omitempty"`
	PreviousMatchID *int    `json:"previous_match_id,omitempty"`
	Result          *string `json:"result,omitempty"` // "winner" or "loser" of PreviousMatchID

	Country *Country `json:"country,omitempty" gorm:"foreignKey:CountryID"`
}

// Match is a single fixture. The primary key is the fixture number from the
// official schedule, so the group stage occupies IDs 1-48. Immutable once
// created except through the admin endpoints.
type Match struct {
	ID                int       `gorm:"primaryKey" json:"id"`
	StageID           int       `gorm:"not null;index" json:"stage_id"`
	LocationID        *int      `json:"location_id,omitempty"`
	HomeParticipantID int       `gorm:"not null" json:"home_participant_id"`
	AwayParticipantID int       `gorm:"not null" json:"away_participant_id"`
	Time              time.Time `gorm:"not null;index" json:"time"`

	Location        *Location        `json:"location,omitempty" gorm:"foreignKey:LocationID"`
	HomeParticipant MatchParticipant `json:"home_participant" gorm:"foreignKey:HomeParticipantID"`
	AwayParticipant MatchParticipant `json:"away_participant" gorm:"foreignKey:AwayParticipantID"`
	Outcome         *MatchOutcome    `json:"outcome,omitempty" gorm:"foreignKey:MatchID"`
}

// MatchOutcome is the authoritative result, written only by admins (or the
// result sync worker). TimeOfFirstGoal of 0 means no goal was scored.
// Penalties and Duration are only present for knockout matches that needed
// them; every write must trigger a recalculation.
type MatchOutcome struct {
	MatchID int `gorm:"primaryKey" json:"match_id"`

	HomeScore       int `gorm:"not null" json:"home_score"`
	AwayScore       int `gorm:"not null" json:"away_score"`
	TimeOfFirstGoal int `gorm:"not null" json:"time_of_first_goal"`

	HomePenalties *int `json:"home_penalties,omitempty"`
	AwayPenalties *int `json:"away_penalties,omitempty"`
	Duration      *int `json:"duration,omitempty"` // 90 or 120, nil means 90

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
