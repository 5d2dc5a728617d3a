package models

// UserMatchPoints is the persisted scoring breakdown for one user against one
// match. It is a materialized cache: fully re-derivable from the prediction,
// outcome and favourites at any time, and overwritten wholesale on every
// recalculation (upsert keyed on user_id + match_id).
type UserMatchPoints struct {
	UserID  string `gorm:"primaryKey;type:uuid" json:"user_id"`
	MatchID int    `gorm:"primaryKey" json:"match_id"`

	Favourites      int `gorm:"not null" json:"favourites"`
	Prediction      int `gorm:"not null" json:"prediction"`
	TimeOfFirstGoal int `gorm:"not null" json:"time_of_first_goal"`
	Total           int `gorm:"not null" json:"total"`
}
