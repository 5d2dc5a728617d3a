package models

import (
	"time"
)

// User is a league participant. Score is derived data: it always equals the
// sum of the user's UserMatchPoints totals and is rewritten by every
// recalculation, never edited by hand.
type User struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	Login       string  `gorm:"uniqueIndex;not null" json:"login"`
	DisplayName *string `json:"display_name,omitempty"`
	Email       string  `json:"email,omitempty"`
	SlackHandle *string `json:"slack_handle,omitempty"`
	IsAdmin     bool    `gorm:"default:false" json:"is_admin"`

	Score int `gorm:"default:0" json:"score"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
