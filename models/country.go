package models

// Country is one of the tournament's competing nations.
type Country struct {
	ID         int    `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"not null" json:"name"`
	Slug       string `gorm:"uniqueIndex;not null" json:"slug"`
	Flag       string `json:"flag"`
	SeedingPot string `json:"seeding_pot,omitempty"`
}

// Group is a group-stage pool (A through H).
type Group struct {
	ID   int    `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null" json:"name"`

	Members []GroupMembership `json:"members,omitempty" gorm:"foreignKey:GroupID"`
}

// GroupMembership places a country in a group. DrawnPlace is the seeding
// position from the draw; CurrentPosition tracks the live group table.
type GroupMembership struct {
	CountryID       int `gorm:"primaryKey" json:"country_id"`
	GroupID         int `gorm:"primaryKey" json:"group_id"`
	DrawnPlace      int `json:"drawn_place"`
	CurrentPosition int `json:"current_position"`

	Country Country `json:"country,omitempty" gorm:"foreignKey:CountryID"`
}

// Location is a host city/stadium for fixtures.
type Location struct {
	ID      int    `gorm:"primaryKey" json:"id"`
	City    string `json:"city"`
	Stadium string `json:"stadium"`
}
