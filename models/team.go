package models

import "time"

type Team struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	LeagueID  *int      `json:"league_id,omitempty" db:"league_id"`
	CreatorID int       `json:"creator_id" db:"creator_id"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`

	// Players holds the 1-2 roster members, populated by the service layer.
	Players []User `json:"players,omitempty" db:"-"`
}
