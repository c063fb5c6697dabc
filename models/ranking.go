package models

import "time"

// Ranking is a derived standings row, one per (league, team) pair. Rows are
// created lazily when a first result lands for a team and can always be
// rebuilt from the league's completed matches; they are never edited outside
// match-result processing.
type Ranking struct {
	ID             int       `json:"id" db:"id"`
	LeagueID       int       `json:"league_id" db:"league_id"`
	TeamID         int       `json:"team_id" db:"team_id"`
	Points         int       `json:"points" db:"points"`
	MatchesPlayed  int       `json:"matches_played" db:"matches_played"`
	Wins           int       `json:"wins" db:"wins"`
	Losses         int       `json:"losses" db:"losses"`
	SetsWon        int       `json:"sets_won" db:"sets_won"`
	SetsLost       int       `json:"sets_lost" db:"sets_lost"`
	PointsScored   int       `json:"points_scored" db:"points_scored"`
	PointsConceded int       `json:"points_conceded" db:"points_conceded"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`

	// Rank is the 1-based display position, computed on read and never stored.
	Rank *int `json:"rank,omitempty" db:"-"`

	Team *Team `json:"team,omitempty" db:"-"`
}
