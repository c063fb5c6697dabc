package models

import "time"

// LeagueStatus represents league lifecycle states, matching the ENUM in the DB.
type LeagueStatus string

const (
	LeagueStatusDraft        LeagueStatus = "draft"
	LeagueStatusRegistration LeagueStatus = "registration"
	LeagueStatusActive       LeagueStatus = "active"
	LeagueStatusCompleted    LeagueStatus = "completed"
	LeagueStatusCanceled     LeagueStatus = "canceled"
)

type MatchFormat string

const (
	FormatBestOfThree MatchFormat = "best_of_3"
	FormatBestOfFive  MatchFormat = "best_of_5"
	FormatSingleSet   MatchFormat = "single_set"
)

// League represents a padel league.
type League struct {
	ID                   int          `json:"id" db:"id"`
	Name                 string       `json:"name" db:"name"`
	Description          *string      `json:"description,omitempty" db:"description"`
	OrganizerID          int          `json:"organizer_id" db:"organizer_id"`
	RegistrationDeadline time.Time    `json:"registration_deadline" db:"registration_deadline"`
	StartDate            time.Time    `json:"start_date" db:"start_date"`
	EndDate              time.Time    `json:"end_date" db:"end_date"`
	MinTeams             int          `json:"min_teams" db:"min_teams"`
	MaxTeams             int          `json:"max_teams" db:"max_teams"`
	MatchFormat          MatchFormat  `json:"match_format" db:"match_format"`
	PointsPerWin         int          `json:"points_per_win" db:"points_per_win"`
	PointsPerLoss        int          `json:"points_per_loss" db:"points_per_loss"`
	Venue                *string      `json:"venue,omitempty" db:"venue"`
	Status               LeagueStatus `json:"status" db:"status"`
	ScheduleGenerated    bool         `json:"schedule_generated" db:"schedule_generated"`
	ActivatedAt          *time.Time   `json:"activated_at,omitempty" db:"activated_at"`
	CompletedAt          *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
	CanceledAt           *time.Time   `json:"canceled_at,omitempty" db:"canceled_at"`
	CreatedAt            time.Time    `json:"created_at" db:"created_at"`
	BannerKey            *string      `json:"-" db:"banner_key"`
	BannerURL            *string      `json:"banner_url,omitempty" db:"-"`

	// Optional linked entities, populated by the service layer.
	Organizer *User  `json:"organizer,omitempty" db:"-"`
	Teams     []Team `json:"teams,omitempty" db:"-"`
}
