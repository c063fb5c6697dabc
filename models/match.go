package models

import "time"

type MatchStatus string

const (
	MatchStatusUnscheduled MatchStatus = "unscheduled"
	MatchStatusScheduled   MatchStatus = "scheduled"
	MatchStatusInProgress  MatchStatus = "in_progress"
	MatchStatusCompleted   MatchStatus = "completed"
	MatchStatusCanceled    MatchStatus = "canceled"
	MatchStatusPostponed   MatchStatus = "postponed"
)

// Match is a single fixture between two teams of the same league.
// TeamAScore/TeamBScore hold per-set scores of equal length once a result
// has been submitted; WinnerID must then reference TeamAID or TeamBID.
type Match struct {
	ID            int         `json:"id" db:"id"`
	LeagueID      int         `json:"league_id" db:"league_id"`
	TeamAID       int         `json:"team_a_id" db:"team_a_id"`
	TeamBID       int         `json:"team_b_id" db:"team_b_id"`
	Round         int         `json:"round" db:"round"`
	ScheduledDate *time.Time  `json:"scheduled_date,omitempty" db:"scheduled_date"`
	ScheduledTime *string     `json:"scheduled_time,omitempty" db:"scheduled_time"`
	Location      *string     `json:"location,omitempty" db:"location"`
	Status        MatchStatus `json:"status" db:"status"`

	TeamAScore []int64 `json:"team_a_score,omitempty" db:"team_a_score"`
	TeamBScore []int64 `json:"team_b_score,omitempty" db:"team_b_score"`
	WinnerID   *int    `json:"winner_id,omitempty" db:"winner_id"`

	Note            *string    `json:"note,omitempty" db:"note"`
	SubmittedByID   *int       `json:"submitted_by,omitempty" db:"submitted_by"`
	ConfirmedByID   *int       `json:"confirmed_by,omitempty" db:"confirmed_by"`
	ResultAppliedAt *time.Time `json:"result_applied_at,omitempty" db:"result_applied_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// HasResult reports whether a full result is attached to the match.
func (m *Match) HasResult() bool {
	return m.WinnerID != nil && len(m.TeamAScore) > 0 && len(m.TeamAScore) == len(m.TeamBScore)
}
