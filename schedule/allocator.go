package schedule

import (
	"errors"
	"fmt"
	"time"
)

var ErrWindowTooNarrow = errors.New("scheduling window is too narrow for the number of matches")

// MatchDraft is a pairing placed on a calendar date, ready to be persisted
// as a scheduled match.
type MatchDraft struct {
	Round    int
	TeamA    int
	TeamB    int
	Date     time.Time
	Location string
}

// AllocateDates maps the ordered pairing sequence onto calendar dates inside
// [start, end], spacing matches evenly by whole-day increments. The window
// must hold at least one distinct day per match.
//
// The allocator is deliberately naive: it is not day-of-week aware and does
// not check venue conflicts against other leagues.
func AllocateDates(pairings []Pairing, start, end time.Time, venue string) ([]MatchDraft, error) {
	if len(pairings) == 0 {
		return []MatchDraft{}, nil
	}

	totalDays := int(end.Sub(start).Hours() / 24)
	if totalDays < len(pairings) {
		return nil, fmt.Errorf("%w: %d days available for %d matches", ErrWindowTooNarrow, totalDays, len(pairings))
	}

	interval := totalDays / len(pairings)
	drafts := make([]MatchDraft, 0, len(pairings))
	for k, p := range pairings {
		drafts = append(drafts, MatchDraft{
			Round:    p.Round,
			TeamA:    p.TeamA,
			TeamB:    p.TeamB,
			Date:     start.AddDate(0, 0, k*interval),
			Location: venue,
		})
	}
	return drafts, nil
}
