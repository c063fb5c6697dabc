package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/morhendos/padel-league/models"
)

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func validateLeagueDates(deadline, start, end time.Time) error {
	if deadline.IsZero() || start.IsZero() || end.IsZero() {
		return ErrLeagueDatesRequired
	}
	if deadline.After(start) {
		return fmt.Errorf("%w: deadline %s, start %s", ErrLeagueInvalidDeadline,
			deadline.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if end.Before(start) {
		return fmt.Errorf("%w: start %s, end %s", ErrLeagueInvalidDates,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// canManageLeague reports whether the user may run organizer operations
// (schedule generation, status transitions, league edits) on the league.
func canManageLeague(user *models.User, league *models.League) bool {
	if user == nil || league == nil {
		return false
	}
	return user.Role == models.RoleAdmin || league.OrganizerID == user.ID
}

// isValidStatusTransition checks the league lifecycle adjacency table.
// Transitioning to the current status is always allowed (no-op).
func isValidStatusTransition(current, next models.LeagueStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.LeagueStatus][]models.LeagueStatus{
		models.LeagueStatusDraft:        {models.LeagueStatusRegistration, models.LeagueStatusCanceled},
		models.LeagueStatusRegistration: {models.LeagueStatusActive, models.LeagueStatusDraft, models.LeagueStatusCanceled},
		models.LeagueStatusActive:       {models.LeagueStatusCompleted, models.LeagueStatusCanceled},
		models.LeagueStatusCompleted:    {},
		models.LeagueStatusCanceled:     {models.LeagueStatusDraft},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// setWins counts the sets taken by each side. A tied set index counts toward
// neither side.
func setWins(a, b []int64) (winsA, winsB int) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		switch {
		case a[i] > b[i]:
			winsA++
		case b[i] > a[i]:
			winsB++
		}
	}
	return winsA, winsB
}

func sumScores(scores []int64) int {
	total := 0
	for _, s := range scores {
		total += int(s)
	}
	return total
}

// GetExtensionFromContentType maps an image content type to a file extension
// for storage keys.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: %q", contentType)
	}
}
