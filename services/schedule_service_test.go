package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/morhendos/padel-league/models"
)

type scheduleFixture struct {
	service    ScheduleService
	leagueRepo *fakeLeagueRepo
	teamRepo   *fakeTeamRepo
	matchRepo  *fakeMatchRepo
	userRepo   *fakeUserRepo
	organizer  *models.User
	league     *models.League
}

func newScheduleFixture(t *testing.T, status models.LeagueStatus, windowDays int) *scheduleFixture {
	t.Helper()
	leagueRepo := newFakeLeagueRepo()
	teamRepo := newFakeTeamRepo()
	matchRepo := newFakeMatchRepo()
	userRepo := newFakeUserRepo()

	organizer := userRepo.add(models.User{Email: "org@example.com", Role: models.RoleOrganizer})

	venue := "Club Norte"
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	league := leagueRepo.add(models.League{
		Name:                 "City League",
		OrganizerID:          organizer.ID,
		RegistrationDeadline: start.AddDate(0, 0, -7),
		StartDate:            start,
		EndDate:              start.AddDate(0, 0, windowDays),
		MinTeams:             2,
		MaxTeams:             8,
		Venue:                &venue,
		Status:               status,
	})

	service := NewScheduleService(leagueRepo, teamRepo, matchRepo, userRepo,
		&fakeTransactor{}, NewLeagueLocker(), testHub(), testLogger())

	return &scheduleFixture{
		service:    service,
		leagueRepo: leagueRepo,
		teamRepo:   teamRepo,
		matchRepo:  matchRepo,
		userRepo:   userRepo,
		organizer:  organizer,
		league:     league,
	}
}

// registerTeams creates n teams as full members of the fixture league.
func (f *scheduleFixture) registerTeams(n int) []int {
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		team := f.teamRepo.add(models.Team{
			Name:     "Team " + string(rune('A'+i)),
			LeagueID: &f.league.ID,
			Active:   true,
		})
		f.leagueRepo.members[f.league.ID] = append(f.leagueRepo.members[f.league.ID], team.ID)
		ids = append(ids, team.ID)
	}
	return ids
}

func TestGenerateScheduleFourTeams(t *testing.T) {
	f := newScheduleFixture(t, models.LeagueStatusRegistration, 30)
	f.registerTeams(4)

	count, err := f.service.GenerateSchedule(context.Background(), f.organizer.ID, f.league.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 6 {
		t.Errorf("created %d matches for 4 teams, want 6", count)
	}

	matches, _ := f.matchRepo.ListByLeague(context.Background(), f.league.ID, nil)
	if len(matches) != 6 {
		t.Fatalf("stored %d matches, want 6", len(matches))
	}
	for _, m := range matches {
		if m.Status != models.MatchStatusScheduled {
			t.Errorf("match %d status %q, want scheduled", m.ID, m.Status)
		}
		if m.ScheduledDate == nil {
			t.Errorf("match %d has no date", m.ID)
		} else if m.ScheduledDate.Before(f.league.StartDate) || m.ScheduledDate.After(f.league.EndDate) {
			t.Errorf("match %d date %v outside league window", m.ID, m.ScheduledDate)
		}
		if m.Location == nil || *m.Location != "Club Norte" {
			t.Errorf("match %d did not inherit the league venue", m.ID)
		}
	}

	stored, _ := f.leagueRepo.GetByID(context.Background(), f.league.ID)
	if !stored.ScheduleGenerated {
		t.Error("schedule_generated flag not set")
	}
}

func TestGenerateScheduleRequiresPreActivation(t *testing.T) {
	for _, status := range []models.LeagueStatus{
		models.LeagueStatusActive, models.LeagueStatusCompleted, models.LeagueStatusCanceled,
	} {
		f := newScheduleFixture(t, status, 30)
		f.registerTeams(4)

		_, err := f.service.GenerateSchedule(context.Background(), f.organizer.ID, f.league.ID)
		if !errors.Is(err, ErrLeagueInvalidState) {
			t.Errorf("status %s: got err %v, want ErrLeagueInvalidState", status, err)
		}
	}
}

func TestGenerateScheduleRequiresTwoTeams(t *testing.T) {
	f := newScheduleFixture(t, models.LeagueStatusRegistration, 30)
	f.registerTeams(1)

	_, err := f.service.GenerateSchedule(context.Background(), f.organizer.ID, f.league.ID)
	if !errors.Is(err, ErrInsufficientTeams) {
		t.Errorf("got err %v, want ErrInsufficientTeams", err)
	}
}

func TestGenerateScheduleExcludesMismatchedTeams(t *testing.T) {
	f := newScheduleFixture(t, models.LeagueStatusRegistration, 30)
	f.registerTeams(3)

	// A fourth team is in the membership set but its own league reference
	// points elsewhere; it must be excluded, not scheduled.
	otherLeague := 999
	stray := f.teamRepo.add(models.Team{Name: "Stray", LeagueID: &otherLeague, Active: true})
	f.leagueRepo.members[f.league.ID] = append(f.leagueRepo.members[f.league.ID], stray.ID)

	count, err := f.service.GenerateSchedule(context.Background(), f.organizer.ID, f.league.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 { // 3 valid teams -> 3 pairings
		t.Errorf("created %d matches, want 3 from the valid teams only", count)
	}

	matches, _ := f.matchRepo.ListByLeague(context.Background(), f.league.ID, nil)
	for _, m := range matches {
		if m.TeamAID == stray.ID || m.TeamBID == stray.ID {
			t.Errorf("mismatched team %d was scheduled in match %d", stray.ID, m.ID)
		}
	}
}

func TestGenerateScheduleTooFewValidTeams(t *testing.T) {
	f := newScheduleFixture(t, models.LeagueStatusRegistration, 30)
	f.registerTeams(1)

	otherLeague := 999
	stray := f.teamRepo.add(models.Team{Name: "Stray", LeagueID: &otherLeague})
	f.leagueRepo.members[f.league.ID] = append(f.leagueRepo.members[f.league.ID], stray.ID)

	_, err := f.service.GenerateSchedule(context.Background(), f.organizer.ID, f.league.ID)
	if !errors.Is(err, ErrInsufficientValidTeams) {
		t.Errorf("got err %v, want ErrInsufficientValidTeams", err)
	}
}

func TestGenerateScheduleWindowTooNarrow(t *testing.T) {
	f := newScheduleFixture(t, models.LeagueStatusRegistration, 5)
	f.registerTeams(4) // 6 matches into 5 days

	_, err := f.service.GenerateSchedule(context.Background(), f.organizer.ID, f.league.ID)
	if !errors.Is(err, ErrSchedulingWindowTooNarrow) {
		t.Errorf("got err %v, want ErrSchedulingWindowTooNarrow", err)
	}

	matches, _ := f.matchRepo.ListByLeague(context.Background(), f.league.ID, nil)
	if len(matches) != 0 {
		t.Errorf("%d matches persisted despite allocation failure", len(matches))
	}
}

func TestGenerateScheduleReplacesExisting(t *testing.T) {
	f := newScheduleFixture(t, models.LeagueStatusRegistration, 30)
	f.registerTeams(3)

	if _, err := f.service.GenerateSchedule(context.Background(), f.organizer.ID, f.league.ID); err != nil {
		t.Fatalf("first generation failed: %v", err)
	}
	firstIDs := map[int]bool{}
	matches, _ := f.matchRepo.ListByLeague(context.Background(), f.league.ID, nil)
	for _, m := range matches {
		firstIDs[m.ID] = true
	}

	count, err := f.service.GenerateSchedule(context.Background(), f.organizer.ID, f.league.ID)
	if err != nil {
		t.Fatalf("regeneration failed: %v", err)
	}
	if count != 3 {
		t.Errorf("regeneration created %d matches, want 3", count)
	}

	matches, _ = f.matchRepo.ListByLeague(context.Background(), f.league.ID, nil)
	if len(matches) != 3 {
		t.Fatalf("%d matches after regeneration, want 3 (old schedule replaced)", len(matches))
	}
	for _, m := range matches {
		if firstIDs[m.ID] {
			t.Errorf("match %d from the first schedule survived regeneration", m.ID)
		}
	}
}

func TestGenerateScheduleForbiddenForStrangers(t *testing.T) {
	f := newScheduleFixture(t, models.LeagueStatusRegistration, 30)
	f.registerTeams(4)
	stranger := f.userRepo.add(models.User{Email: "x@example.com", Role: models.RoleOrganizer})

	_, err := f.service.GenerateSchedule(context.Background(), stranger.ID, f.league.ID)
	if !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("got err %v, want ErrForbiddenOperation", err)
	}
}

func TestClearSchedule(t *testing.T) {
	f := newScheduleFixture(t, models.LeagueStatusRegistration, 30)
	f.registerTeams(4)

	if _, err := f.service.GenerateSchedule(context.Background(), f.organizer.ID, f.league.ID); err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	if err := f.service.ClearSchedule(context.Background(), f.organizer.ID, f.league.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matches, _ := f.matchRepo.ListByLeague(context.Background(), f.league.ID, nil)
	if len(matches) != 0 {
		t.Errorf("%d matches remain after clear", len(matches))
	}
	stored, _ := f.leagueRepo.GetByID(context.Background(), f.league.ID)
	if stored.ScheduleGenerated {
		t.Error("schedule_generated flag still set after clear")
	}
}

func TestClearScheduleRequiresPreActivation(t *testing.T) {
	f := newScheduleFixture(t, models.LeagueStatusActive, 30)

	err := f.service.ClearSchedule(context.Background(), f.organizer.ID, f.league.ID)
	if !errors.Is(err, ErrLeagueInvalidState) {
		t.Errorf("got err %v, want ErrLeagueInvalidState", err)
	}
}
