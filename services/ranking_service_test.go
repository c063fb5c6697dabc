package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/morhendos/padel-league/models"
)

type rankingFixture struct {
	service     RankingService
	rankingRepo *fakeRankingRepo
	matchRepo   *fakeMatchRepo
	leagueRepo  *fakeLeagueRepo
	teamRepo    *fakeTeamRepo
	userRepo    *fakeUserRepo
	organizer   *models.User
	league      *models.League
}

func newRankingFixture(t *testing.T) *rankingFixture {
	t.Helper()
	rankingRepo := newFakeRankingRepo()
	matchRepo := newFakeMatchRepo()
	leagueRepo := newFakeLeagueRepo()
	teamRepo := newFakeTeamRepo()
	userRepo := newFakeUserRepo()

	organizer := userRepo.add(models.User{Email: "org@example.com", Role: models.RoleOrganizer})

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	league := leagueRepo.add(models.League{
		Name:          "Ranked League",
		OrganizerID:   organizer.ID,
		StartDate:     start,
		EndDate:       start.AddDate(0, 1, 0),
		PointsPerWin:  3,
		PointsPerLoss: 0,
		Status:        models.LeagueStatusActive,
	})

	service := NewRankingService(rankingRepo, matchRepo, leagueRepo, teamRepo, userRepo,
		&fakeTransactor{}, testHub(), testLogger())

	return &rankingFixture{
		service:     service,
		rankingRepo: rankingRepo,
		matchRepo:   matchRepo,
		leagueRepo:  leagueRepo,
		teamRepo:    teamRepo,
		userRepo:    userRepo,
		organizer:   organizer,
		league:      league,
	}
}

func (f *rankingFixture) addCompletedMatch(teamA, teamB, winner int, scoreA, scoreB []int64) {
	now := time.Now()
	f.matchRepo.add(models.Match{
		LeagueID:        f.league.ID,
		TeamAID:         teamA,
		TeamBID:         teamB,
		Status:          models.MatchStatusCompleted,
		TeamAScore:      scoreA,
		TeamBScore:      scoreB,
		WinnerID:        &winner,
		ResultAppliedAt: &now,
	})
}

func TestApplyMatchResultIncrements(t *testing.T) {
	f := newRankingFixture(t)

	rankingA, rankingB, err := f.service.ApplyMatchResult(context.Background(), f.league.ID, 10, 20, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rankingA.Points != 3 || rankingA.Wins != 1 || rankingA.Losses != 0 || rankingA.MatchesPlayed != 1 {
		t.Errorf("winner row %+v, want 3 points, 1 win, 1 played", rankingA)
	}
	if rankingB.Points != 0 || rankingB.Wins != 0 || rankingB.Losses != 1 || rankingB.MatchesPlayed != 1 {
		t.Errorf("loser row %+v, want 0 points, 1 loss, 1 played", rankingB)
	}

	// Second result for the same pair accumulates on the existing rows.
	_, rankingB, err = f.service.ApplyMatchResult(context.Background(), f.league.ID, 10, 20, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rankingB.Points != 3 || rankingB.Wins != 1 || rankingB.Losses != 1 || rankingB.MatchesPlayed != 2 {
		t.Errorf("row after second match %+v, want 3 points, 1 win, 1 loss, 2 played", rankingB)
	}
}

func TestApplyMatchResultWinnerMustPlay(t *testing.T) {
	f := newRankingFixture(t)

	_, _, err := f.service.ApplyMatchResult(context.Background(), f.league.ID, 10, 20, 30)
	if !errors.Is(err, ErrWinnerNotInMatch) {
		t.Errorf("got err %v, want ErrWinnerNotInMatch", err)
	}
}

func TestApplyMatchResultPointsPerLoss(t *testing.T) {
	f := newRankingFixture(t)
	f.leagueRepo.leagues[f.league.ID].PointsPerLoss = 1

	_, rankingB, err := f.service.ApplyMatchResult(context.Background(), f.league.ID, 10, 20, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rankingB.Points != 1 {
		t.Errorf("loser points %d, want the league's 1 point per loss", rankingB.Points)
	}
}

func TestRecalculateLeagueRankings(t *testing.T) {
	f := newRankingFixture(t)

	// Team 1 beats 2 and 3; team 2 beats 3. A set tie in the last match
	// counts toward neither side.
	f.addCompletedMatch(1, 2, 1, []int64{6, 6}, []int64{3, 4})
	f.addCompletedMatch(1, 3, 1, []int64{6, 2, 7}, []int64{4, 6, 5})
	f.addCompletedMatch(2, 3, 2, []int64{6, 5, 6}, []int64{2, 5, 3})

	// A stale row that the rebuild must wipe.
	f.rankingRepo.Create(context.Background(), nil, &models.Ranking{LeagueID: f.league.ID, TeamID: 99, Points: 42})

	result, err := f.service.RecalculateLeagueRankings(context.Background(), f.organizer.ID, f.league.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MatchesProcessed != 3 || result.TeamsProcessed != 3 {
		t.Errorf("result %+v, want 3 matches over 3 teams", result)
	}

	standings, err := f.service.GetStandings(context.Background(), f.league.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(standings) != 3 {
		t.Fatalf("%d standings rows, want 3 (stale row wiped)", len(standings))
	}

	// Display order: points desc, then wins desc, then team id.
	wantOrder := []int{1, 2, 3}
	wantPoints := []int{6, 3, 0}
	for i, row := range standings {
		if row.TeamID != wantOrder[i] {
			t.Errorf("position %d team %d, want %d", i+1, row.TeamID, wantOrder[i])
		}
		if row.Points != wantPoints[i] {
			t.Errorf("team %d points %d, want %d", row.TeamID, row.Points, wantPoints[i])
		}
		if row.Rank == nil || *row.Rank != i+1 {
			t.Errorf("team %d rank %v, want %d", row.TeamID, row.Rank, i+1)
		}
	}

	// Set accounting for team 2: won 2-0 vs 3 (one set tied), lost 0-2 vs 1.
	var team2 *models.Ranking
	for _, row := range standings {
		if row.TeamID == 2 {
			team2 = row
		}
	}
	if team2.SetsWon != 2 || team2.SetsLost != 2 {
		t.Errorf("team 2 sets %d-%d, want 2-2 with the tied set uncounted", team2.SetsWon, team2.SetsLost)
	}
}

func TestRecalculateSkipsMatchesWithoutResult(t *testing.T) {
	f := newRankingFixture(t)
	f.addCompletedMatch(1, 2, 1, []int64{6, 6}, []int64{3, 4})
	// Completed status but no winner recorded; must be skipped, not counted.
	f.matchRepo.add(models.Match{
		LeagueID: f.league.ID, TeamAID: 1, TeamBID: 3,
		Status: models.MatchStatusCompleted,
	})

	result, err := f.service.RecalculateLeagueRankings(context.Background(), f.organizer.ID, f.league.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MatchesProcessed != 1 {
		t.Errorf("processed %d matches, want 1", result.MatchesProcessed)
	}
}

func TestRecalculateMatchesIncrementalPath(t *testing.T) {
	f := newRankingFixture(t)

	// Apply incrementally via the match-result path semantics (with scores),
	// then recompute from scratch; the rows must agree.
	matchSvc := NewMatchService(f.matchRepo, f.leagueRepo, f.teamRepo, f.userRepo,
		f.rankingRepo, &fakeTransactor{}, testHub(), testLogger())

	teamA := f.teamRepo.add(models.Team{Name: "A", LeagueID: &f.league.ID})
	teamB := f.teamRepo.add(models.Team{Name: "B", LeagueID: &f.league.ID})
	match := f.matchRepo.add(models.Match{
		LeagueID: f.league.ID, TeamAID: teamA.ID, TeamBID: teamB.ID,
		Status: models.MatchStatusScheduled,
	})

	if _, err := matchSvc.SubmitResult(context.Background(), f.organizer.ID, match.ID, SubmitResultInput{
		TeamAScore: []int64{6, 3, 6},
		TeamBScore: []int64{4, 6, 2},
		WinnerID:   teamA.ID,
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	incremental, err := f.service.GetStandings(context.Background(), f.league.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.service.RecalculateLeagueRankings(context.Background(), f.organizer.ID, f.league.ID); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	recomputed, err := f.service.GetStandings(context.Background(), f.league.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(incremental) != len(recomputed) {
		t.Fatalf("row counts differ: %d vs %d", len(incremental), len(recomputed))
	}
	for i := range incremental {
		a, b := incremental[i], recomputed[i]
		if a.TeamID != b.TeamID || a.Points != b.Points || a.Wins != b.Wins || a.Losses != b.Losses ||
			a.SetsWon != b.SetsWon || a.SetsLost != b.SetsLost ||
			a.PointsScored != b.PointsScored || a.PointsConceded != b.PointsConceded {
			t.Errorf("row %d diverges: incremental %+v vs recomputed %+v", i, a, b)
		}
	}
}

func TestRecalculateForbiddenForStrangers(t *testing.T) {
	f := newRankingFixture(t)
	stranger := f.userRepo.add(models.User{Email: "x@example.com", Role: models.RolePlayer})

	_, err := f.service.RecalculateLeagueRankings(context.Background(), stranger.ID, f.league.ID)
	if !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("got err %v, want ErrForbiddenOperation", err)
	}
}

func TestGetStandingsUnknownLeague(t *testing.T) {
	f := newRankingFixture(t)

	_, err := f.service.GetStandings(context.Background(), 404)
	if !errors.Is(err, ErrLeagueNotFound) {
		t.Errorf("got err %v, want ErrLeagueNotFound", err)
	}
}
