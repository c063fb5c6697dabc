package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morhendos/padel-league/models"
	"github.com/morhendos/padel-league/repositories"
	"github.com/morhendos/padel-league/schedule"
)

type ScheduleService interface {
	// GenerateSchedule builds a full round-robin for the league and persists
	// it, replacing any existing schedule. Returns the number of matches
	// created.
	GenerateSchedule(ctx context.Context, currentUserID, leagueID int) (int, error)
	ClearSchedule(ctx context.Context, currentUserID, leagueID int) error
}

type scheduleService struct {
	leagueRepo repositories.LeagueRepository
	teamRepo   repositories.TeamRepository
	matchRepo  repositories.MatchRepository
	userRepo   repositories.UserRepository
	tx         repositories.Transactor
	locker     *LeagueLocker
	hub        *schedule.Hub
	logger     *slog.Logger
}

func NewScheduleService(
	leagueRepo repositories.LeagueRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	tx repositories.Transactor,
	locker *LeagueLocker,
	hub *schedule.Hub,
	logger *slog.Logger,
) ScheduleService {
	return &scheduleService{
		leagueRepo: leagueRepo,
		teamRepo:   teamRepo,
		matchRepo:  matchRepo,
		userRepo:   userRepo,
		tx:         tx,
		locker:     locker,
		hub:        hub,
		logger:     logger,
	}
}

func (s *scheduleService) GenerateSchedule(ctx context.Context, currentUserID, leagueID int) (int, error) {
	lock := s.locker.forLeague(leagueID)
	lock.Lock()
	defer lock.Unlock()

	league, err := s.requireManagedLeague(ctx, currentUserID, leagueID)
	if err != nil {
		return 0, err
	}
	if league.Status != models.LeagueStatusDraft && league.Status != models.LeagueStatusRegistration {
		return 0, fmt.Errorf("%w: schedule can only be generated pre-activation", ErrLeagueInvalidState)
	}

	teamIDs, err := s.leagueRepo.ListTeamIDs(ctx, leagueID)
	if err != nil {
		return 0, err
	}
	if len(teamIDs) < 2 {
		return 0, fmt.Errorf("%w: %d registered, minimum 2", ErrInsufficientTeams, len(teamIDs))
	}

	validIDs, err := s.validTeamIDs(ctx, leagueID, teamIDs)
	if err != nil {
		return 0, err
	}
	if len(validIDs) < 2 {
		return 0, fmt.Errorf("%w: %d of %d teams passed the membership check", ErrInsufficientValidTeams, len(validIDs), len(teamIDs))
	}

	pairings, err := schedule.RoundRobinPairings(validIDs)
	if err != nil {
		if errors.Is(err, schedule.ErrNotEnoughTeams) {
			return 0, ErrInsufficientTeams
		}
		return 0, err
	}

	drafts, err := schedule.AllocateDates(pairings, league.StartDate, league.EndDate, derefString(league.Venue))
	if err != nil {
		if errors.Is(err, schedule.ErrWindowTooNarrow) {
			return 0, fmt.Errorf("%w: %v", ErrSchedulingWindowTooNarrow, err)
		}
		return 0, err
	}

	matches := make([]*models.Match, 0, len(drafts))
	for _, d := range drafts {
		date := d.Date
		m := &models.Match{
			LeagueID: leagueID,
			TeamAID:  d.TeamA,
			TeamBID:  d.TeamB,
			Round:    d.Round,
			Status:   models.MatchStatusScheduled,
		}
		m.ScheduledDate = &date
		if d.Location != "" {
			location := d.Location
			m.Location = &location
		}
		matches = append(matches, m)
	}

	// Regenerate semantics: an existing schedule is replaced, not an error.
	// Delete, insert and flag flip are a single all-or-nothing unit so a
	// partial schedule never ends up flagged as generated.
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		deleted, err := s.matchRepo.DeleteByLeague(ctx, exec, leagueID)
		if err != nil {
			return err
		}
		if deleted > 0 {
			s.logger.Info("replaced existing schedule",
				slog.Int("league_id", leagueID), slog.Int64("deleted_matches", deleted))
		}
		if err := s.matchRepo.CreateBatch(ctx, exec, matches); err != nil {
			return err
		}
		return s.leagueRepo.SetScheduleGenerated(ctx, exec, leagueID, true)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("schedule generated",
		slog.Int("league_id", leagueID),
		slog.Int("teams", len(validIDs)),
		slog.Int("matches", len(matches)))

	s.hub.BroadcastToRoom(schedule.LeagueRoom(leagueID), schedule.Event{
		Type: schedule.EventScheduleGenerated,
		Payload: map[string]interface{}{
			"league_id":       leagueID,
			"matches_created": len(matches),
		},
	})
	return len(matches), nil
}

func (s *scheduleService) ClearSchedule(ctx context.Context, currentUserID, leagueID int) error {
	lock := s.locker.forLeague(leagueID)
	lock.Lock()
	defer lock.Unlock()

	league, err := s.requireManagedLeague(ctx, currentUserID, leagueID)
	if err != nil {
		return err
	}
	if league.Status != models.LeagueStatusDraft && league.Status != models.LeagueStatusRegistration {
		return fmt.Errorf("%w: schedule can only be cleared pre-activation", ErrLeagueInvalidState)
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.matchRepo.DeleteByLeague(ctx, exec, leagueID); err != nil {
			return err
		}
		return s.leagueRepo.SetScheduleGenerated(ctx, exec, leagueID, false)
	})
	if err != nil {
		return err
	}

	s.hub.BroadcastToRoom(schedule.LeagueRoom(leagueID), schedule.Event{
		Type:    schedule.EventScheduleCleared,
		Payload: map[string]interface{}{"league_id": leagueID},
	})
	return nil
}

// validTeamIDs cross-checks the league membership set against each team's own
// league reference. A team listed for the league but pointing elsewhere is
// excluded and logged rather than scheduled.
func (s *scheduleService) validTeamIDs(ctx context.Context, leagueID int, teamIDs []int) ([]int, error) {
	teams, err := s.teamRepo.ListByIDs(ctx, teamIDs)
	if err != nil {
		return nil, err
	}

	valid := make([]int, 0, len(teams))
	for _, t := range teams {
		if t.LeagueID == nil || *t.LeagueID != leagueID {
			s.logger.Warn("team membership mismatch, excluding from schedule",
				slog.Int("league_id", leagueID),
				slog.Int("team_id", t.ID),
				slog.Any("team_league_id", t.LeagueID))
			continue
		}
		valid = append(valid, t.ID)
	}
	return valid, nil
}

func (s *scheduleService) requireManagedLeague(ctx context.Context, currentUserID, leagueID int) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !canManageLeague(user, league) {
		return nil, ErrForbiddenOperation
	}
	return league, nil
}
