package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/morhendos/padel-league/models"
	"github.com/morhendos/padel-league/repositories"
	"github.com/morhendos/padel-league/schedule"
)

type SubmitResultInput struct {
	TeamAScore []int64 `json:"team_a_score"`
	TeamBScore []int64 `json:"team_b_score"`
	WinnerID   int     `json:"winner_id"`
}

type RescheduleInput struct {
	ScheduledDate *time.Time `json:"scheduled_date"`
	ScheduledTime *string    `json:"scheduled_time"`
	Location      *string    `json:"location"`
	Postpone      bool       `json:"postpone"`
}

type MatchService interface {
	GetMatchByID(ctx context.Context, id int) (*models.Match, error)
	ListByLeague(ctx context.Context, leagueID int, status *models.MatchStatus) ([]*models.Match, error)

	// SubmitResult validates the per-set scores against the claimed winner,
	// marks the match completed and applies the incremental ranking update,
	// all inside one transaction. A match whose result was already applied is
	// rejected rather than double-counted.
	SubmitResult(ctx context.Context, currentUserID, matchID int, input SubmitResultInput) (*models.Match, error)
	ConfirmResult(ctx context.Context, currentUserID, matchID int) error
	Reschedule(ctx context.Context, currentUserID, matchID int, input RescheduleInput) (*models.Match, error)
}

type matchService struct {
	matchRepo   repositories.MatchRepository
	leagueRepo  repositories.LeagueRepository
	teamRepo    repositories.TeamRepository
	userRepo    repositories.UserRepository
	rankingRepo repositories.RankingRepository
	tx          repositories.Transactor
	hub         *schedule.Hub
	logger      *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	leagueRepo repositories.LeagueRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	rankingRepo repositories.RankingRepository,
	tx repositories.Transactor,
	hub *schedule.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:   matchRepo,
		leagueRepo:  leagueRepo,
		teamRepo:    teamRepo,
		userRepo:    userRepo,
		rankingRepo: rankingRepo,
		tx:          tx,
		hub:         hub,
		logger:      logger,
	}
}

func (s *matchService) GetMatchByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListByLeague(ctx context.Context, leagueID int, status *models.MatchStatus) ([]*models.Match, error) {
	if _, err := s.leagueRepo.GetByID(ctx, leagueID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}
	return s.matchRepo.ListByLeague(ctx, leagueID, status)
}

// validateResult checks the score shape and that the claimed winner holds the
// strict majority of sets. Set indices where both sides scored the same count
// toward neither team.
func validateResult(match *models.Match, input SubmitResultInput) error {
	if len(input.TeamAScore) == 0 || len(input.TeamAScore) != len(input.TeamBScore) {
		return fmt.Errorf("%w: score arrays must be non-empty and of equal length", ErrValidationFailed)
	}
	for i := range input.TeamAScore {
		if input.TeamAScore[i] < 0 || input.TeamBScore[i] < 0 {
			return fmt.Errorf("%w: set scores must not be negative", ErrValidationFailed)
		}
	}
	if input.WinnerID != match.TeamAID && input.WinnerID != match.TeamBID {
		return ErrWinnerNotInMatch
	}

	setsA, setsB := setWins(input.TeamAScore, input.TeamBScore)
	var expected int
	switch {
	case setsA > setsB:
		expected = match.TeamAID
	case setsB > setsA:
		expected = match.TeamBID
	default:
		return fmt.Errorf("%w: scores do not produce a winner", ErrValidationFailed)
	}
	if input.WinnerID != expected {
		return ErrWinnerScoreMismatch
	}
	return nil
}

func (s *matchService) SubmitResult(ctx context.Context, currentUserID, matchID int, input SubmitResultInput) (*models.Match, error) {
	match, err := s.GetMatchByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	league, err := s.leagueRepo.GetByID(ctx, match.LeagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}

	user, err := s.requireUser(ctx, currentUserID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canReportMatch(ctx, user, league, match)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbiddenOperation
	}

	if league.Status != models.LeagueStatusActive {
		return nil, fmt.Errorf("%w: results can only be submitted while the league is active", ErrLeagueInvalidState)
	}
	switch match.Status {
	case models.MatchStatusCompleted:
		return nil, ErrMatchAlreadyCompleted
	case models.MatchStatusCanceled:
		return nil, fmt.Errorf("%w: match is canceled", ErrMatchNotPlayable)
	}
	if match.ResultAppliedAt != nil {
		// Belt and braces: a completed-status check should already have
		// caught this, but the timestamp is the idempotence source of truth.
		return nil, ErrMatchAlreadyCompleted
	}

	if err := validateResult(match, input); err != nil {
		return nil, err
	}

	now := time.Now()
	match.TeamAScore = input.TeamAScore
	match.TeamBScore = input.TeamBScore
	match.WinnerID = &input.WinnerID
	match.Status = models.MatchStatusCompleted
	match.SubmittedByID = &currentUserID
	match.ResultAppliedAt = &now

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.UpdateResult(ctx, exec, match); err != nil {
			return err
		}
		return s.applyRankings(ctx, exec, league, match)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match result recorded",
		slog.Int("match_id", match.ID),
		slog.Int("league_id", league.ID),
		slog.Int("winner_id", input.WinnerID))

	s.hub.BroadcastToRoom(schedule.LeagueRoom(league.ID), schedule.Event{
		Type:    schedule.EventMatchUpdated,
		Payload: match,
	})
	s.hub.BroadcastToRoom(schedule.LeagueRoom(league.ID), schedule.Event{
		Type:    schedule.EventRankingsUpdated,
		Payload: map[string]interface{}{"league_id": league.ID},
	})
	return match, nil
}

func (s *matchService) applyRankings(ctx context.Context, exec repositories.SQLExecutor, league *models.League, match *models.Match) error {
	_, _, err := applyMatchToRankings(ctx, exec, s.rankingRepo, league,
		match.TeamAID, match.TeamBID, *match.WinnerID, match.TeamAScore, match.TeamBScore)
	return err
}

func (s *matchService) ConfirmResult(ctx context.Context, currentUserID, matchID int) error {
	match, err := s.GetMatchByID(ctx, matchID)
	if err != nil {
		return err
	}
	if match.Status != models.MatchStatusCompleted {
		return fmt.Errorf("%w: only completed matches can be confirmed", ErrMatchNotPlayable)
	}
	league, err := s.leagueRepo.GetByID(ctx, match.LeagueID)
	if err != nil {
		return err
	}
	user, err := s.requireUser(ctx, currentUserID)
	if err != nil {
		return err
	}
	allowed, err := s.canReportMatch(ctx, user, league, match)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbiddenOperation
	}
	if match.SubmittedByID != nil && *match.SubmittedByID == currentUserID && user.Role == models.RolePlayer {
		return fmt.Errorf("%w: a player cannot confirm their own submission", ErrForbiddenOperation)
	}
	return s.matchRepo.SetConfirmedBy(ctx, matchID, currentUserID)
}

func (s *matchService) Reschedule(ctx context.Context, currentUserID, matchID int, input RescheduleInput) (*models.Match, error) {
	match, err := s.GetMatchByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	league, err := s.leagueRepo.GetByID(ctx, match.LeagueID)
	if err != nil {
		return nil, err
	}
	user, err := s.requireUser(ctx, currentUserID)
	if err != nil {
		return nil, err
	}
	if !canManageLeague(user, league) {
		return nil, ErrForbiddenOperation
	}
	switch match.Status {
	case models.MatchStatusCompleted, models.MatchStatusCanceled:
		return nil, fmt.Errorf("%w: match is %s", ErrMatchNotPlayable, match.Status)
	}

	if input.ScheduledDate != nil {
		match.ScheduledDate = input.ScheduledDate
	}
	if input.ScheduledTime != nil {
		match.ScheduledTime = input.ScheduledTime
	}
	if input.Location != nil {
		match.Location = input.Location
	}
	switch {
	case input.Postpone:
		match.Status = models.MatchStatusPostponed
	case match.ScheduledDate != nil:
		match.Status = models.MatchStatusScheduled
	default:
		match.Status = models.MatchStatusUnscheduled
	}

	if err := s.matchRepo.UpdateSchedule(ctx, match); err != nil {
		return nil, err
	}

	s.hub.BroadcastToRoom(schedule.LeagueRoom(league.ID), schedule.Event{
		Type:    schedule.EventMatchUpdated,
		Payload: match,
	})
	return match, nil
}

// canReportMatch allows league managers and players of either team to submit
// or confirm results.
func (s *matchService) canReportMatch(ctx context.Context, user *models.User, league *models.League, match *models.Match) (bool, error) {
	if canManageLeague(user, league) {
		return true, nil
	}
	for _, teamID := range []int{match.TeamAID, match.TeamBID} {
		isPlayer, err := s.teamRepo.IsPlayer(ctx, teamID, user.ID)
		if err != nil {
			return false, err
		}
		if isPlayer {
			return true, nil
		}
	}
	return false, nil
}

func (s *matchService) requireUser(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
