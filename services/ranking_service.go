package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/morhendos/padel-league/models"
	"github.com/morhendos/padel-league/repositories"
	"github.com/morhendos/padel-league/schedule"
)

type RecalculateResult struct {
	TeamsProcessed   int `json:"teams_processed"`
	MatchesProcessed int `json:"matches_processed"`
}

type RankingService interface {
	// ApplyMatchResult incrementally updates both teams' ranking rows for one
	// match outcome. Callers must invoke it at most once per match; the
	// match service gates it on the result-applied timestamp.
	ApplyMatchResult(ctx context.Context, leagueID, teamAID, teamBID, winnerID int) (*models.Ranking, *models.Ranking, error)

	// RecalculateLeagueRankings wipes the league's ranking rows and rebuilds
	// them from every completed match with a result. The authoritative path.
	RecalculateLeagueRankings(ctx context.Context, currentUserID, leagueID int) (*RecalculateResult, error)

	// GetStandings returns the ranking table in display order with 1-based
	// positions assigned; positions are recomputed on every read.
	GetStandings(ctx context.Context, leagueID int) ([]*models.Ranking, error)
}

type rankingService struct {
	rankingRepo repositories.RankingRepository
	matchRepo   repositories.MatchRepository
	leagueRepo  repositories.LeagueRepository
	teamRepo    repositories.TeamRepository
	userRepo    repositories.UserRepository
	tx          repositories.Transactor
	hub         *schedule.Hub
	logger      *slog.Logger
}

func NewRankingService(
	rankingRepo repositories.RankingRepository,
	matchRepo repositories.MatchRepository,
	leagueRepo repositories.LeagueRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	tx repositories.Transactor,
	hub *schedule.Hub,
	logger *slog.Logger,
) RankingService {
	return &rankingService{
		rankingRepo: rankingRepo,
		matchRepo:   matchRepo,
		leagueRepo:  leagueRepo,
		teamRepo:    teamRepo,
		userRepo:    userRepo,
		tx:          tx,
		hub:         hub,
		logger:      logger,
	}
}

func (s *rankingService) ApplyMatchResult(ctx context.Context, leagueID, teamAID, teamBID, winnerID int) (*models.Ranking, *models.Ranking, error) {
	league, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, nil, ErrLeagueNotFound
		}
		return nil, nil, err
	}
	if winnerID != teamAID && winnerID != teamBID {
		return nil, nil, ErrWinnerNotInMatch
	}

	var rankingA, rankingB *models.Ranking
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		rankingA, rankingB, err = applyMatchToRankings(ctx, exec, s.rankingRepo, league, teamAID, teamBID, winnerID, nil, nil)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return rankingA, rankingB, nil
}

// applyMatchToRankings updates both teams' rows inside the caller's
// transaction so a half-updated table cannot be observed. Score slices are
// optional; when present, set and rally totals are accumulated as well so
// incremental rows match a later full recompute.
func applyMatchToRankings(
	ctx context.Context,
	exec repositories.SQLExecutor,
	rankingRepo repositories.RankingRepository,
	league *models.League,
	teamAID, teamBID, winnerID int,
	teamAScore, teamBScore []int64,
) (*models.Ranking, *models.Ranking, error) {
	rankingA, err := rankingRepo.GetOrCreate(ctx, exec, league.ID, teamAID)
	if err != nil {
		return nil, nil, err
	}
	rankingB, err := rankingRepo.GetOrCreate(ctx, exec, league.ID, teamBID)
	if err != nil {
		return nil, nil, err
	}

	applyOutcome(rankingA, league, winnerID == teamAID)
	applyOutcome(rankingB, league, winnerID == teamBID)

	if len(teamAScore) > 0 && len(teamAScore) == len(teamBScore) {
		setsA, setsB := setWins(teamAScore, teamBScore)
		rankingA.SetsWon += setsA
		rankingA.SetsLost += setsB
		rankingB.SetsWon += setsB
		rankingB.SetsLost += setsA

		scoredA, scoredB := sumScores(teamAScore), sumScores(teamBScore)
		rankingA.PointsScored += scoredA
		rankingA.PointsConceded += scoredB
		rankingB.PointsScored += scoredB
		rankingB.PointsConceded += scoredA
	}

	if err := rankingRepo.Update(ctx, exec, rankingA); err != nil {
		return nil, nil, err
	}
	if err := rankingRepo.Update(ctx, exec, rankingB); err != nil {
		return nil, nil, err
	}
	return rankingA, rankingB, nil
}

func applyOutcome(ranking *models.Ranking, league *models.League, won bool) {
	ranking.MatchesPlayed++
	if won {
		ranking.Wins++
		ranking.Points += league.PointsPerWin
	} else {
		ranking.Losses++
		ranking.Points += league.PointsPerLoss
	}
}

func (s *rankingService) RecalculateLeagueRankings(ctx context.Context, currentUserID, leagueID int) (*RecalculateResult, error) {
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

	completed := models.MatchStatusCompleted
	matches, err := s.matchRepo.ListByLeague(ctx, leagueID, &completed)
	if err != nil {
		return nil, err
	}

	accumulated := make(map[int]*models.Ranking)
	rowFor := func(teamID int) *models.Ranking {
		row, ok := accumulated[teamID]
		if !ok {
			row = &models.Ranking{LeagueID: leagueID, TeamID: teamID, UpdatedAt: time.Now()}
			accumulated[teamID] = row
		}
		return row
	}

	processed := 0
	for _, m := range matches {
		if !m.HasResult() {
			s.logger.Warn("completed match without a full result skipped in recompute",
				slog.Int("league_id", leagueID), slog.Int("match_id", m.ID))
			continue
		}
		rowA, rowB := rowFor(m.TeamAID), rowFor(m.TeamBID)
		applyOutcome(rowA, league, *m.WinnerID == m.TeamAID)
		applyOutcome(rowB, league, *m.WinnerID == m.TeamBID)

		setsA, setsB := setWins(m.TeamAScore, m.TeamBScore)
		rowA.SetsWon += setsA
		rowA.SetsLost += setsB
		rowB.SetsWon += setsB
		rowB.SetsLost += setsA

		scoredA, scoredB := sumScores(m.TeamAScore), sumScores(m.TeamBScore)
		rowA.PointsScored += scoredA
		rowA.PointsConceded += scoredB
		rowB.PointsScored += scoredB
		rowB.PointsConceded += scoredA
		processed++
	}

	// Stable insert order keeps repeated recomputes byte-identical.
	rows := make([]*models.Ranking, 0, len(accumulated))
	for _, row := range accumulated {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TeamID < rows[j].TeamID })

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.rankingRepo.DeleteByLeague(ctx, exec, leagueID); err != nil {
			return err
		}
		return s.rankingRepo.BatchCreate(ctx, exec, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild rankings for league %d: %w", leagueID, err)
	}

	s.logger.Info("league rankings recalculated",
		slog.Int("league_id", leagueID),
		slog.Int("teams", len(rows)),
		slog.Int("matches", processed))

	s.hub.BroadcastToRoom(schedule.LeagueRoom(leagueID), schedule.Event{
		Type:    schedule.EventRankingsUpdated,
		Payload: map[string]interface{}{"league_id": leagueID},
	})
	return &RecalculateResult{TeamsProcessed: len(rows), MatchesProcessed: processed}, nil
}

func (s *rankingService) GetStandings(ctx context.Context, leagueID int) ([]*models.Ranking, error) {
	if _, err := s.leagueRepo.GetByID(ctx, leagueID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}

	rankings, err := s.rankingRepo.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	for i, row := range rankings {
		position := i + 1
		row.Rank = &position
		team, err := s.teamRepo.GetByID(ctx, row.TeamID)
		if err == nil {
			row.Team = team
		}
	}
	return rankings, nil
}
