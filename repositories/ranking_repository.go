package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/morhendos/padel-league/models"
)

var ErrRankingNotFound = errors.New("ranking not found")

type RankingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, ranking *models.Ranking) error
	GetByLeagueAndTeam(ctx context.Context, exec SQLExecutor, leagueID, teamID int) (*models.Ranking, error)
	GetOrCreate(ctx context.Context, exec SQLExecutor, leagueID, teamID int) (*models.Ranking, error)
	Update(ctx context.Context, exec SQLExecutor, ranking *models.Ranking) error
	BatchCreate(ctx context.Context, exec SQLExecutor, rankings []*models.Ranking) error
	DeleteByLeague(ctx context.Context, exec SQLExecutor, leagueID int) error

	// ListByLeague returns rankings ordered for display: points descending,
	// wins descending, team id ascending for a stable order.
	ListByLeague(ctx context.Context, leagueID int) ([]*models.Ranking, error)
}

type postgresRankingRepository struct {
	db *sql.DB
}

func NewPostgresRankingRepository(db *sql.DB) RankingRepository {
	return &postgresRankingRepository{db: db}
}

func (r *postgresRankingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const rankingColumns = `
	id, league_id, team_id, points, matches_played, wins, losses,
	sets_won, sets_lost, points_scored, points_conceded, updated_at`

func (r *postgresRankingRepository) Create(ctx context.Context, exec SQLExecutor, s *models.Ranking) error {
	executor := r.getExecutor(exec)
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	query := `
		INSERT INTO rankings
			(league_id, team_id, points, matches_played, wins, losses,
			 sets_won, sets_lost, points_scored, points_conceded, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		s.LeagueID, s.TeamID, s.Points, s.MatchesPlayed, s.Wins, s.Losses,
		s.SetsWon, s.SetsLost, s.PointsScored, s.PointsConceded, s.UpdatedAt,
	).Scan(&s.ID)
}

func (r *postgresRankingRepository) scanRanking(rowScanner interface{ Scan(...interface{}) error }) (*models.Ranking, error) {
	var s models.Ranking
	err := rowScanner.Scan(
		&s.ID, &s.LeagueID, &s.TeamID, &s.Points, &s.MatchesPlayed, &s.Wins,
		&s.Losses, &s.SetsWon, &s.SetsLost, &s.PointsScored, &s.PointsConceded,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRankingNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresRankingRepository) GetByLeagueAndTeam(ctx context.Context, exec SQLExecutor, leagueID, teamID int) (*models.Ranking, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx,
		`SELECT `+rankingColumns+` FROM rankings WHERE league_id = $1 AND team_id = $2`,
		leagueID, teamID)
	return r.scanRanking(row)
}

func (r *postgresRankingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, leagueID, teamID int) (*models.Ranking, error) {
	executor := r.getExecutor(exec)
	ranking, err := r.GetByLeagueAndTeam(ctx, executor, leagueID, teamID)
	if err != nil {
		if errors.Is(err, ErrRankingNotFound) {
			fresh := &models.Ranking{LeagueID: leagueID, TeamID: teamID, UpdatedAt: time.Now()}
			if createErr := r.Create(ctx, executor, fresh); createErr != nil {
				return nil, fmt.Errorf("failed to create ranking for league %d team %d: %w", leagueID, teamID, createErr)
			}
			return fresh, nil
		}
		return nil, err
	}
	return ranking, nil
}

func (r *postgresRankingRepository) Update(ctx context.Context, exec SQLExecutor, s *models.Ranking) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE rankings SET
			points = $1, matches_played = $2, wins = $3, losses = $4,
			sets_won = $5, sets_lost = $6, points_scored = $7,
			points_conceded = $8, updated_at = NOW()
		WHERE id = $9`

	result, err := executor.ExecContext(ctx, query,
		s.Points, s.MatchesPlayed, s.Wins, s.Losses,
		s.SetsWon, s.SetsLost, s.PointsScored, s.PointsConceded, s.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRankingNotFound)
}

func (r *postgresRankingRepository) BatchCreate(ctx context.Context, exec SQLExecutor, rankings []*models.Ranking) error {
	for _, s := range rankings {
		if err := r.Create(ctx, exec, s); err != nil {
			return fmt.Errorf("batch create failed for team %d: %w", s.TeamID, err)
		}
	}
	return nil
}

func (r *postgresRankingRepository) DeleteByLeague(ctx context.Context, exec SQLExecutor, leagueID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM rankings WHERE league_id = $1`, leagueID)
	return err
}

func (r *postgresRankingRepository) ListByLeague(ctx context.Context, leagueID int) ([]*models.Ranking, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+rankingColumns+` FROM rankings
		WHERE league_id = $1
		ORDER BY points DESC, wins DESC, team_id ASC`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rankings := make([]*models.Ranking, 0)
	for rows.Next() {
		s, scanErr := r.scanRanking(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rankings = append(rankings, s)
	}
	return rankings, rows.Err()
}
