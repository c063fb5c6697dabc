package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/morhendos/padel-league/models"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchInvalidLeague = errors.New("match league conflict or invalid")
	ErrMatchInvalidTeam   = errors.New("match team conflict or invalid")
)

type MatchRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByLeague(ctx context.Context, leagueID int, status *models.MatchStatus) ([]*models.Match, error)
	CountByLeague(ctx context.Context, leagueID int) (int, error)
	DeleteByLeague(ctx context.Context, exec SQLExecutor, leagueID int) (int64, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateSchedule(ctx context.Context, match *models.Match) error
	SetConfirmedBy(ctx context.Context, matchID, userID int) error

	// CancelAllExcept bulk-cancels every league match whose status is not in
	// keepStatuses, attaching the given note. Returns the number of matches
	// canceled.
	CancelAllExcept(ctx context.Context, exec SQLExecutor, leagueID int, keepStatuses []models.MatchStatus, note string) (int64, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, league_id, team_a_id, team_b_id, round, scheduled_date, scheduled_time,
	location, status, team_a_score, team_b_score, winner_id, note,
	submitted_by, confirmed_by, result_applied_at, created_at`

func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches
			(league_id, team_a_id, team_b_id, round, scheduled_date, scheduled_time, location, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	for _, m := range matches {
		err := executor.QueryRowContext(ctx, query,
			m.LeagueID, m.TeamAID, m.TeamBID, m.Round,
			m.ScheduledDate, m.ScheduledTime, m.Location, m.Status,
		).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return r.handleMatchError(err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := rowScanner.Scan(
		&m.ID, &m.LeagueID, &m.TeamAID, &m.TeamBID, &m.Round,
		&m.ScheduledDate, &m.ScheduledTime, &m.Location, &m.Status,
		pq.Array(&m.TeamAScore), pq.Array(&m.TeamBScore), &m.WinnerID, &m.Note,
		&m.SubmittedByID, &m.ConfirmedByID, &m.ResultAppliedAt, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	return r.scanMatch(row)
}

func (r *postgresMatchRepository) ListByLeague(ctx context.Context, leagueID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE league_id = $1`)

	args := []interface{}{leagueID}
	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(len(args)+1))
		args = append(args, *statusFilter)
	}
	queryBuilder.WriteString(" ORDER BY round ASC, scheduled_date ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) CountByLeague(ctx context.Context, leagueID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE league_id = $1`, leagueID).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) DeleteByLeague(ctx context.Context, exec SQLExecutor, leagueID int) (int64, error) {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE league_id = $1`, leagueID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches SET
			team_a_score = $1, team_b_score = $2, winner_id = $3, status = $4,
			submitted_by = $5, result_applied_at = $6
		WHERE id = $7`

	result, err := executor.ExecContext(ctx, query,
		pq.Array(m.TeamAScore), pq.Array(m.TeamBScore), m.WinnerID, m.Status,
		m.SubmittedByID, m.ResultAppliedAt, m.ID,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateSchedule(ctx context.Context, m *models.Match) error {
	query := `
		UPDATE matches SET
			scheduled_date = $1, scheduled_time = $2, location = $3, status = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		m.ScheduledDate, m.ScheduledTime, m.Location, m.Status, m.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetConfirmedBy(ctx context.Context, matchID, userID int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE matches SET confirmed_by = $1 WHERE id = $2`, userID, matchID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CancelAllExcept(ctx context.Context, exec SQLExecutor, leagueID int, keepStatuses []models.MatchStatus, note string) (int64, error) {
	executor := r.getExecutor(exec)

	keep := make([]string, len(keepStatuses))
	for i, s := range keepStatuses {
		keep[i] = string(s)
	}
	query := `
		UPDATE matches SET status = $1, note = $2
		WHERE league_id = $3 AND status <> ALL($4)`

	result, err := executor.ExecContext(ctx, query,
		models.MatchStatusCanceled, note, leagueID, pq.Array(keep))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "matches_league_id_fkey":
			return ErrMatchInvalidLeague
		case "matches_team_a_id_fkey", "matches_team_b_id_fkey", "matches_winner_id_fkey":
			return ErrMatchInvalidTeam
		}
	}
	return err
}
