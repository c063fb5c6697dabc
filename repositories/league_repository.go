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
	ErrLeagueNotFound        = errors.New("league not found")
	ErrLeagueNameConflict    = errors.New("league name conflict for this organizer")
	ErrLeagueInvalidOrg      = errors.New("invalid organizer reference")
	ErrLeagueTeamConflict    = errors.New("team is already registered in this league")
	ErrLeagueTeamNotFound    = errors.New("team is not registered in this league")
	ErrLeagueTeamInvalidTeam = errors.New("invalid team reference")
)

type ListLeaguesFilter struct {
	OrganizerID *int
	Status      *models.LeagueStatus
	Limit       int
	Offset      int
}

type LeagueRepository interface {
	Create(ctx context.Context, league *models.League) error
	GetByID(ctx context.Context, id int) (*models.League, error)
	List(ctx context.Context, filter ListLeaguesFilter) ([]models.League, error)
	Update(ctx context.Context, league *models.League) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, league *models.League) error
	SetScheduleGenerated(ctx context.Context, exec SQLExecutor, id int, generated bool) error
	UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error
	Delete(ctx context.Context, id int) error

	// League-team membership set. The teams.league_id column is kept in sync
	// by the team service within the same transaction.
	AddTeam(ctx context.Context, exec SQLExecutor, leagueID, teamID int) error
	RemoveTeam(ctx context.Context, exec SQLExecutor, leagueID, teamID int) error
	ListTeamIDs(ctx context.Context, leagueID int) ([]int, error)
	CountTeams(ctx context.Context, leagueID int) (int, error)
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

func (r *postgresLeagueRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const leagueColumns = `
	id, name, description, organizer_id, registration_deadline, start_date,
	end_date, min_teams, max_teams, match_format, points_per_win,
	points_per_loss, venue, status, schedule_generated, activated_at,
	completed_at, canceled_at, banner_key, created_at`

func (r *postgresLeagueRepository) Create(ctx context.Context, l *models.League) error {
	query := `
		INSERT INTO leagues (
			name, description, organizer_id, registration_deadline, start_date,
			end_date, min_teams, max_teams, match_format, points_per_win,
			points_per_loss, venue, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, schedule_generated, created_at`

	err := r.db.QueryRowContext(ctx, query,
		l.Name, l.Description, l.OrganizerID, l.RegistrationDeadline, l.StartDate,
		l.EndDate, l.MinTeams, l.MaxTeams, l.MatchFormat, l.PointsPerWin,
		l.PointsPerLoss, l.Venue, l.Status,
	).Scan(&l.ID, &l.ScheduleGenerated, &l.CreatedAt)

	return r.handleLeagueError(err)
}

func (r *postgresLeagueRepository) scanLeague(rowScanner interface{ Scan(...interface{}) error }) (*models.League, error) {
	var l models.League
	err := rowScanner.Scan(
		&l.ID, &l.Name, &l.Description, &l.OrganizerID, &l.RegistrationDeadline,
		&l.StartDate, &l.EndDate, &l.MinTeams, &l.MaxTeams, &l.MatchFormat,
		&l.PointsPerWin, &l.PointsPerLoss, &l.Venue, &l.Status, &l.ScheduleGenerated,
		&l.ActivatedAt, &l.CompletedAt, &l.CanceledAt, &l.BannerKey, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *postgresLeagueRepository) GetByID(ctx context.Context, id int) (*models.League, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE id = $1`, id)
	return r.scanLeague(row)
}

func (r *postgresLeagueRepository) List(ctx context.Context, filter ListLeaguesFilter) ([]models.League, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + leagueColumns + ` FROM leagues WHERE 1=1`)

	args := make([]interface{}, 0, 4)
	placeholder := 1

	if filter.OrganizerID != nil {
		queryBuilder.WriteString(" AND organizer_id = $" + strconv.Itoa(placeholder))
		args = append(args, *filter.OrganizerID)
		placeholder++
	}
	if filter.Status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(placeholder))
		args = append(args, *filter.Status)
		placeholder++
	}

	queryBuilder.WriteString(" ORDER BY start_date DESC, id DESC")
	if filter.Limit > 0 {
		queryBuilder.WriteString(" LIMIT $" + strconv.Itoa(placeholder))
		args = append(args, filter.Limit)
		placeholder++
	}
	if filter.Offset > 0 {
		queryBuilder.WriteString(" OFFSET $" + strconv.Itoa(placeholder))
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leagues := make([]models.League, 0)
	for rows.Next() {
		l, scanErr := r.scanLeague(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		leagues = append(leagues, *l)
	}
	return leagues, rows.Err()
}

func (r *postgresLeagueRepository) Update(ctx context.Context, l *models.League) error {
	query := `
		UPDATE leagues SET
			name = $1, description = $2, registration_deadline = $3,
			start_date = $4, end_date = $5, min_teams = $6, max_teams = $7,
			match_format = $8, points_per_win = $9, points_per_loss = $10,
			venue = $11
		WHERE id = $12`

	result, err := r.db.ExecContext(ctx, query,
		l.Name, l.Description, l.RegistrationDeadline, l.StartDate, l.EndDate,
		l.MinTeams, l.MaxTeams, l.MatchFormat, l.PointsPerWin, l.PointsPerLoss,
		l.Venue, l.ID,
	)
	if err != nil {
		return r.handleLeagueError(err)
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

// UpdateStatus persists the status together with the lifecycle timestamps set
// by the state machine side effects.
func (r *postgresLeagueRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, l *models.League) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE leagues SET
			status = $1, activated_at = $2, completed_at = $3, canceled_at = $4
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query,
		l.Status, l.ActivatedAt, l.CompletedAt, l.CanceledAt, l.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) SetScheduleGenerated(ctx context.Context, exec SQLExecutor, id int, generated bool) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE leagues SET schedule_generated = $1 WHERE id = $2`, generated, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE leagues SET banner_key = $1 WHERE id = $2`, bannerKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM leagues WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) AddTeam(ctx context.Context, exec SQLExecutor, leagueID, teamID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`INSERT INTO league_teams (league_id, team_id) VALUES ($1, $2)`, leagueID, teamID)
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrLeagueTeamConflict
		case "23503":
			if pqErr.Constraint == "league_teams_team_id_fkey" {
				return ErrLeagueTeamInvalidTeam
			}
			return ErrLeagueNotFound
		}
	}
	return err
}

func (r *postgresLeagueRepository) RemoveTeam(ctx context.Context, exec SQLExecutor, leagueID, teamID int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`DELETE FROM league_teams WHERE league_id = $1 AND team_id = $2`, leagueID, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueTeamNotFound)
}

func (r *postgresLeagueRepository) ListTeamIDs(ctx context.Context, leagueID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT team_id FROM league_teams WHERE league_id = $1 ORDER BY team_id`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresLeagueRepository) CountTeams(ctx context.Context, leagueID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM league_teams WHERE league_id = $1`, leagueID).Scan(&count)
	return count, err
}

func (r *postgresLeagueRepository) handleLeagueError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrLeagueNameConflict
		case "23503":
			if pqErr.Constraint == "leagues_organizer_id_fkey" {
				return ErrLeagueInvalidOrg
			}
		}
	}
	return err
}
