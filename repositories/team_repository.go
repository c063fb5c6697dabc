package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/morhendos/padel-league/models"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamNameConflict   = errors.New("team name is already in use")
	ErrTeamPlayerConflict = errors.New("player is already on this team")
	ErrTeamInvalidLeague  = errors.New("invalid league reference")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByIDs(ctx context.Context, ids []int) ([]*models.Team, error)
	ListByLeague(ctx context.Context, leagueID int) ([]*models.Team, error)
	Update(ctx context.Context, team *models.Team) error
	UpdateLeague(ctx context.Context, exec SQLExecutor, teamID int, leagueID *int) error
	UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error
	Delete(ctx context.Context, id int) error

	AddPlayer(ctx context.Context, teamID, userID int) error
	RemovePlayer(ctx context.Context, teamID, userID int) error
	ListPlayers(ctx context.Context, teamID int) ([]models.User, error)
	IsPlayer(ctx context.Context, teamID, userID int) (bool, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, t *models.Team) error {
	query := `
		INSERT INTO teams (name, league_id, creator_id, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.LeagueID, t.CreatorID, t.Active,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTeamError(err)
}

func (r *postgresTeamRepository) scanTeam(rowScanner interface{ Scan(...interface{}) error }) (*models.Team, error) {
	var t models.Team
	err := rowScanner.Scan(
		&t.ID, &t.Name, &t.LeagueID, &t.CreatorID, &t.Active, &t.LogoKey, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, league_id, creator_id, active, logo_key, created_at
		FROM teams WHERE id = $1`, id)
	return r.scanTeam(row)
}

func (r *postgresTeamRepository) ListByIDs(ctx context.Context, ids []int) ([]*models.Team, error) {
	if len(ids) == 0 {
		return []*models.Team{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, league_id, creator_id, active, logo_key, created_at
		FROM teams WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectTeams(rows)
}

func (r *postgresTeamRepository) ListByLeague(ctx context.Context, leagueID int) ([]*models.Team, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.league_id, t.creator_id, t.active, t.logo_key, t.created_at
		FROM teams t
		JOIN league_teams lt ON lt.team_id = t.id
		WHERE lt.league_id = $1
		ORDER BY t.name`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectTeams(rows)
}

func (r *postgresTeamRepository) collectTeams(rows *sql.Rows) ([]*models.Team, error) {
	teams := make([]*models.Team, 0)
	for rows.Next() {
		t, err := r.scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) Update(ctx context.Context, t *models.Team) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE teams SET name = $1, active = $2 WHERE id = $3`,
		t.Name, t.Active, t.ID)
	if err != nil {
		return r.handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateLeague(ctx context.Context, exec SQLExecutor, teamID int, leagueID *int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET league_id = $1 WHERE id = $2`, leagueID, teamID)
	if err != nil {
		return r.handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE teams SET logo_key = $1 WHERE id = $2`, logoKey, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) AddPlayer(ctx context.Context, teamID, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO team_players (team_id, user_id) VALUES ($1, $2)`, teamID, userID)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrTeamPlayerConflict
	}
	return err
}

func (r *postgresTeamRepository) RemovePlayer(ctx context.Context, teamID, userID int) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM team_players WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresTeamRepository) ListPlayers(ctx context.Context, teamID int) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.first_name, u.last_name, u.password_hash, u.role, u.created_at
		FROM users u
		JOIN team_players tp ON tp.user_id = u.id
		WHERE tp.team_id = $1
		ORDER BY u.id`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]models.User, 0, 2)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.FirstName, &u.LastName,
			&u.PasswordHash, &u.Role, &u.CreatedAt,
		); err != nil {
			return nil, err
		}
		u.PasswordHash = ""
		players = append(players, u)
	}
	return players, rows.Err()
}

func (r *postgresTeamRepository) IsPlayer(ctx context.Context, teamID, userID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM team_players WHERE team_id = $1 AND user_id = $2)`,
		teamID, userID).Scan(&exists)
	return exists, err
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrTeamNameConflict
		case "23503":
			if pqErr.Constraint == "teams_league_id_fkey" {
				return ErrTeamInvalidLeague
			}
		}
	}
	return err
}
