package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/morhendos/padel-league/models"
	"github.com/morhendos/padel-league/repositories"
	"github.com/morhendos/padel-league/storage"
)

const maxTeamPlayers = 2

type CreateTeamInput struct {
	Name      string `json:"name"`
	PlayerIDs []int  `json:"player_ids"`
}

type TeamService interface {
	CreateTeam(ctx context.Context, currentUserID int, input CreateTeamInput) (*models.Team, error)
	GetTeamByID(ctx context.Context, id int) (*models.Team, error)
	UpdateTeam(ctx context.Context, currentUserID int, team *models.Team) error
	DeleteTeam(ctx context.Context, currentUserID, teamID int) error

	// JoinLeague registers the team in the league, keeping the membership
	// row and the team's own league reference in sync in one transaction.
	JoinLeague(ctx context.Context, currentUserID, teamID, leagueID int) error
	LeaveLeague(ctx context.Context, currentUserID, teamID int) error

	UploadLogo(ctx context.Context, currentUserID, teamID int, contentType string, content io.Reader) (*models.Team, error)
}

type teamService struct {
	teamRepo   repositories.TeamRepository
	leagueRepo repositories.LeagueRepository
	userRepo   repositories.UserRepository
	tx         repositories.Transactor
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	leagueRepo repositories.LeagueRepository,
	userRepo repositories.UserRepository,
	tx repositories.Transactor,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		teamRepo:   teamRepo,
		leagueRepo: leagueRepo,
		userRepo:   userRepo,
		tx:         tx,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, currentUserID int, input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	playerIDs := input.PlayerIDs
	if len(playerIDs) == 0 {
		playerIDs = []int{currentUserID}
	}
	if len(playerIDs) > maxTeamPlayers {
		return nil, fmt.Errorf("%w: got %d", ErrTeamRosterSize, len(playerIDs))
	}
	for _, id := range playerIDs {
		if _, err := s.userRepo.GetByID(ctx, id); err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return nil, fmt.Errorf("%w: player %d", ErrUserNotFound, id)
			}
			return nil, err
		}
	}

	team := &models.Team{
		Name:      name,
		CreatorID: currentUserID,
		Active:    true,
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, err
	}
	for _, id := range playerIDs {
		if err := s.teamRepo.AddPlayer(ctx, team.ID, id); err != nil {
			return nil, err
		}
	}

	players, err := s.teamRepo.ListPlayers(ctx, team.ID)
	if err != nil {
		return nil, err
	}
	team.Players = players
	return team, nil
}

func (s *teamService) GetTeamByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	players, err := s.teamRepo.ListPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	team.Players = players
	populateTeamLogoURL(team, s.uploader)
	return team, nil
}

func (s *teamService) UpdateTeam(ctx context.Context, currentUserID int, team *models.Team) error {
	existing, err := s.requireOwnedTeam(ctx, currentUserID, team.ID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(team.Name) == "" {
		return ErrTeamNameRequired
	}
	existing.Name = strings.TrimSpace(team.Name)
	existing.Active = team.Active

	if err := s.teamRepo.Update(ctx, existing); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return ErrTeamNameConflict
		}
		return err
	}
	return nil
}

func (s *teamService) DeleteTeam(ctx context.Context, currentUserID, teamID int) error {
	team, err := s.requireOwnedTeam(ctx, currentUserID, teamID)
	if err != nil {
		return err
	}
	if team.LeagueID != nil {
		return fmt.Errorf("%w: leave the league first", ErrTeamAlreadyInLeague)
	}
	return s.teamRepo.Delete(ctx, teamID)
}

func (s *teamService) JoinLeague(ctx context.Context, currentUserID, teamID, leagueID int) error {
	team, err := s.requireOwnedTeam(ctx, currentUserID, teamID)
	if err != nil {
		return err
	}
	if team.LeagueID != nil {
		return ErrTeamAlreadyInLeague
	}

	league, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return ErrLeagueNotFound
		}
		return err
	}
	switch league.Status {
	case models.LeagueStatusDraft:
		// Organizers may seed teams before opening registration.
	case models.LeagueStatusRegistration:
		if time.Now().After(league.RegistrationDeadline) {
			return fmt.Errorf("%w: deadline was %s", ErrRegistrationClosed,
				league.RegistrationDeadline.Format(time.RFC3339))
		}
	default:
		return fmt.Errorf("%w: league is %s", ErrRegistrationClosed, league.Status)
	}

	count, err := s.leagueRepo.CountTeams(ctx, leagueID)
	if err != nil {
		return err
	}
	if count >= league.MaxTeams {
		return fmt.Errorf("%w: %d of %d slots taken", ErrLeagueFull, count, league.MaxTeams)
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.leagueRepo.AddTeam(ctx, exec, leagueID, teamID); err != nil {
			return err
		}
		return s.teamRepo.UpdateLeague(ctx, exec, teamID, &leagueID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueTeamConflict) {
			return ErrTeamAlreadyInLeague
		}
		return err
	}

	s.logger.Info("team joined league",
		slog.Int("team_id", teamID), slog.Int("league_id", leagueID))
	return nil
}

func (s *teamService) LeaveLeague(ctx context.Context, currentUserID, teamID int) error {
	team, err := s.requireOwnedTeam(ctx, currentUserID, teamID)
	if err != nil {
		return err
	}
	if team.LeagueID == nil {
		return fmt.Errorf("%w: team is not in a league", ErrValidationFailed)
	}
	leagueID := *team.LeagueID

	league, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return ErrLeagueNotFound
		}
		return err
	}
	if league.Status == models.LeagueStatusActive || league.Status == models.LeagueStatusCompleted {
		return fmt.Errorf("%w: teams cannot leave once the league is %s", ErrLeagueInvalidState, league.Status)
	}

	return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.leagueRepo.RemoveTeam(ctx, exec, leagueID, teamID); err != nil {
			return err
		}
		return s.teamRepo.UpdateLeague(ctx, exec, teamID, nil)
	})
}

func (s *teamService) UploadLogo(ctx context.Context, currentUserID, teamID int, contentType string, content io.Reader) (*models.Team, error) {
	if s.uploader == nil {
		return nil, ErrUploaderNotConfigured
	}
	team, err := s.requireOwnedTeam(ctx, currentUserID, teamID)
	if err != nil {
		return nil, err
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("teams/%d/logo%s", teamID, ext)

	if _, err := s.uploader.Upload(ctx, key, contentType, content); err != nil {
		return nil, fmt.Errorf("failed to upload team logo: %w", err)
	}
	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, &key); err != nil {
		return nil, err
	}

	team.LogoKey = &key
	populateTeamLogoURL(team, s.uploader)
	return team, nil
}

// requireOwnedTeam loads the team and checks the caller is its creator, one
// of its players, or an admin.
func (s *teamService) requireOwnedTeam(ctx context.Context, currentUserID, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
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
	if user.Role == models.RoleAdmin || team.CreatorID == currentUserID {
		return team, nil
	}
	isPlayer, err := s.teamRepo.IsPlayer(ctx, teamID, currentUserID)
	if err != nil {
		return nil, err
	}
	if !isPlayer {
		return nil, ErrForbiddenOperation
	}
	return team, nil
}
