package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/morhendos/padel-league/models"
	"github.com/morhendos/padel-league/repositories"
	"github.com/morhendos/padel-league/schedule"
	"github.com/morhendos/padel-league/storage"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPointsPerWin  = 3
	defaultPointsPerLoss = 0

	noteCanceledOnCompletion   = "auto-canceled on league completion"
	noteCanceledOnCancellation = "auto-canceled on league cancellation"
)

type CreateLeagueInput struct {
	Name                 string             `json:"name"`
	Description          *string            `json:"description"`
	RegistrationDeadline time.Time          `json:"registration_deadline"`
	StartDate            time.Time          `json:"start_date"`
	EndDate              time.Time          `json:"end_date"`
	MinTeams             int                `json:"min_teams"`
	MaxTeams             int                `json:"max_teams"`
	MatchFormat          models.MatchFormat `json:"match_format"`
	PointsPerWin         *int               `json:"points_per_win"`
	PointsPerLoss        *int               `json:"points_per_loss"`
	Venue                *string            `json:"venue"`
}

type LeagueService interface {
	CreateLeague(ctx context.Context, currentUserID int, input CreateLeagueInput) (*models.League, error)
	GetLeagueByID(ctx context.Context, id int) (*models.League, error)
	ListLeagues(ctx context.Context, filter repositories.ListLeaguesFilter) ([]models.League, error)
	UpdateLeague(ctx context.Context, currentUserID, leagueID int, input CreateLeagueInput) (*models.League, error)
	DeleteLeague(ctx context.Context, currentUserID, leagueID int) error
	TransitionStatus(ctx context.Context, currentUserID, leagueID int, newStatus models.LeagueStatus) (*models.League, error)
	UploadBanner(ctx context.Context, currentUserID, leagueID int, contentType string, content io.Reader) (*models.League, error)
}

type leagueService struct {
	leagueRepo repositories.LeagueRepository
	teamRepo   repositories.TeamRepository
	matchRepo  repositories.MatchRepository
	userRepo   repositories.UserRepository
	tx         repositories.Transactor
	locker     *LeagueLocker
	hub        *schedule.Hub
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewLeagueService(
	leagueRepo repositories.LeagueRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	tx repositories.Transactor,
	locker *LeagueLocker,
	hub *schedule.Hub,
	uploader storage.FileUploader,
	logger *slog.Logger,
) LeagueService {
	return &leagueService{
		leagueRepo: leagueRepo,
		teamRepo:   teamRepo,
		matchRepo:  matchRepo,
		userRepo:   userRepo,
		tx:         tx,
		locker:     locker,
		hub:        hub,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *leagueService) validateInput(input *CreateLeagueInput) error {
	if input.Name == "" {
		return ErrLeagueNameRequired
	}
	if err := validateLeagueDates(input.RegistrationDeadline, input.StartDate, input.EndDate); err != nil {
		return err
	}
	if input.MinTeams < 2 {
		input.MinTeams = 2
	}
	if input.MaxTeams == 0 {
		input.MaxTeams = input.MinTeams
	}
	if input.MinTeams > input.MaxTeams {
		return fmt.Errorf("%w: min %d, max %d", ErrLeagueInvalidBounds, input.MinTeams, input.MaxTeams)
	}
	switch input.MatchFormat {
	case models.FormatBestOfThree, models.FormatBestOfFive, models.FormatSingleSet:
	case "":
		input.MatchFormat = models.FormatBestOfThree
	default:
		return fmt.Errorf("%w: unknown match format %q", ErrValidationFailed, input.MatchFormat)
	}
	return nil
}

func (s *leagueService) CreateLeague(ctx context.Context, currentUserID int, input CreateLeagueInput) (*models.League, error) {
	user, err := s.requireUser(ctx, currentUserID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleOrganizer && user.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only organizers can create leagues", ErrForbiddenOperation)
	}
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	pointsPerWin := defaultPointsPerWin
	if input.PointsPerWin != nil {
		pointsPerWin = *input.PointsPerWin
	}
	pointsPerLoss := defaultPointsPerLoss
	if input.PointsPerLoss != nil {
		pointsPerLoss = *input.PointsPerLoss
	}

	league := &models.League{
		Name:                 input.Name,
		Description:          input.Description,
		OrganizerID:          currentUserID,
		RegistrationDeadline: input.RegistrationDeadline,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		MinTeams:             input.MinTeams,
		MaxTeams:             input.MaxTeams,
		MatchFormat:          input.MatchFormat,
		PointsPerWin:         pointsPerWin,
		PointsPerLoss:        pointsPerLoss,
		Venue:                input.Venue,
		Status:               models.LeagueStatusDraft,
	}
	if err := s.leagueRepo.Create(ctx, league); err != nil {
		if errors.Is(err, repositories.ErrLeagueNameConflict) {
			return nil, ErrLeagueNameConflict
		}
		return nil, err
	}
	return league, nil
}

// GetLeagueByID loads the league with its organizer and team set populated in
// parallel.
func (s *leagueService) GetLeagueByID(ctx context.Context, id int) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		organizer, err := s.userRepo.GetByID(gCtx, league.OrganizerID)
		if err != nil {
			return fmt.Errorf("failed to load organizer %d: %w", league.OrganizerID, err)
		}
		organizer.PasswordHash = ""
		league.Organizer = organizer
		return nil
	})
	g.Go(func() error {
		teams, err := s.teamRepo.ListByLeague(gCtx, league.ID)
		if err != nil {
			return fmt.Errorf("failed to load teams for league %d: %w", league.ID, err)
		}
		league.Teams = make([]models.Team, 0, len(teams))
		for _, t := range teams {
			populateTeamLogoURL(t, s.uploader)
			league.Teams = append(league.Teams, *t)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	populateLeagueBannerURL(league, s.uploader)
	return league, nil
}

func (s *leagueService) ListLeagues(ctx context.Context, filter repositories.ListLeaguesFilter) ([]models.League, error) {
	leagues, err := s.leagueRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range leagues {
		populateLeagueBannerURL(&leagues[i], s.uploader)
	}
	return leagues, nil
}

func (s *leagueService) UpdateLeague(ctx context.Context, currentUserID, leagueID int, input CreateLeagueInput) (*models.League, error) {
	league, _, err := s.requireManagedLeague(ctx, currentUserID, leagueID)
	if err != nil {
		return nil, err
	}

	if league.Status != models.LeagueStatusDraft && league.Status != models.LeagueStatusRegistration {
		return nil, fmt.Errorf("%w: league can only be edited before activation", ErrLeagueInvalidState)
	}
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	league.Name = input.Name
	league.Description = input.Description
	league.RegistrationDeadline = input.RegistrationDeadline
	league.StartDate = input.StartDate
	league.EndDate = input.EndDate
	league.MinTeams = input.MinTeams
	league.MaxTeams = input.MaxTeams
	league.MatchFormat = input.MatchFormat
	league.Venue = input.Venue
	if input.PointsPerWin != nil {
		league.PointsPerWin = *input.PointsPerWin
	}
	if input.PointsPerLoss != nil {
		league.PointsPerLoss = *input.PointsPerLoss
	}

	if err := s.leagueRepo.Update(ctx, league); err != nil {
		if errors.Is(err, repositories.ErrLeagueNameConflict) {
			return nil, ErrLeagueNameConflict
		}
		return nil, err
	}
	return league, nil
}

func (s *leagueService) DeleteLeague(ctx context.Context, currentUserID, leagueID int) error {
	league, _, err := s.requireManagedLeague(ctx, currentUserID, leagueID)
	if err != nil {
		return err
	}
	if league.Status != models.LeagueStatusDraft {
		return fmt.Errorf("%w: only draft leagues can be deleted", ErrLeagueInvalidState)
	}
	count, err := s.matchRepo.CountByLeague(ctx, leagueID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: clear the schedule first", ErrLeagueHasMatches)
	}
	return s.leagueRepo.Delete(ctx, leagueID)
}

// TransitionStatus moves the league through its lifecycle. Guards run before
// side effects; side effects and the status write share one transaction.
func (s *leagueService) TransitionStatus(ctx context.Context, currentUserID, leagueID int, newStatus models.LeagueStatus) (*models.League, error) {
	switch newStatus {
	case models.LeagueStatusDraft, models.LeagueStatusRegistration, models.LeagueStatusActive,
		models.LeagueStatusCompleted, models.LeagueStatusCanceled:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidationFailed, newStatus)
	}

	lock := s.locker.forLeague(leagueID)
	lock.Lock()
	defer lock.Unlock()

	league, _, err := s.requireManagedLeague(ctx, currentUserID, leagueID)
	if err != nil {
		return nil, err
	}

	if league.Status == newStatus {
		return league, nil
	}
	if !isValidStatusTransition(league.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, league.Status, newStatus)
	}

	if newStatus == models.LeagueStatusActive {
		teamCount, err := s.leagueRepo.CountTeams(ctx, leagueID)
		if err != nil {
			return nil, err
		}
		if teamCount < league.MinTeams {
			return nil, fmt.Errorf("%w: %d registered, %d required", ErrInsufficientTeams, teamCount, league.MinTeams)
		}
		if !league.ScheduleGenerated {
			return nil, ErrScheduleRequired
		}
	}

	previous := league.Status
	now := time.Now()

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		switch newStatus {
		case models.LeagueStatusActive:
			if league.ActivatedAt == nil {
				league.ActivatedAt = &now
			}
		case models.LeagueStatusCompleted:
			league.CompletedAt = &now
			canceled, err := s.matchRepo.CancelAllExcept(ctx, exec, leagueID,
				[]models.MatchStatus{models.MatchStatusCompleted, models.MatchStatusCanceled},
				noteCanceledOnCompletion)
			if err != nil {
				return err
			}
			s.logger.Info("canceled pending matches on league completion",
				slog.Int("league_id", leagueID), slog.Int64("matches", canceled))
		case models.LeagueStatusCanceled:
			league.CanceledAt = &now
			canceled, err := s.matchRepo.CancelAllExcept(ctx, exec, leagueID,
				[]models.MatchStatus{models.MatchStatusCanceled},
				noteCanceledOnCancellation)
			if err != nil {
				return err
			}
			s.logger.Info("canceled matches on league cancellation",
				slog.Int("league_id", leagueID), slog.Int64("matches", canceled))
		case models.LeagueStatusDraft:
			if previous == models.LeagueStatusCanceled {
				league.CanceledAt = nil
			}
		}

		league.Status = newStatus
		return s.leagueRepo.UpdateStatus(ctx, exec, league)
	})
	if err != nil {
		league.Status = previous
		return nil, err
	}

	s.hub.BroadcastToRoom(schedule.LeagueRoom(leagueID), schedule.Event{
		Type: schedule.EventStatusChanged,
		Payload: map[string]interface{}{
			"league_id": leagueID,
			"from":      previous,
			"to":        newStatus,
		},
	})
	return league, nil
}

func (s *leagueService) UploadBanner(ctx context.Context, currentUserID, leagueID int, contentType string, content io.Reader) (*models.League, error) {
	if s.uploader == nil {
		return nil, ErrUploaderNotConfigured
	}
	league, _, err := s.requireManagedLeague(ctx, currentUserID, leagueID)
	if err != nil {
		return nil, err
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("leagues/%d/banner%s", leagueID, ext)

	if _, err := s.uploader.Upload(ctx, key, contentType, content); err != nil {
		return nil, fmt.Errorf("failed to upload league banner: %w", err)
	}
	if err := s.leagueRepo.UpdateBannerKey(ctx, leagueID, &key); err != nil {
		return nil, err
	}

	league.BannerKey = &key
	populateLeagueBannerURL(league, s.uploader)
	return league, nil
}

func (s *leagueService) requireUser(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *leagueService) requireManagedLeague(ctx context.Context, currentUserID, leagueID int) (*models.League, *models.User, error) {
	league, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, nil, ErrLeagueNotFound
		}
		return nil, nil, err
	}
	user, err := s.requireUser(ctx, currentUserID)
	if err != nil {
		return nil, nil, err
	}
	if !canManageLeague(user, league) {
		return nil, nil, ErrForbiddenOperation
	}
	return league, user, nil
}

func populateLeagueBannerURL(league *models.League, uploader storage.FileUploader) {
	if league != nil && league.BannerKey != nil && *league.BannerKey != "" && uploader != nil {
		if url := uploader.GetPublicURL(*league.BannerKey); url != "" {
			league.BannerURL = &url
		}
	}
}

func populateTeamLogoURL(team *models.Team, uploader storage.FileUploader) {
	if team != nil && team.LogoKey != nil && *team.LogoKey != "" && uploader != nil {
		if url := uploader.GetPublicURL(*team.LogoKey); url != "" {
			team.LogoURL = &url
		}
	}
}
