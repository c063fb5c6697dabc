package services

import "errors"

// Shared sentinel errors, mapped to HTTP statuses by the handler layer.
var (
	// Not found
	ErrLeagueNotFound = errors.New("league not found")
	ErrTeamNotFound   = errors.New("team not found")
	ErrMatchNotFound  = errors.New("match not found")
	ErrUserNotFound   = errors.New("user not found")

	// Authentication / authorization
	ErrAuthenticationFailed = errors.New("invalid email or password")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Validation and business rules
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrLeagueNameRequired    = errors.New("league name is required")
	ErrTeamNameRequired      = errors.New("team name is required")
	ErrLeagueDatesRequired   = errors.New("league dates are required")
	ErrLeagueInvalidDeadline = errors.New("registration deadline must not be after the start date")
	ErrLeagueInvalidDates    = errors.New("league end date must not be before start date")
	ErrLeagueInvalidBounds   = errors.New("league min teams must not exceed max teams")
	ErrTeamRosterSize        = errors.New("a team must have 1 or 2 players")

	// Conflicts
	ErrEmailConflict      = errors.New("email address is already in use")
	ErrTeamNameConflict   = errors.New("team name is already in use")
	ErrLeagueNameConflict = errors.New("league name is already in use")
	ErrTeamAlreadyInLeague = errors.New("team is already registered in a league")
	ErrLeagueFull          = errors.New("league has reached its maximum number of teams")
	ErrRegistrationClosed  = errors.New("league registration is closed")

	// League lifecycle
	ErrLeagueInvalidState      = errors.New("operation not allowed in the current league status")
	ErrInvalidStatusTransition = errors.New("invalid league status transition")
	ErrScheduleRequired        = errors.New("a generated schedule is required to activate the league")
	ErrLeagueHasMatches        = errors.New("league still has matches")

	// Scheduling
	ErrInsufficientTeams         = errors.New("not enough teams registered in the league")
	ErrInsufficientValidTeams    = errors.New("not enough valid teams after league membership check")
	ErrSchedulingWindowTooNarrow = errors.New("league date window is too narrow for the schedule")

	// Match results
	ErrMatchAlreadyCompleted = errors.New("match already has a final result")
	ErrMatchNotPlayable      = errors.New("match is not in a playable status")
	ErrWinnerNotInMatch      = errors.New("winner must be one of the two match teams")
	ErrWinnerScoreMismatch   = errors.New("winner does not match scores")

	// Infrastructure
	ErrUploaderNotConfigured = errors.New("file storage is not configured")
)
