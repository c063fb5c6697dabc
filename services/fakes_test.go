package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/morhendos/padel-league/models"
	"github.com/morhendos/padel-league/repositories"
	"github.com/morhendos/padel-league/schedule"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHub() *schedule.Hub {
	return schedule.NewHub(testLogger())
}

// fakeTransactor runs the unit of work directly; the fake repositories do not
// distinguish transactional from plain access.
type fakeTransactor struct {
	calls int
}

func (t *fakeTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	t.calls++
	return fn(nil)
}

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
}

func (r *fakeUserRepo) add(user models.User) *models.User {
	if user.ID == 0 {
		user.ID = r.nextID
	}
	if user.ID >= r.nextID {
		r.nextID = user.ID + 1
	}
	r.users[user.ID] = &user
	return &user
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type fakeLeagueRepo struct {
	leagues       map[int]*models.League
	members       map[int][]int // league id -> team ids
	nextID        int
	statusWrites  int
	bannerUpdates int
}

func newFakeLeagueRepo() *fakeLeagueRepo {
	return &fakeLeagueRepo{
		leagues: make(map[int]*models.League),
		members: make(map[int][]int),
		nextID:  1,
	}
}

func (r *fakeLeagueRepo) add(league models.League) *models.League {
	if league.ID == 0 {
		league.ID = r.nextID
	}
	if league.ID >= r.nextID {
		r.nextID = league.ID + 1
	}
	r.leagues[league.ID] = &league
	return &league
}

func (r *fakeLeagueRepo) Create(ctx context.Context, league *models.League) error {
	for _, l := range r.leagues {
		if l.Name == league.Name && l.OrganizerID == league.OrganizerID {
			return repositories.ErrLeagueNameConflict
		}
	}
	league.ID = r.nextID
	r.nextID++
	league.CreatedAt = time.Now()
	stored := *league
	r.leagues[league.ID] = &stored
	return nil
}

func (r *fakeLeagueRepo) GetByID(ctx context.Context, id int) (*models.League, error) {
	l, ok := r.leagues[id]
	if !ok {
		return nil, repositories.ErrLeagueNotFound
	}
	copied := *l
	return &copied, nil
}

func (r *fakeLeagueRepo) List(ctx context.Context, filter repositories.ListLeaguesFilter) ([]models.League, error) {
	out := make([]models.League, 0, len(r.leagues))
	for _, l := range r.leagues {
		if filter.OrganizerID != nil && l.OrganizerID != *filter.OrganizerID {
			continue
		}
		if filter.Status != nil && l.Status != *filter.Status {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeLeagueRepo) Update(ctx context.Context, league *models.League) error {
	if _, ok := r.leagues[league.ID]; !ok {
		return repositories.ErrLeagueNotFound
	}
	stored := *league
	r.leagues[league.ID] = &stored
	return nil
}

func (r *fakeLeagueRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, league *models.League) error {
	stored, ok := r.leagues[league.ID]
	if !ok {
		return repositories.ErrLeagueNotFound
	}
	r.statusWrites++
	stored.Status = league.Status
	stored.ActivatedAt = league.ActivatedAt
	stored.CompletedAt = league.CompletedAt
	stored.CanceledAt = league.CanceledAt
	return nil
}

func (r *fakeLeagueRepo) SetScheduleGenerated(ctx context.Context, exec repositories.SQLExecutor, id int, generated bool) error {
	l, ok := r.leagues[id]
	if !ok {
		return repositories.ErrLeagueNotFound
	}
	l.ScheduleGenerated = generated
	return nil
}

func (r *fakeLeagueRepo) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	l, ok := r.leagues[id]
	if !ok {
		return repositories.ErrLeagueNotFound
	}
	r.bannerUpdates++
	l.BannerKey = bannerKey
	return nil
}

func (r *fakeLeagueRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.leagues[id]; !ok {
		return repositories.ErrLeagueNotFound
	}
	delete(r.leagues, id)
	delete(r.members, id)
	return nil
}

func (r *fakeLeagueRepo) AddTeam(ctx context.Context, exec repositories.SQLExecutor, leagueID, teamID int) error {
	for _, id := range r.members[leagueID] {
		if id == teamID {
			return repositories.ErrLeagueTeamConflict
		}
	}
	r.members[leagueID] = append(r.members[leagueID], teamID)
	return nil
}

func (r *fakeLeagueRepo) RemoveTeam(ctx context.Context, exec repositories.SQLExecutor, leagueID, teamID int) error {
	ids := r.members[leagueID]
	for i, id := range ids {
		if id == teamID {
			r.members[leagueID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return repositories.ErrLeagueTeamNotFound
}

func (r *fakeLeagueRepo) ListTeamIDs(ctx context.Context, leagueID int) ([]int, error) {
	ids := make([]int, len(r.members[leagueID]))
	copy(ids, r.members[leagueID])
	sort.Ints(ids)
	return ids, nil
}

func (r *fakeLeagueRepo) CountTeams(ctx context.Context, leagueID int) (int, error) {
	return len(r.members[leagueID]), nil
}

type fakeTeamRepo struct {
	teams   map[int]*models.Team
	players map[int][]int // team id -> user ids
	nextID  int
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{
		teams:   make(map[int]*models.Team),
		players: make(map[int][]int),
		nextID:  1,
	}
}

func (r *fakeTeamRepo) add(team models.Team) *models.Team {
	if team.ID == 0 {
		team.ID = r.nextID
	}
	if team.ID >= r.nextID {
		r.nextID = team.ID + 1
	}
	r.teams[team.ID] = &team
	return &team
}

func (r *fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	for _, t := range r.teams {
		if t.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	team.ID = r.nextID
	r.nextID++
	stored := *team
	r.teams[team.ID] = &stored
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTeamRepo) ListByIDs(ctx context.Context, ids []int) ([]*models.Team, error) {
	out := make([]*models.Team, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.teams[id]; ok {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) ListByLeague(ctx context.Context, leagueID int) ([]*models.Team, error) {
	var out []*models.Team
	for _, t := range r.teams {
		if t.LeagueID != nil && *t.LeagueID == leagueID {
			copied := *t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeamRepo) Update(ctx context.Context, team *models.Team) error {
	if _, ok := r.teams[team.ID]; !ok {
		return repositories.ErrTeamNotFound
	}
	stored := *team
	r.teams[team.ID] = &stored
	return nil
}

func (r *fakeTeamRepo) UpdateLeague(ctx context.Context, exec repositories.SQLExecutor, teamID int, leagueID *int) error {
	t, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.LeagueID = leagueID
	return nil
}

func (r *fakeTeamRepo) UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error {
	t, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.LogoKey = logoKey
	return nil
}

func (r *fakeTeamRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.teams, id)
	delete(r.players, id)
	return nil
}

func (r *fakeTeamRepo) AddPlayer(ctx context.Context, teamID, userID int) error {
	for _, id := range r.players[teamID] {
		if id == userID {
			return repositories.ErrTeamPlayerConflict
		}
	}
	r.players[teamID] = append(r.players[teamID], userID)
	return nil
}

func (r *fakeTeamRepo) RemovePlayer(ctx context.Context, teamID, userID int) error {
	ids := r.players[teamID]
	for i, id := range ids {
		if id == userID {
			r.players[teamID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) ListPlayers(ctx context.Context, teamID int) ([]models.User, error) {
	var out []models.User
	for _, id := range r.players[teamID] {
		out = append(out, models.User{ID: id})
	}
	return out, nil
}

func (r *fakeTeamRepo) IsPlayer(ctx context.Context, teamID, userID int) (bool, error) {
	for _, id := range r.players[teamID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
}

func (r *fakeMatchRepo) add(match models.Match) *models.Match {
	if match.ID == 0 {
		match.ID = r.nextID
	}
	if match.ID >= r.nextID {
		r.nextID = match.ID + 1
	}
	r.matches[match.ID] = &match
	return &match
}

func (r *fakeMatchRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match) error {
	for _, m := range matches {
		m.ID = r.nextID
		r.nextID++
		m.CreatedAt = time.Now()
		stored := *m
		r.matches[m.ID] = &stored
	}
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMatchRepo) ListByLeague(ctx context.Context, leagueID int, status *models.MatchStatus) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.matches {
		if m.LeagueID != leagueID {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) CountByLeague(ctx context.Context, leagueID int) (int, error) {
	count := 0
	for _, m := range r.matches {
		if m.LeagueID == leagueID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) DeleteByLeague(ctx context.Context, exec repositories.SQLExecutor, leagueID int) (int64, error) {
	var deleted int64
	for id, m := range r.matches {
		if m.LeagueID == leagueID {
			delete(r.matches, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if _, ok := r.matches[match.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	stored := *match
	r.matches[match.ID] = &stored
	return nil
}

func (r *fakeMatchRepo) UpdateSchedule(ctx context.Context, match *models.Match) error {
	if _, ok := r.matches[match.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	stored := *match
	r.matches[match.ID] = &stored
	return nil
}

func (r *fakeMatchRepo) SetConfirmedBy(ctx context.Context, matchID, userID int) error {
	m, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.ConfirmedByID = &userID
	return nil
}

func (r *fakeMatchRepo) CancelAllExcept(ctx context.Context, exec repositories.SQLExecutor, leagueID int, keepStatuses []models.MatchStatus, note string) (int64, error) {
	keep := make(map[models.MatchStatus]bool, len(keepStatuses))
	for _, s := range keepStatuses {
		keep[s] = true
	}
	var canceled int64
	for _, m := range r.matches {
		if m.LeagueID != leagueID || keep[m.Status] {
			continue
		}
		m.Status = models.MatchStatusCanceled
		n := note
		m.Note = &n
		canceled++
	}
	return canceled, nil
}

type fakeRankingRepo struct {
	rows   map[int]map[int]*models.Ranking // league id -> team id -> row
	nextID int
}

func newFakeRankingRepo() *fakeRankingRepo {
	return &fakeRankingRepo{rows: make(map[int]map[int]*models.Ranking), nextID: 1}
}

func (r *fakeRankingRepo) leagueRows(leagueID int) map[int]*models.Ranking {
	if r.rows[leagueID] == nil {
		r.rows[leagueID] = make(map[int]*models.Ranking)
	}
	return r.rows[leagueID]
}

func (r *fakeRankingRepo) Create(ctx context.Context, exec repositories.SQLExecutor, ranking *models.Ranking) error {
	ranking.ID = r.nextID
	r.nextID++
	stored := *ranking
	r.leagueRows(ranking.LeagueID)[ranking.TeamID] = &stored
	return nil
}

func (r *fakeRankingRepo) GetByLeagueAndTeam(ctx context.Context, exec repositories.SQLExecutor, leagueID, teamID int) (*models.Ranking, error) {
	row, ok := r.leagueRows(leagueID)[teamID]
	if !ok {
		return nil, repositories.ErrRankingNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *fakeRankingRepo) GetOrCreate(ctx context.Context, exec repositories.SQLExecutor, leagueID, teamID int) (*models.Ranking, error) {
	if row, ok := r.leagueRows(leagueID)[teamID]; ok {
		copied := *row
		return &copied, nil
	}
	row := &models.Ranking{LeagueID: leagueID, TeamID: teamID, UpdatedAt: time.Now()}
	if err := r.Create(ctx, exec, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *fakeRankingRepo) Update(ctx context.Context, exec repositories.SQLExecutor, ranking *models.Ranking) error {
	if _, ok := r.leagueRows(ranking.LeagueID)[ranking.TeamID]; !ok {
		return repositories.ErrRankingNotFound
	}
	stored := *ranking
	r.leagueRows(ranking.LeagueID)[ranking.TeamID] = &stored
	return nil
}

func (r *fakeRankingRepo) BatchCreate(ctx context.Context, exec repositories.SQLExecutor, rankings []*models.Ranking) error {
	for _, row := range rankings {
		if err := r.Create(ctx, exec, row); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRankingRepo) DeleteByLeague(ctx context.Context, exec repositories.SQLExecutor, leagueID int) error {
	delete(r.rows, leagueID)
	return nil
}

func (r *fakeRankingRepo) ListByLeague(ctx context.Context, leagueID int) ([]*models.Ranking, error) {
	var out []*models.Ranking
	for _, row := range r.rows[leagueID] {
		copied := *row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.TeamID < b.TeamID
	})
	return out, nil
}
