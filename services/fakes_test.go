package services

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/Dosada05/chess-escrow/models"
	"github.com/Dosada05/chess-escrow/repositories"
	"github.com/Dosada05/chess-escrow/storage"
)

// In-memory фейки репозиториев для юнит-тестов сервисного слоя.

type fakeTxManager struct{}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeTournamentRepo struct {
	nextID      int
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{nextID: 1, tournaments: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	for _, existing := range r.tournaments {
		if existing.OrganizerWallet == t.OrganizerWallet && existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	t.ID = r.nextID
	r.nextID++
	stored := *t
	r.tournaments[t.ID] = &stored
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	ids := make([]int, 0, len(r.tournaments))
	for id := range r.tournaments {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]models.Tournament, 0, len(ids))
	for _, id := range ids {
		t := *r.tournaments[id]
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.OrganizerWallet != nil && t.OrganizerWallet != *filter.OrganizerWallet {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) Count(ctx context.Context) (int, error) {
	return len(r.tournaments), nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) IncrementRegisteredPlayers(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.RegisteredPlayers >= t.MaxPlayers {
		return repositories.ErrTournamentCapacityReached
	}
	t.RegisteredPlayers++
	return nil
}

func (r *fakeTournamentRepo) UpdateCurrentRound(ctx context.Context, exec repositories.SQLExecutor, id int, round int) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.CurrentRound = round
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LogoKey = logoKey
	return nil
}

type fakePlayerRepo struct {
	players map[int][]*models.Player // tournamentID -> порядок регистрации
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[int][]*models.Player)}
}

func (r *fakePlayerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Player) error {
	for _, existing := range r.players[p.TournamentID] {
		if existing.Wallet == p.Wallet {
			return repositories.ErrPlayerConflict
		}
	}
	p.IsRegistered = true
	p.IsActive = true
	stored := *p
	r.players[p.TournamentID] = append(r.players[p.TournamentID], &stored)
	return nil
}

func (r *fakePlayerRepo) GetByWallet(ctx context.Context, tournamentID int, wallet string) (*models.Player, error) {
	for _, p := range r.players[tournamentID] {
		if p.Wallet == wallet {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Player, error) {
	out := make([]*models.Player, 0, len(r.players[tournamentID]))
	for _, p := range r.players[tournamentID] {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakePlayerRepo) ApplyResult(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, wallet string, points, wins, draws, losses int) error {
	for _, p := range r.players[tournamentID] {
		if p.Wallet == wallet {
			p.TotalPoints += points
			p.Wins += wins
			p.Draws += draws
			p.Losses += losses
			return nil
		}
	}
	return repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) DeactivateAll(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	for _, p := range r.players[tournamentID] {
		p.IsActive = false
	}
	return nil
}

type fakeGroupRepo struct {
	nextID int
	groups map[int]*models.Group
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{nextID: 1, groups: make(map[int]*models.Group)}
}

func (r *fakeGroupRepo) Create(ctx context.Context, exec repositories.SQLExecutor, g *models.Group) error {
	g.ID = r.nextID
	r.nextID++
	stored := *g
	stored.Players = append([]string(nil), g.Players...)
	r.groups[g.ID] = &stored
	return nil
}

func (r *fakeGroupRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, repositories.ErrGroupNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *fakeGroupRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Group, error) {
	ids := make([]int, 0, len(r.groups))
	for id := range r.groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []*models.Group
	for _, id := range ids {
		if r.groups[id].TournamentID == tournamentID {
			copied := *r.groups[id]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) MarkCompleted(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	g, ok := r.groups[id]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	g.IsCompleted = true
	return nil
}

func (r *fakeGroupRepo) CountIncompleteByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) (int, error) {
	count := 0
	for _, g := range r.groups {
		if g.TournamentID == tournamentID && g.Round == round && !g.IsCompleted {
			count++
		}
	}
	return count, nil
}

type fakeMatchRepo struct {
	nextID  int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	m.ID = r.nextID
	r.nextID++
	stored := *m
	r.matches[m.ID] = &stored
	return nil
}

func (r *fakeMatchRepo) GetByGroupAndPair(ctx context.Context, exec repositories.SQLExecutor, groupID int, player1, player2 string, forUpdate bool) (*models.Match, error) {
	for _, m := range r.matches {
		if m.GroupID != groupID {
			continue
		}
		if (m.Player1 == player1 && m.Player2 == player2) || (m.Player1 == player2 && m.Player2 == player1) {
			copied := *m
			return &copied, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	ids := make([]int, 0, len(r.matches))
	for id := range r.matches {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []*models.Match
	for _, id := range ids {
		if r.matches[id].TournamentID == tournamentID {
			copied := *r.matches[id]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) SetResult(ctx context.Context, exec repositories.SQLExecutor, id int, result models.MatchResult) error {
	m, ok := r.matches[id]
	if !ok || m.IsCompleted {
		return repositories.ErrMatchNotFound
	}
	m.Result = result
	m.IsCompleted = true
	return nil
}

func (r *fakeMatchRepo) CountPendingByGroup(ctx context.Context, exec repositories.SQLExecutor, groupID int) (int, error) {
	count := 0
	for _, m := range r.matches {
		if m.GroupID == groupID && !m.IsCompleted {
			count++
		}
	}
	return count, nil
}

type fakeEscrowRepo struct {
	balances map[string]int64 // wallet + "/" + token
	escrows  map[int]*models.Escrow
	payouts  map[int][]*models.EscrowPayout
}

func newFakeEscrowRepo() *fakeEscrowRepo {
	return &fakeEscrowRepo{
		balances: make(map[string]int64),
		escrows:  make(map[int]*models.Escrow),
		payouts:  make(map[int][]*models.EscrowPayout),
	}
}

func balanceKey(wallet, token string) string { return wallet + "/" + token }

func (r *fakeEscrowRepo) GetBalance(ctx context.Context, exec repositories.SQLExecutor, wallet, token string) (int64, error) {
	return r.balances[balanceKey(wallet, token)], nil
}

func (r *fakeEscrowRepo) AddBalance(ctx context.Context, exec repositories.SQLExecutor, wallet, token string, amount int64) error {
	key := balanceKey(wallet, token)
	if r.balances[key]+amount < 0 {
		return repositories.ErrInsufficientBalance
	}
	r.balances[key] += amount
	return nil
}

func (r *fakeEscrowRepo) CreateEscrow(ctx context.Context, exec repositories.SQLExecutor, e *models.Escrow) error {
	if _, ok := r.escrows[e.TournamentID]; ok {
		return repositories.ErrEscrowAlreadyExists
	}
	stored := *e
	r.escrows[e.TournamentID] = &stored
	return nil
}

func (r *fakeEscrowRepo) GetEscrowForUpdate(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*models.Escrow, error) {
	e, ok := r.escrows[tournamentID]
	if !ok {
		return nil, repositories.ErrEscrowNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEscrowRepo) MarkPaid(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	e, ok := r.escrows[tournamentID]
	if !ok || e.Paid {
		return repositories.ErrEscrowNotFound
	}
	e.Paid = true
	return nil
}

func (r *fakeEscrowRepo) InsertPayout(ctx context.Context, exec repositories.SQLExecutor, p *models.EscrowPayout) error {
	stored := *p
	r.payouts[p.TournamentID] = append(r.payouts[p.TournamentID], &stored)
	return nil
}

func (r *fakeEscrowRepo) ListPayouts(ctx context.Context, tournamentID int) ([]*models.EscrowPayout, error) {
	out := append([]*models.EscrowPayout(nil), r.payouts[tournamentID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Place < out[j].Place })
	return out, nil
}

type fakeUploader struct {
	uploaded map[string]string // key -> contentType
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploaded: make(map[string]string)}
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.uploaded[key] = contentType
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	delete(u.uploaded, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return fmt.Sprintf("https://cdn.example.com/%s", key)
}
