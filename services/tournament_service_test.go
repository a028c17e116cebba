package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Dosada05/chess-escrow/models"
	"github.com/Dosada05/chess-escrow/repositories"
	"github.com/Dosada05/chess-escrow/scheduler"
)

const (
	testToken     = "USDC"
	testOrganizer = "0xORGANIZER"
	testPool      = int64(1_000_000_000) // 1000 токенов
)

type tournamentFixture struct {
	service    TournamentService
	escrow     EscrowService
	tournament *fakeTournamentRepo
	players    *fakePlayerRepo
	groups     *fakeGroupRepo
	matches    *fakeMatchRepo
	escrowRepo *fakeEscrowRepo
	uploader   *fakeUploader
}

func newTournamentFixture(t *testing.T) *tournamentFixture {
	t.Helper()
	f := &tournamentFixture{
		tournament: newFakeTournamentRepo(),
		players:    newFakePlayerRepo(),
		groups:     newFakeGroupRepo(),
		matches:    newFakeMatchRepo(),
		escrowRepo: newFakeEscrowRepo(),
		uploader:   newFakeUploader(),
	}
	f.escrow = NewEscrowService(f.escrowRepo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewTournamentService(
		&fakeTxManager{},
		f.tournament,
		f.players,
		f.groups,
		f.matches,
		f.escrow,
		scheduler.NewRegistrationOrderScheduler(),
		DefaultGroupSize,
		f.uploader,
		nil,
		logger,
	)
	return f
}

func validInput() CreateTournamentInput {
	return CreateTournamentInput{
		Name:       "Spring Blitz",
		PrizeToken: testToken,
		PrizePool:  testPool,
		MaxPlayers: 4,
		StartTime:  time.Now().Add(time.Hour),
		EndTime:    time.Now().Add(48 * time.Hour),
	}
}

func (f *tournamentFixture) mint(t *testing.T, wallet string, amount int64) {
	t.Helper()
	if _, err := f.escrow.Mint(context.Background(), wallet, testToken, amount); err != nil {
		t.Fatalf("mint: %v", err)
	}
}

func (f *tournamentFixture) create(t *testing.T) *models.Tournament {
	t.Helper()
	f.mint(t, testOrganizer, testPool)
	tournament, err := f.service.CreateTournament(context.Background(), testOrganizer, validInput())
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	return tournament
}

func (f *tournamentFixture) register(t *testing.T, id int, wallets ...string) {
	t.Helper()
	for _, w := range wallets {
		if _, err := f.service.Register(context.Background(), id, w, "player "+w); err != nil {
			t.Fatalf("Register(%s): %v", w, err)
		}
	}
}

func TestCreateTournamentLocksPrizePool(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t)

	if tournament.ID != 1 {
		t.Errorf("first tournament id = %d, want 1", tournament.ID)
	}
	if tournament.Status != models.StatusCreated {
		t.Errorf("status = %s, want %s", tournament.Status, models.StatusCreated)
	}

	balance, err := f.escrow.BalanceOf(context.Background(), testOrganizer, testToken)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if balance != 0 {
		t.Errorf("organizer balance after lock = %d, want 0", balance)
	}

	escrow, err := f.escrowRepo.GetEscrowForUpdate(context.Background(), nil, tournament.ID)
	if err != nil {
		t.Fatalf("escrow not created: %v", err)
	}
	if escrow.Amount != testPool || escrow.Paid {
		t.Errorf("escrow = {amount: %d, paid: %v}, want {amount: %d, paid: false}", escrow.Amount, escrow.Paid, testPool)
	}
}

func TestCreateTournamentInsufficientFunds(t *testing.T) {
	f := newTournamentFixture(t)
	f.mint(t, testOrganizer, testPool/2)

	_, err := f.service.CreateTournament(context.Background(), testOrganizer, validInput())
	if !errors.Is(err, ErrEscrowInsufficientFunds) {
		t.Fatalf("err = %v, want ErrEscrowInsufficientFunds", err)
	}
}

func TestCreateTournamentValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateTournamentInput)
		wantErr error
	}{
		{"empty name", func(in *CreateTournamentInput) { in.Name = "  " }, ErrTournamentNameRequired},
		{"zero prize pool", func(in *CreateTournamentInput) { in.PrizePool = 0 }, ErrInvalidPrizePool},
		{"negative prize pool", func(in *CreateTournamentInput) { in.PrizePool = -1 }, ErrInvalidPrizePool},
		{"prize pool above split bound", func(in *CreateTournamentInput) { in.PrizePool = MaxPrizePool + 1 }, ErrInvalidPrizePool},
		{"max players not multiple of group size", func(in *CreateTournamentInput) { in.MaxPlayers = 6 }, ErrInvalidMaxPlayers},
		{"zero max players", func(in *CreateTournamentInput) { in.MaxPlayers = 0 }, ErrInvalidMaxPlayers},
		{"end before start", func(in *CreateTournamentInput) { in.EndTime = in.StartTime.Add(-time.Hour) }, ErrInvalidDateRange},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newTournamentFixture(t)
			f.mint(t, testOrganizer, testPool)
			input := validInput()
			tc.mutate(&input)

			_, err := f.service.CreateTournament(context.Background(), testOrganizer, input)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestOpenRegistration(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t)

	opened, err := f.service.OpenRegistration(context.Background(), tournament.ID, testOrganizer)
	if err != nil {
		t.Fatalf("OpenRegistration: %v", err)
	}
	if opened.Status != models.StatusRegistrationOpen {
		t.Errorf("status = %s, want %s", opened.Status, models.StatusRegistrationOpen)
	}

	// Повторное открытие — ошибка, не no-op.
	if _, err := f.service.OpenRegistration(context.Background(), tournament.ID, testOrganizer); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double open err = %v, want ErrInvalidTransition", err)
	}
}

func TestOpenRegistrationRequiresOrganizer(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t)

	if _, err := f.service.OpenRegistration(context.Background(), tournament.ID, "0xINTRUDER"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestRegister(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t)

	// До открытия регистрации вход закрыт.
	if _, err := f.service.Register(context.Background(), tournament.ID, "0xA", "alice"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("register before open err = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.service.OpenRegistration(context.Background(), tournament.ID, testOrganizer); err != nil {
		t.Fatalf("OpenRegistration: %v", err)
	}

	player, err := f.service.Register(context.Background(), tournament.ID, "0xA", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if player.Username != "Unknown" {
		t.Errorf("empty username stored as %q, want \"Unknown\"", player.Username)
	}

	if _, err := f.service.Register(context.Background(), tournament.ID, "0xA", "alice"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("duplicate register err = %v, want ErrAlreadyRegistered", err)
	}

	f.register(t, tournament.ID, "0xB", "0xC", "0xD")
	if _, err := f.service.Register(context.Background(), tournament.ID, "0xE", "eve"); !errors.Is(err, ErrTournamentFull) {
		t.Errorf("register past capacity err = %v, want ErrTournamentFull", err)
	}
}

// Репозиторий с вечно сработавшим предикатом заполненности: имитирует
// гонку, в которой счётчик в прочитанной строке ещё показывал место.
type capacityGuardTournamentRepo struct {
	*fakeTournamentRepo
}

func (r *capacityGuardTournamentRepo) IncrementRegisteredPlayers(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	return repositories.ErrTournamentCapacityReached
}

func TestRegisterMapsCapacityGuardToTournamentFull(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t)
	if _, err := f.service.OpenRegistration(context.Background(), tournament.ID, testOrganizer); err != nil {
		t.Fatalf("OpenRegistration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewTournamentService(
		&fakeTxManager{},
		&capacityGuardTournamentRepo{f.tournament},
		f.players,
		f.groups,
		f.matches,
		f.escrow,
		scheduler.NewRegistrationOrderScheduler(),
		DefaultGroupSize,
		f.uploader,
		nil,
		logger,
	)

	if _, err := svc.Register(context.Background(), tournament.ID, "0xA", "alice"); !errors.Is(err, ErrTournamentFull) {
		t.Errorf("err = %v, want ErrTournamentFull", err)
	}
}

func TestCloseRegistrationAndStart(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t)
	if _, err := f.service.OpenRegistration(context.Background(), tournament.ID, testOrganizer); err != nil {
		t.Fatalf("OpenRegistration: %v", err)
	}

	// Меньше одной полной группы — старт невозможен.
	f.register(t, tournament.ID, "0xA", "0xB")
	if _, err := f.service.CloseRegistrationAndStart(context.Background(), tournament.ID, testOrganizer); !errors.Is(err, ErrInsufficientPlayers) {
		t.Fatalf("start with 2 players err = %v, want ErrInsufficientPlayers", err)
	}

	f.register(t, tournament.ID, "0xC", "0xD")
	started, err := f.service.CloseRegistrationAndStart(context.Background(), tournament.ID, testOrganizer)
	if err != nil {
		t.Fatalf("CloseRegistrationAndStart: %v", err)
	}
	if started.Status != models.StatusInProgress || started.CurrentRound != 1 {
		t.Errorf("started = {status: %s, round: %d}, want {in_progress, 1}", started.Status, started.CurrentRound)
	}

	groups, err := f.service.GetTournamentGroups(context.Background(), tournament.ID)
	if err != nil {
		t.Fatalf("GetTournamentGroups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	// Рассадка в порядке регистрации.
	want := []string{"0xA", "0xB", "0xC", "0xD"}
	for i, w := range want {
		if groups[0].Players[i] != w {
			t.Errorf("group seat %d = %s, want %s", i, groups[0].Players[i], w)
		}
	}

	matches, err := f.matches.ListByTournament(context.Background(), tournament.ID)
	if err != nil {
		t.Fatalf("ListByTournament: %v", err)
	}
	if len(matches) != 6 {
		t.Errorf("got %d matches, want C(4,2) = 6", len(matches))
	}
	for _, m := range matches {
		if m.Result != models.ResultPending || m.IsCompleted {
			t.Errorf("match %d created as {%s, completed: %v}, want pending", m.ID, m.Result, m.IsCompleted)
		}
	}

	// Терминальность перехода: повторный старт невозможен.
	if _, err := f.service.CloseRegistrationAndStart(context.Background(), tournament.ID, testOrganizer); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double start err = %v, want ErrInvalidTransition", err)
	}
}

func startedTournament(t *testing.T, f *tournamentFixture) *models.Tournament {
	t.Helper()
	tournament := f.create(t)
	if _, err := f.service.OpenRegistration(context.Background(), tournament.ID, testOrganizer); err != nil {
		t.Fatalf("OpenRegistration: %v", err)
	}
	f.register(t, tournament.ID, "0xA", "0xB", "0xC", "0xD")
	started, err := f.service.CloseRegistrationAndStart(context.Background(), tournament.ID, testOrganizer)
	if err != nil {
		t.Fatalf("CloseRegistrationAndStart: %v", err)
	}
	return started
}

func completeAllGroups(t *testing.T, f *tournamentFixture, tournamentID int) {
	t.Helper()
	groups, err := f.groups.ListByTournament(context.Background(), tournamentID)
	if err != nil {
		t.Fatalf("ListByTournament: %v", err)
	}
	for _, g := range groups {
		if err := f.groups.MarkCompleted(context.Background(), nil, g.ID); err != nil {
			t.Fatalf("MarkCompleted: %v", err)
		}
	}
}

func TestCompleteTournamentPaysWinners(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := startedTournament(t, f)
	completeAllGroups(t, f, tournament.ID)

	completed, err := f.service.CompleteTournament(context.Background(), tournament.ID, testOrganizer, "0xA", "0xB", "0xC")
	if err != nil {
		t.Fatalf("CompleteTournament: %v", err)
	}
	if completed.Status != models.StatusCompleted {
		t.Errorf("status = %s, want %s", completed.Status, models.StatusCompleted)
	}

	// 1000 токенов делятся 50/30/20.
	wantBalances := map[string]int64{
		"0xA": 500_000_000,
		"0xB": 300_000_000,
		"0xC": 200_000_000,
		"0xD": 0,
	}
	for wallet, want := range wantBalances {
		got, err := f.escrow.BalanceOf(context.Background(), wallet, testToken)
		if err != nil {
			t.Fatalf("BalanceOf(%s): %v", wallet, err)
		}
		if got != want {
			t.Errorf("balance(%s) = %d, want %d", wallet, got, want)
		}
	}

	winners, err := f.service.GetTournamentWinners(context.Background(), tournament.ID)
	if err != nil {
		t.Fatalf("GetTournamentWinners: %v", err)
	}
	if len(winners) != 3 || winners[0].Place != 1 || winners[0].Wallet != "0xA" {
		t.Errorf("winners = %+v, want three payouts led by 0xA", winners)
	}

	// Игроки деактивированы после завершения.
	players, _ := f.players.ListByTournament(context.Background(), nil, tournament.ID)
	for _, p := range players {
		if p.IsActive {
			t.Errorf("player %s still active after completion", p.Wallet)
		}
	}
}

func TestCompleteTournamentIsTerminal(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := startedTournament(t, f)
	completeAllGroups(t, f, tournament.ID)

	if _, err := f.service.CompleteTournament(context.Background(), tournament.ID, testOrganizer, "0xA", "0xB", "0xC"); err != nil {
		t.Fatalf("CompleteTournament: %v", err)
	}
	// Повторное завершение блокируется стейт-машиной до того, как
	// дело дойдёт до эскроу.
	if _, err := f.service.CompleteTournament(context.Background(), tournament.ID, testOrganizer, "0xA", "0xB", "0xC"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double complete err = %v, want ErrInvalidTransition", err)
	}
}

func TestCompleteTournamentRoundIncomplete(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := startedTournament(t, f)

	if _, err := f.service.CompleteTournament(context.Background(), tournament.ID, testOrganizer, "0xA", "0xB", "0xC"); !errors.Is(err, ErrRoundIncomplete) {
		t.Errorf("err = %v, want ErrRoundIncomplete", err)
	}
}

func TestCompleteTournamentInvalidWinners(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := startedTournament(t, f)
	completeAllGroups(t, f, tournament.ID)

	tests := []struct {
		name                 string
		first, second, third string
	}{
		{"duplicate winners", "0xA", "0xA", "0xB"},
		{"unregistered winner", "0xA", "0xB", "0xSTRANGER"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.CompleteTournament(context.Background(), tournament.ID, testOrganizer, tc.first, tc.second, tc.third); !errors.Is(err, ErrInvalidWinners) {
				t.Errorf("err = %v, want ErrInvalidWinners", err)
			}
		})
	}
}

func TestGetFullTournament(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := startedTournament(t, f)

	full, err := f.service.GetFullTournament(context.Background(), tournament.ID)
	if err != nil {
		t.Fatalf("GetFullTournament: %v", err)
	}
	if len(full.Players) != 4 || len(full.Groups) != 1 || len(full.Matches) != 6 {
		t.Errorf("full = {players: %d, groups: %d, matches: %d}, want {4, 1, 6}",
			len(full.Players), len(full.Groups), len(full.Matches))
	}
}

func TestGetTournamentByIDNotFound(t *testing.T) {
	f := newTournamentFixture(t)
	if _, err := f.service.GetTournamentByID(context.Background(), 42); !errors.Is(err, ErrTournamentNotFound) {
		t.Errorf("err = %v, want ErrTournamentNotFound", err)
	}
}

func TestUploadLogo(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t)

	updated, err := f.service.UploadLogo(context.Background(), tournament.ID, testOrganizer, "image/png", nil)
	if err != nil {
		t.Fatalf("UploadLogo: %v", err)
	}
	if updated.LogoURL == nil || *updated.LogoURL == "" {
		t.Error("logo URL not set after upload")
	}

	if _, err := f.service.UploadLogo(context.Background(), tournament.ID, "0xINTRUDER", "image/png", nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("upload by non-organizer err = %v, want ErrUnauthorized", err)
	}
}
