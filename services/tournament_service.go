package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/chess-escrow/models"
	"github.com/Dosada05/chess-escrow/repositories"
	"github.com/Dosada05/chess-escrow/scheduler"
	"github.com/Dosada05/chess-escrow/storage"
	"golang.org/x/sync/errgroup"
)

// DefaultGroupSize — размер круговой группы.
const DefaultGroupSize = 4

type CreateTournamentInput struct {
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	PrizeToken  string    `json:"prize_token"`
	PrizePool   int64     `json:"prize_pool"`
	MaxPlayers  int       `json:"max_players"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// TournamentService — стейт-машина турнира. Кошелёк вызывающего
// передаётся явным параметром в каждую мутирующую операцию; проверка
// прав не завязана на конкретную схему идентичности.
type TournamentService interface {
	CreateTournament(ctx context.Context, callerWallet string, input CreateTournamentInput) (*models.Tournament, error)
	OpenRegistration(ctx context.Context, id int, callerWallet string) (*models.Tournament, error)
	Register(ctx context.Context, id int, callerWallet, username string) (*models.Player, error)
	CloseRegistrationAndStart(ctx context.Context, id int, callerWallet string) (*models.Tournament, error)
	CompleteTournament(ctx context.Context, id int, callerWallet, firstPlace, secondPlace, thirdPlace string) (*models.Tournament, error)

	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	GetFullTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	GetTotalTournaments(ctx context.Context) (int, error)
	GetPlayer(ctx context.Context, tournamentID int, wallet string) (*models.Player, error)
	GetTournamentGroups(ctx context.Context, tournamentID int) ([]*models.Group, error)
	GetTournamentWinners(ctx context.Context, tournamentID int) ([]*models.EscrowPayout, error)
	UploadLogo(ctx context.Context, id int, callerWallet, contentType string, file io.Reader) (*models.Tournament, error)
}

type tournamentService struct {
	txManager      repositories.TxManager
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	groupRepo      repositories.GroupRepository
	matchRepo      repositories.MatchRepository
	escrowService  EscrowService
	groupScheduler scheduler.GroupScheduler
	groupSize      int
	uploader       storage.FileUploader
	hub            *scheduler.Hub
	logger         *slog.Logger
}

func NewTournamentService(
	txManager repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	escrowService EscrowService,
	groupScheduler scheduler.GroupScheduler,
	groupSize int,
	uploader storage.FileUploader,
	hub *scheduler.Hub,
	logger *slog.Logger,
) TournamentService {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	return &tournamentService{
		txManager:      txManager,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		groupRepo:      groupRepo,
		matchRepo:      matchRepo,
		escrowService:  escrowService,
		groupScheduler: groupScheduler,
		groupSize:      groupSize,
		uploader:       uploader,
		hub:            hub,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, callerWallet string, input CreateTournamentInput) (*models.Tournament, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrTournamentNameRequired
	}
	if input.PrizePool <= 0 || input.PrizePool > MaxPrizePool {
		return nil, ErrInvalidPrizePool
	}
	if input.MaxPlayers <= 0 || input.MaxPlayers%s.groupSize != 0 {
		return nil, ErrInvalidMaxPlayers
	}
	if !input.StartTime.Before(input.EndTime) {
		return nil, ErrInvalidDateRange
	}

	tournament := &models.Tournament{
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		OrganizerWallet: callerWallet,
		PrizeToken:      input.PrizeToken,
		PrizePool:       input.PrizePool,
		MaxPlayers:      input.MaxPlayers,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		Status:          models.StatusCreated,
	}

	// Создание записи и списание фонда в эскроу — одна транзакция:
	// если дебет не прошёл, турнир не создаётся.
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.Create(ctx, exec, tournament); err != nil {
			return err
		}
		return s.escrowService.Lock(ctx, exec, tournament.ID, input.PrizeToken, callerWallet, input.PrizePool)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("organizer", callerWallet),
		slog.Int64("prize_pool", tournament.PrizePool))
	return tournament, nil
}

func (s *tournamentService) OpenRegistration(ctx context.Context, id int, callerWallet string) (*models.Tournament, error) {
	var tournament *models.Tournament
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.lockTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		if t.OrganizerWallet != callerWallet {
			return ErrUnauthorized
		}
		// Повторный вызов — ошибка, а не тихий no-op: вызывающие обязаны
		// отслеживать состояние.
		if t.Status != models.StatusCreated {
			return ErrInvalidTransition
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusRegistrationOpen); err != nil {
			return err
		}
		t.Status = models.StatusRegistrationOpen
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) Register(ctx context.Context, id int, callerWallet, username string) (*models.Player, error) {
	if strings.TrimSpace(username) == "" {
		username = "Unknown"
	}

	player := &models.Player{
		TournamentID: id,
		Wallet:       callerWallet,
		Username:     strings.TrimSpace(username),
	}

	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// FOR UPDATE сериализует проверку заполненности с инкрементом
		// счётчика: конкурирующие регистрации не переполнят турнир.
		t, err := s.lockTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		if t.Status != models.StatusRegistrationOpen {
			return ErrInvalidTransition
		}
		if t.RegisteredPlayers >= t.MaxPlayers {
			return ErrTournamentFull
		}

		if err := s.playerRepo.Create(ctx, exec, player); err != nil {
			if errors.Is(err, repositories.ErrPlayerConflict) {
				return ErrAlreadyRegistered
			}
			return err
		}
		if err := s.tournamentRepo.IncrementRegisteredPlayers(ctx, exec, id); err != nil {
			if errors.Is(err, repositories.ErrTournamentCapacityReached) {
				return ErrTournamentFull
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

func (s *tournamentService) CloseRegistrationAndStart(ctx context.Context, id int, callerWallet string) (*models.Tournament, error) {
	var tournament *models.Tournament
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.lockTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		if t.OrganizerWallet != callerWallet {
			return ErrUnauthorized
		}
		if t.Status != models.StatusRegistrationOpen {
			return ErrInvalidTransition
		}
		if t.RegisteredPlayers < s.groupSize {
			return ErrInsufficientPlayers
		}

		players, err := s.playerRepo.ListByTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		wallets := make([]string, 0, len(players))
		for _, p := range players {
			wallets = append(wallets, p.Wallet)
		}

		groups, err := s.groupScheduler.BuildGroups(wallets, s.groupSize)
		if err != nil {
			if errors.Is(err, scheduler.ErrNotPartitionable) {
				return ErrInsufficientPlayers
			}
			return err
		}

		const round = 1
		for _, members := range groups {
			group := &models.Group{TournamentID: id, Round: round, Players: members}
			if err := s.groupRepo.Create(ctx, exec, group); err != nil {
				return err
			}
			for _, pair := range scheduler.Pairings(members) {
				match := &models.Match{
					TournamentID: id,
					GroupID:      group.ID,
					Player1:      pair[0],
					Player2:      pair[1],
					Result:       models.ResultPending,
				}
				if err := s.matchRepo.Create(ctx, exec, match); err != nil {
					return err
				}
			}
		}

		// Концептуально два перехода (закрытие регистрации, старт),
		// выполняются атомарно.
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusInProgress); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateCurrentRound(ctx, exec, id, round); err != nil {
			return err
		}
		t.Status = models.StatusInProgress
		t.CurrentRound = round
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament started",
		slog.Int("tournament_id", id),
		slog.Int("players", tournament.RegisteredPlayers))
	s.broadcast(id, scheduler.EventTournamentStarted, tournament)
	return tournament, nil
}

func (s *tournamentService) CompleteTournament(ctx context.Context, id int, callerWallet, firstPlace, secondPlace, thirdPlace string) (*models.Tournament, error) {
	if firstPlace == secondPlace || firstPlace == thirdPlace || secondPlace == thirdPlace {
		return nil, ErrInvalidWinners
	}

	var tournament *models.Tournament
	var payouts []*models.EscrowPayout
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.lockTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		if t.OrganizerWallet != callerWallet {
			return ErrUnauthorized
		}
		if t.Status != models.StatusInProgress {
			return ErrInvalidTransition
		}

		incomplete, err := s.groupRepo.CountIncompleteByRound(ctx, exec, id, t.CurrentRound)
		if err != nil {
			return err
		}
		if incomplete > 0 {
			return ErrRoundIncomplete
		}

		recipients := []PayoutRecipient{
			{Place: 1, Wallet: firstPlace},
			{Place: 2, Wallet: secondPlace},
			{Place: 3, Wallet: thirdPlace},
		}
		for _, rec := range recipients {
			if _, err := s.requireRegisteredPlayer(ctx, id, rec.Wallet); err != nil {
				return err
			}
		}

		// Выплата и терминальный переход фиксируются вместе: если любой
		// перевод не прошёл, откатывается всё и турнир остаётся
		// незавершённым — организатор может повторить вызов.
		payouts, err = s.escrowService.Payout(ctx, exec, id, recipients)
		if err != nil {
			return err
		}

		if err := s.playerRepo.DeactivateAll(ctx, exec, id); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusCompleted); err != nil {
			return err
		}
		t.Status = models.StatusCompleted
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament completed",
		slog.Int("tournament_id", id),
		slog.String("first_place", firstPlace))
	s.broadcast(id, scheduler.EventTournamentCompleted, map[string]interface{}{
		"tournament": tournament,
		"payouts":    payouts,
	})
	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	s.decorate(t)
	return t, nil
}

// GetFullTournament собирает турнир вместе с игроками, группами и
// матчами. Чтения независимы и выполняются параллельно.
func (s *tournamentService) GetFullTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		players, err := s.playerRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return err
		}
		tournament.Players = make([]models.Player, 0, len(players))
		for _, p := range players {
			tournament.Players = append(tournament.Players, *p)
		}
		return nil
	})

	g.Go(func() error {
		groups, err := s.groupRepo.ListByTournament(gCtx, id)
		if err != nil {
			return err
		}
		tournament.Groups = make([]models.Group, 0, len(groups))
		for _, gr := range groups {
			tournament.Groups = append(tournament.Groups, *gr)
		}
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, id)
		if err != nil {
			return err
		}
		tournament.Matches = make([]models.Match, 0, len(matches))
		for _, m := range matches {
			tournament.Matches = append(tournament.Matches, *m)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load full tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.decorate(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) GetTotalTournaments(ctx context.Context) (int, error) {
	return s.tournamentRepo.Count(ctx)
}

func (s *tournamentService) GetPlayer(ctx context.Context, tournamentID int, wallet string) (*models.Player, error) {
	player, err := s.playerRepo.GetByWallet(ctx, tournamentID, wallet)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}

func (s *tournamentService) GetTournamentGroups(ctx context.Context, tournamentID int) ([]*models.Group, error) {
	return s.groupRepo.ListByTournament(ctx, tournamentID)
}

func (s *tournamentService) GetTournamentWinners(ctx context.Context, tournamentID int) ([]*models.EscrowPayout, error) {
	return s.escrowService.ListPayouts(ctx, tournamentID)
}

func (s *tournamentService) UploadLogo(ctx context.Context, id int, callerWallet, contentType string, file io.Reader) (*models.Tournament, error) {
	tournament, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tournament.OrganizerWallet != callerWallet {
		return nil, ErrUnauthorized
	}

	key := "tournaments/" + strconv.Itoa(id) + "/logo"
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo for tournament %d: %w", id, err)
	}

	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, err
	}
	tournament.LogoKey = &result.Key
	s.decorate(tournament)
	return tournament, nil
}

func (s *tournamentService) lockTournament(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) requireRegisteredPlayer(ctx context.Context, tournamentID int, wallet string) (*models.Player, error) {
	player, err := s.playerRepo.GetByWallet(ctx, tournamentID, wallet)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrInvalidWinners
		}
		return nil, err
	}
	if !player.IsRegistered {
		return nil, ErrInvalidWinners
	}
	return player, nil
}

func (s *tournamentService) decorate(t *models.Tournament) {
	if t.LogoKey != nil && s.uploader != nil {
		if u := s.uploader.GetPublicURL(*t.LogoKey); u != "" {
			t.LogoURL = &u
		}
	}
	// Просроченность — наблюдение, а не переход: ядро ничего не
	// отменяет после end_time.
	t.IsOverdue = t.Status != models.StatusCompleted && time.Now().After(t.EndTime)
}

func (s *tournamentService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	room := strconv.Itoa(tournamentID)
	s.hub.BroadcastToRoom(room, scheduler.WebSocketMessage{
		Type:    eventType,
		Payload: payload,
		RoomID:  room,
	})
}
