package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/Dosada05/chess-escrow/models"
	"github.com/Dosada05/chess-escrow/repositories"
	"github.com/Dosada05/chess-escrow/scheduler"
)

// Scoring задаёт начисление очков за исход матча.
type Scoring struct {
	Win  int
	Draw int
}

func DefaultScoring() Scoring {
	return Scoring{Win: 2, Draw: 1}
}

// MatchService — леджер результатов: одна запись на неупорядоченную
// пару в группе, результат write-once, очки обоих игроков и отметка
// завершения группы фиксируются в одной транзакции. Результаты
// записывает только организатор турнира.
type MatchService interface {
	SubmitResult(ctx context.Context, tournamentID, groupID int, callerWallet, player1, player2 string, result models.MatchResult) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type matchService struct {
	txManager      repositories.TxManager
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	groupRepo      repositories.GroupRepository
	matchRepo      repositories.MatchRepository
	scoring        Scoring
	hub            *scheduler.Hub
	logger         *slog.Logger
}

func NewMatchService(
	txManager repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	scoring Scoring,
	hub *scheduler.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		txManager:      txManager,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		groupRepo:      groupRepo,
		matchRepo:      matchRepo,
		scoring:        scoring,
		hub:            hub,
		logger:         logger,
	}
}

func (s *matchService) SubmitResult(ctx context.Context, tournamentID, groupID int, callerWallet, player1, player2 string, result models.MatchResult) (*models.Match, error) {
	if !models.ValidSubmittedResult(result) {
		return nil, ErrInvalidMatchResult
	}

	var match *models.Match
	var groupCompleted bool
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.OrganizerWallet != callerWallet {
			return ErrUnauthorized
		}
		if tournament.Status != models.StatusInProgress {
			return ErrInvalidTransition
		}

		group, err := s.groupRepo.GetByID(ctx, exec, groupID)
		if err != nil {
			if errors.Is(err, repositories.ErrGroupNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		if group.TournamentID != tournamentID {
			return ErrGroupNotFound
		}

		// Блокировка строки матча сериализует конкурирующие записи
		// результата одной пары; матчи разных групп трогают разные
		// строки и идут независимо.
		m, err := s.matchRepo.GetByGroupAndPair(ctx, exec, groupID, player1, player2, true)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if m.IsCompleted {
			return ErrMatchAlreadyCompleted
		}

		// Исход трактуется в терминах пары, как она хранится в матче:
		// если вызывающий передал пару в обратном порядке, победа
		// первого аргумента остаётся победой того же кошелька.
		storedResult := result
		if m.Player1 != player1 {
			switch result {
			case models.ResultPlayer1Win:
				storedResult = models.ResultPlayer2Win
			case models.ResultPlayer2Win:
				storedResult = models.ResultPlayer1Win
			}
		}

		if err := s.matchRepo.SetResult(ctx, exec, m.ID, storedResult); err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchAlreadyCompleted
			}
			return err
		}

		if err := s.applyScores(ctx, exec, m, storedResult); err != nil {
			return err
		}

		pending, err := s.matchRepo.CountPendingByGroup(ctx, exec, groupID)
		if err != nil {
			return err
		}
		if pending == 0 {
			if err := s.groupRepo.MarkCompleted(ctx, exec, groupID); err != nil {
				return err
			}
			groupCompleted = true
		}

		m.Result = storedResult
		m.IsCompleted = true
		match = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match result recorded",
		slog.Int("tournament_id", tournamentID),
		slog.Int("group_id", groupID),
		slog.Int("match_id", match.ID),
		slog.String("result", string(match.Result)))

	room := strconv.Itoa(tournamentID)
	if s.hub != nil {
		s.hub.BroadcastToRoom(room, scheduler.WebSocketMessage{
			Type:    scheduler.EventMatchResult,
			Payload: match,
			RoomID:  room,
		})
		if groupCompleted {
			s.hub.BroadcastToRoom(room, scheduler.WebSocketMessage{
				Type:    scheduler.EventGroupCompleted,
				Payload: map[string]int{"group_id": groupID},
				RoomID:  room,
			})
		}
	}
	return match, nil
}

// applyScores обновляет счётчики и очки обоих игроков матча. Вызывается
// в той же транзакции, что и запись результата.
func (s *matchService) applyScores(ctx context.Context, exec repositories.SQLExecutor, m *models.Match, result models.MatchResult) error {
	type delta struct {
		points, wins, draws, losses int
	}
	var p1, p2 delta

	switch result {
	case models.ResultPlayer1Win:
		p1 = delta{points: s.scoring.Win, wins: 1}
		p2 = delta{losses: 1}
	case models.ResultPlayer2Win:
		p1 = delta{losses: 1}
		p2 = delta{points: s.scoring.Win, wins: 1}
	case models.ResultDraw:
		p1 = delta{points: s.scoring.Draw, draws: 1}
		p2 = delta{points: s.scoring.Draw, draws: 1}
	default:
		return ErrInvalidMatchResult
	}

	if err := s.playerRepo.ApplyResult(ctx, exec, m.TournamentID, m.Player1, p1.points, p1.wins, p1.draws, p1.losses); err != nil {
		return err
	}
	return s.playerRepo.ApplyResult(ctx, exec, m.TournamentID, m.Player2, p2.points, p2.wins, p2.draws, p2.losses)
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID)
}
