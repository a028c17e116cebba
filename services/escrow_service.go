package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Dosada05/chess-escrow/models"
	"github.com/Dosada05/chess-escrow/repositories"
)

// Доли выплат за 1/2/3 место в процентах от призового фонда.
const (
	FirstPlaceShare  = 50
	SecondPlaceShare = 30
	ThirdPlaceShare  = 20
)

// MaxPrizePool ограничивает фонд так, чтобы total*share в
// SplitPrizePool не переполнял int64.
const MaxPrizePool = int64(math.MaxInt64 / 100)

// PayoutRecipient — получатель доли призового фонда.
type PayoutRecipient struct {
	Place  int
	Wallet string
}

// EscrowService держит заблокированный призовой фонд турнира от
// создания до завершения. Lock и Payout вызываются внутри транзакции
// стейт-машины (exec), чтобы движение средств и смена состояния
// фиксировались вместе или никак.
type EscrowService interface {
	Lock(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, token, organizerWallet string, amount int64) error
	Payout(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, recipients []PayoutRecipient) ([]*models.EscrowPayout, error)
	BalanceOf(ctx context.Context, wallet, token string) (int64, error)
	Mint(ctx context.Context, wallet, token string, amount int64) (int64, error)
	ListPayouts(ctx context.Context, tournamentID int) ([]*models.EscrowPayout, error)
}

type escrowService struct {
	escrowRepo repositories.EscrowRepository
}

func NewEscrowService(escrowRepo repositories.EscrowRepository) EscrowService {
	return &escrowService{escrowRepo: escrowRepo}
}

func (s *escrowService) Lock(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, token, organizerWallet string, amount int64) error {
	if amount <= 0 || amount > MaxPrizePool {
		return ErrInvalidPrizePool
	}

	err := s.escrowRepo.AddBalance(ctx, exec, organizerWallet, token, -amount)
	if err != nil {
		if errors.Is(err, repositories.ErrInsufficientBalance) {
			return ErrEscrowInsufficientFunds
		}
		return fmt.Errorf("failed to debit organizer %s: %w", organizerWallet, err)
	}

	escrow := &models.Escrow{
		TournamentID: tournamentID,
		Token:        token,
		Amount:       amount,
	}
	if err := s.escrowRepo.CreateEscrow(ctx, exec, escrow); err != nil {
		return fmt.Errorf("failed to lock prize pool for tournament %d: %w", tournamentID, err)
	}
	return nil
}

// SplitPrizePool делит фонд 50/30/20 целочисленно. Остаток от
// округления достаётся первому месту, поэтому сумма долей всегда в
// точности равна заблокированной сумме.
func SplitPrizePool(total int64) (first, second, third int64) {
	first = total * FirstPlaceShare / 100
	second = total * SecondPlaceShare / 100
	third = total * ThirdPlaceShare / 100
	first += total - first - second - third
	return first, second, third
}

func (s *escrowService) Payout(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, recipients []PayoutRecipient) ([]*models.EscrowPayout, error) {
	if len(recipients) != 3 {
		return nil, ErrInvalidWinners
	}

	escrow, err := s.escrowRepo.GetEscrowForUpdate(ctx, exec, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrEscrowNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	// Независимая от стейт-машины защита от повторной выплаты: строка
	// эскроу заблокирована, флаг paid проверяется под блокировкой.
	if escrow.Paid {
		return nil, ErrEscrowAlreadyPaid
	}

	shares := make(map[int]int64, 3)
	shares[1], shares[2], shares[3] = SplitPrizePool(escrow.Amount)

	payouts := make([]*models.EscrowPayout, 0, len(recipients))
	for _, rec := range recipients {
		amount, ok := shares[rec.Place]
		if !ok {
			return nil, ErrInvalidWinners
		}
		delete(shares, rec.Place)

		if err := s.escrowRepo.AddBalance(ctx, exec, rec.Wallet, escrow.Token, amount); err != nil {
			return nil, fmt.Errorf("failed to credit %s for place %d: %w", rec.Wallet, rec.Place, err)
		}

		payout := &models.EscrowPayout{
			TournamentID: tournamentID,
			Place:        rec.Place,
			Wallet:       rec.Wallet,
			Amount:       amount,
		}
		if err := s.escrowRepo.InsertPayout(ctx, exec, payout); err != nil {
			return nil, err
		}
		payouts = append(payouts, payout)
	}

	if err := s.escrowRepo.MarkPaid(ctx, exec, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrEscrowNotFound) {
			return nil, ErrEscrowAlreadyPaid
		}
		return nil, err
	}
	return payouts, nil
}

func (s *escrowService) BalanceOf(ctx context.Context, wallet, token string) (int64, error) {
	return s.escrowRepo.GetBalance(ctx, nil, wallet, token)
}

func (s *escrowService) Mint(ctx context.Context, wallet, token string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("mint amount must be positive")
	}
	if err := s.escrowRepo.AddBalance(ctx, nil, wallet, token, amount); err != nil {
		return 0, fmt.Errorf("failed to mint %d to %s: %w", amount, wallet, err)
	}
	return s.escrowRepo.GetBalance(ctx, nil, wallet, token)
}

func (s *escrowService) ListPayouts(ctx context.Context, tournamentID int) ([]*models.EscrowPayout, error) {
	return s.escrowRepo.ListPayouts(ctx, tournamentID)
}
