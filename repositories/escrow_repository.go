package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/chess-escrow/models"
	"github.com/lib/pq"
)

var (
	ErrEscrowNotFound      = errors.New("escrow not found")
	ErrEscrowAlreadyExists = errors.New("escrow already exists for this tournament")
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

// EscrowRepository — леджер токена и эскроу. Отдельный от метаданных
// турнира, чтобы движение средств было аудируемо само по себе.
type EscrowRepository interface {
	GetBalance(ctx context.Context, exec SQLExecutor, wallet, token string) (int64, error)
	// AddBalance прибавляет amount (может быть отрицательным — списание).
	// При списании предикат не даёт балансу уйти ниже нуля: ноль
	// затронутых строк означает недостаток средств.
	AddBalance(ctx context.Context, exec SQLExecutor, wallet, token string, amount int64) error
	CreateEscrow(ctx context.Context, exec SQLExecutor, escrow *models.Escrow) error
	// GetEscrowForUpdate блокирует строку эскроу: защита от двойной
	// выплаты не зависит от стейт-машины турнира.
	GetEscrowForUpdate(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Escrow, error)
	MarkPaid(ctx context.Context, exec SQLExecutor, tournamentID int) error
	InsertPayout(ctx context.Context, exec SQLExecutor, payout *models.EscrowPayout) error
	ListPayouts(ctx context.Context, tournamentID int) ([]*models.EscrowPayout, error)
}

type postgresEscrowRepository struct {
	db *sql.DB
}

func NewPostgresEscrowRepository(db *sql.DB) EscrowRepository {
	return &postgresEscrowRepository{db: db}
}

func (r *postgresEscrowRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEscrowRepository) GetBalance(ctx context.Context, exec SQLExecutor, wallet, token string) (int64, error) {
	executor := r.getExecutor(exec)
	var amount int64
	err := executor.QueryRowContext(ctx,
		`SELECT amount FROM token_balances WHERE wallet = $1 AND token = $2`, wallet, token,
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read balance of %s: %w", wallet, err)
	}
	return amount, nil
}

func (r *postgresEscrowRepository) AddBalance(ctx context.Context, exec SQLExecutor, wallet, token string, amount int64) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO token_balances (wallet, token, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet, token)
		DO UPDATE SET amount = token_balances.amount + EXCLUDED.amount
		WHERE token_balances.amount + EXCLUDED.amount >= 0`

	result, err := executor.ExecContext(ctx, query, wallet, token, amount)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			// check constraint на неотрицательный баланс
			return ErrInsufficientBalance
		}
		return fmt.Errorf("failed to update balance of %s: %w", wallet, err)
	}
	return checkAffectedRows(result, ErrInsufficientBalance)
}

func (r *postgresEscrowRepository) CreateEscrow(ctx context.Context, exec SQLExecutor, e *models.Escrow) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO escrows (tournament_id, token, amount)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query, e.TournamentID, e.Token, e.Amount).Scan(&e.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrEscrowAlreadyExists
		}
		return fmt.Errorf("failed to create escrow for tournament %d: %w", e.TournamentID, err)
	}
	return nil
}

func (r *postgresEscrowRepository) GetEscrowForUpdate(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Escrow, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT tournament_id, token, amount, paid, created_at, paid_at
		FROM escrows
		WHERE tournament_id = $1
		FOR UPDATE`

	e := &models.Escrow{}
	err := executor.QueryRowContext(ctx, query, tournamentID).Scan(
		&e.TournamentID, &e.Token, &e.Amount, &e.Paid, &e.CreatedAt, &e.PaidAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("failed to scan escrow for tournament %d: %w", tournamentID, err)
	}
	return e, nil
}

func (r *postgresEscrowRepository) MarkPaid(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE escrows SET paid = TRUE, paid_at = NOW()
		WHERE tournament_id = $1 AND paid = FALSE`
	result, err := executor.ExecContext(ctx, query, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to mark escrow paid for tournament %d: %w", tournamentID, err)
	}
	return checkAffectedRows(result, ErrEscrowNotFound)
}

func (r *postgresEscrowRepository) InsertPayout(ctx context.Context, exec SQLExecutor, p *models.EscrowPayout) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO escrow_payouts (tournament_id, place, wallet, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query, p.TournamentID, p.Place, p.Wallet, p.Amount).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payout for tournament %d place %d: %w", p.TournamentID, p.Place, err)
	}
	return nil
}

func (r *postgresEscrowRepository) ListPayouts(ctx context.Context, tournamentID int) ([]*models.EscrowPayout, error) {
	query := `
		SELECT tournament_id, place, wallet, amount, created_at
		FROM escrow_payouts
		WHERE tournament_id = $1
		ORDER BY place ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payouts for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	payouts := make([]*models.EscrowPayout, 0)
	for rows.Next() {
		var p models.EscrowPayout
		if scanErr := rows.Scan(&p.TournamentID, &p.Place, &p.Wallet, &p.Amount, &p.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan payout row: %w", scanErr)
		}
		payouts = append(payouts, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during payout rows iteration: %w", err)
	}
	return payouts, nil
}
