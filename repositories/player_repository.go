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
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerConflict = errors.New("wallet is already registered for this tournament")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByWallet(ctx context.Context, tournamentID int, wallet string) (*models.Player, error)
	// ListByTournament возвращает игроков в порядке регистрации —
	// этот порядок использует планировщик групп.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Player, error)
	// ApplyResult атомарно прибавляет очки и счётчики W/D/L одному игроку.
	ApplyResult(ctx context.Context, exec SQLExecutor, tournamentID int, wallet string, points, wins, draws, losses int) error
	DeactivateAll(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Player) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO players (tournament_id, wallet, username, is_registered, is_active)
		VALUES ($1, $2, $3, TRUE, TRUE)
		RETURNING total_points, wins, draws, losses, created_at`

	err := executor.QueryRowContext(ctx, query, p.TournamentID, p.Wallet, p.Username).
		Scan(&p.TotalPoints, &p.Wins, &p.Draws, &p.Losses, &p.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrPlayerConflict
		}
		return fmt.Errorf("failed to create player: %w", err)
	}
	p.IsRegistered = true
	p.IsActive = true
	return nil
}

func (r *postgresPlayerRepository) GetByWallet(ctx context.Context, tournamentID int, wallet string) (*models.Player, error) {
	query := `
		SELECT tournament_id, wallet, username, is_registered, total_points,
		       wins, draws, losses, is_active, created_at
		FROM players
		WHERE tournament_id = $1 AND wallet = $2`

	p := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, wallet).Scan(
		&p.TournamentID, &p.Wallet, &p.Username, &p.IsRegistered, &p.TotalPoints,
		&p.Wins, &p.Draws, &p.Losses, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player %s: %w", wallet, err)
	}
	return p, nil
}

func (r *postgresPlayerRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT tournament_id, wallet, username, is_registered, total_points,
		       wins, draws, losses, is_active, created_at
		FROM players
		WHERE tournament_id = $1
		ORDER BY created_at ASC, wallet ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		var p models.Player
		if scanErr := rows.Scan(
			&p.TournamentID, &p.Wallet, &p.Username, &p.IsRegistered, &p.TotalPoints,
			&p.Wins, &p.Draws, &p.Losses, &p.IsActive, &p.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		players = append(players, &p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) ApplyResult(ctx context.Context, exec SQLExecutor, tournamentID int, wallet string, points, wins, draws, losses int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE players SET
			total_points = total_points + $1,
			wins = wins + $2,
			draws = draws + $3,
			losses = losses + $4
		WHERE tournament_id = $5 AND wallet = $6`

	result, err := executor.ExecContext(ctx, query, points, wins, draws, losses, tournamentID, wallet)
	if err != nil {
		return fmt.Errorf("failed to apply result for player %s: %w", wallet, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) DeactivateAll(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	// Записи игроков не удаляются: история очков сохраняется.
	query := `UPDATE players SET is_active = FALSE WHERE tournament_id = $1`
	if _, err := executor.ExecContext(ctx, query, tournamentID); err != nil {
		return fmt.Errorf("failed to deactivate players for tournament %d: %w", tournamentID, err)
	}
	return nil
}
