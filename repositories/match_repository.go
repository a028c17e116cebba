package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/chess-escrow/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	// GetByGroupAndPair находит единственный матч на неупорядоченную
	// пару внутри группы. forUpdate блокирует строку, сериализуя
	// конкурирующие записи результата одного матча.
	GetByGroupAndPair(ctx context.Context, exec SQLExecutor, groupID int, player1, player2 string, forUpdate bool) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	SetResult(ctx context.Context, exec SQLExecutor, id int, result models.MatchResult) error
	CountPendingByGroup(ctx context.Context, exec SQLExecutor, groupID int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (tournament_id, group_id, player1, player2, result)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		m.TournamentID, m.GroupID, m.Player1, m.Player2, m.Result,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByGroupAndPair(ctx context.Context, exec SQLExecutor, groupID int, player1, player2 string, forUpdate bool) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, group_id, player1, player2, result, is_completed, created_at
		FROM matches
		WHERE group_id = $1
		  AND ((player1 = $2 AND player2 = $3) OR (player1 = $3 AND player2 = $2))`
	if forUpdate {
		query += " FOR UPDATE"
	}

	m := &models.Match{}
	err := executor.QueryRowContext(ctx, query, groupID, player1, player2).Scan(
		&m.ID, &m.TournamentID, &m.GroupID, &m.Player1, &m.Player2,
		&m.Result, &m.IsCompleted, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match for pair in group %d: %w", groupID, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `
		SELECT id, tournament_id, group_id, player1, player2, result, is_completed, created_at
		FROM matches
		WHERE tournament_id = $1
		ORDER BY group_id ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if scanErr := rows.Scan(
			&m.ID, &m.TournamentID, &m.GroupID, &m.Player1, &m.Player2,
			&m.Result, &m.IsCompleted, &m.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, &m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) SetResult(ctx context.Context, exec SQLExecutor, id int, result models.MatchResult) error {
	executor := r.getExecutor(exec)
	// is_completed = FALSE в предикате — страховка write-once на случай
	// вызова без блокировки строки.
	query := `
		UPDATE matches SET result = $1, is_completed = TRUE
		WHERE id = $2 AND is_completed = FALSE`
	res, err := executor.ExecContext(ctx, query, result, id)
	if err != nil {
		return fmt.Errorf("failed to set result for match %d: %w", id, err)
	}
	return checkAffectedRows(res, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountPendingByGroup(ctx context.Context, exec SQLExecutor, groupID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE group_id = $1 AND is_completed = FALSE`, groupID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending matches for group %d: %w", groupID, err)
	}
	return count, nil
}
