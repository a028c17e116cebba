package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/chess-escrow/models"
)

var ErrGroupNotFound = errors.New("group not found")

type GroupRepository interface {
	// Create вставляет группу и её состав в порядке позиций.
	Create(ctx context.Context, exec SQLExecutor, group *models.Group) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Group, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Group, error)
	MarkCompleted(ctx context.Context, exec SQLExecutor, id int) error
	CountIncompleteByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error)
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, g *models.Group) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO groups (tournament_id, round)
		VALUES ($1, $2)
		RETURNING id`

	if err := executor.QueryRowContext(ctx, query, g.TournamentID, g.Round).Scan(&g.ID); err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	memberQuery := `INSERT INTO group_players (group_id, position, wallet) VALUES ($1, $2, $3)`
	for i, wallet := range g.Players {
		if _, err := executor.ExecContext(ctx, memberQuery, g.ID, i, wallet); err != nil {
			return fmt.Errorf("failed to add player %s to group %d: %w", wallet, g.ID, err)
		}
	}
	return nil
}

func (r *postgresGroupRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Group, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, tournament_id, round, is_completed FROM groups WHERE id = $1`

	g := &models.Group{}
	err := executor.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.TournamentID, &g.Round, &g.IsCompleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to scan group %d: %w", id, err)
	}

	if g.Players, err = r.listMembers(ctx, executor, g.ID); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *postgresGroupRepository) listMembers(ctx context.Context, executor SQLExecutor, groupID int) ([]string, error) {
	rows, err := executor.QueryContext(ctx,
		`SELECT wallet FROM group_players WHERE group_id = $1 ORDER BY position ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members of group %d: %w", groupID, err)
	}
	defer rows.Close()

	players := make([]string, 0)
	for rows.Next() {
		var wallet string
		if scanErr := rows.Scan(&wallet); scanErr != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", scanErr)
		}
		players = append(players, wallet)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during group member rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresGroupRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Group, error) {
	query := `
		SELECT id, tournament_id, round, is_completed
		FROM groups
		WHERE tournament_id = $1
		ORDER BY round ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	groups := make([]*models.Group, 0)
	for rows.Next() {
		var g models.Group
		if scanErr := rows.Scan(&g.ID, &g.TournamentID, &g.Round, &g.IsCompleted); scanErr != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", scanErr)
		}
		groups = append(groups, &g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during group rows iteration: %w", err)
	}

	for _, g := range groups {
		if g.Players, err = r.listMembers(ctx, r.db, g.ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *postgresGroupRepository) MarkCompleted(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE groups SET is_completed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark group %d completed: %w", id, err)
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) CountIncompleteByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM groups WHERE tournament_id = $1 AND round = $2 AND is_completed = FALSE`,
		tournamentID, round,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count incomplete groups for tournament %d round %d: %w", tournamentID, round, err)
	}
	return count, nil
}
