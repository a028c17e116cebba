package models

// Group — круговая группа фиксированного размера внутри раунда.
// Состав группы неизменяем после назначения.
type Group struct {
	ID           int      `json:"id" db:"id"`
	TournamentID int      `json:"tournament_id" db:"tournament_id"`
	Round        int      `json:"round" db:"round"`
	Players      []string `json:"players" db:"-"`
	IsCompleted  bool     `json:"is_completed" db:"is_completed"`
}
