package models

import "time"

// Player — запись игрока в рамках одного турнира. Кошелёк уникален
// внутри турнира; очки мутируются только при записи результата матча.
type Player struct {
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Wallet       string    `json:"wallet" db:"wallet"`
	Username     string    `json:"username" db:"username"`
	IsRegistered bool      `json:"is_registered" db:"is_registered"`
	TotalPoints  int       `json:"total_points" db:"total_points"`
	Wins         int       `json:"wins" db:"wins"`
	Draws        int       `json:"draws" db:"draws"`
	Losses       int       `json:"losses" db:"losses"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
