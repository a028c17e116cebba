package models

import "time"

// Escrow — заблокированный призовой фонд турнира. Ведётся отдельным
// леджером, чтобы движение средств было аудируемо независимо от
// метаданных турнира. Amount в микро-единицах токена.
type Escrow struct {
	TournamentID int        `json:"tournament_id" db:"tournament_id"`
	Token        string     `json:"token" db:"token"`
	Amount       int64      `json:"amount" db:"amount"`
	Paid         bool       `json:"paid" db:"paid"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	PaidAt       *time.Time `json:"paid_at,omitempty" db:"paid_at"`
}

// EscrowPayout — одна выплата получателю при завершении турнира.
// Place: 1, 2 или 3.
type EscrowPayout struct {
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Place        int       `json:"place" db:"place"`
	Wallet       string    `json:"wallet" db:"wallet"`
	Amount       int64     `json:"amount" db:"amount"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TokenBalance — баланс кошелька в демо-леджере токена.
type TokenBalance struct {
	Wallet string `json:"wallet" db:"wallet"`
	Token  string `json:"token" db:"token"`
	Amount int64  `json:"amount" db:"amount"`
}
