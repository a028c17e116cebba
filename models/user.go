package models

import "time"

// User — аккаунт для входа в API. Кошелёк служит идентичностью во всех
// турнирных операциях.
type User struct {
	ID           int       `json:"id" db:"id"`
	Wallet       string    `json:"wallet" db:"wallet"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
