package models

import "time"

// TournamentStatus представляет статусы жизненного цикла турнира,
// соответствующие ENUM в БД. Переходы строго однонаправленные.
type TournamentStatus string

const (
	StatusCreated            TournamentStatus = "created"
	StatusRegistrationOpen   TournamentStatus = "registration_open"
	StatusRegistrationClosed TournamentStatus = "registration_closed"
	StatusInProgress         TournamentStatus = "in_progress"
	StatusCompleted          TournamentStatus = "completed"
)

// Tournament представляет турнир с эскроу-призовым фондом.
// PrizePool хранится в микро-единицах токена (10^6 = 1 токен) и
// неизменяем после создания.
type Tournament struct {
	ID                int              `json:"id" db:"id"`
	Name              string           `json:"name" db:"name"`
	Description       *string          `json:"description,omitempty" db:"description"`
	OrganizerWallet   string           `json:"organizer_wallet" db:"organizer_wallet"`
	PrizeToken        string           `json:"prize_token" db:"prize_token"`
	PrizePool         int64            `json:"prize_pool" db:"prize_pool"`
	MaxPlayers        int              `json:"max_players" db:"max_players"`
	StartTime         time.Time        `json:"start_time" db:"start_time"`
	EndTime           time.Time        `json:"end_time" db:"end_time"`
	Status            TournamentStatus `json:"status" db:"status"`
	RegisteredPlayers int              `json:"registered_players" db:"registered_players"`
	CurrentRound      int              `json:"current_round" db:"current_round"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	LogoKey           *string          `json:"-" db:"logo_key"`
	LogoURL           *string          `json:"logo_url,omitempty" db:"-"`

	// Прошёл ли end_time при незавершённом турнире. Вычисляется при
	// чтении, ничего не отменяет автоматически.
	IsOverdue bool `json:"is_overdue" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Players []Player `json:"players,omitempty" db:"-"`
	Groups  []Group  `json:"groups,omitempty" db:"-"`
	Matches []Match  `json:"matches,omitempty" db:"-"`
}
