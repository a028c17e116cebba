package models

import "time"

// MatchResult представляет исход матча, соответствующий ENUM в БД.
type MatchResult string

const (
	ResultPending    MatchResult = "pending"
	ResultPlayer1Win MatchResult = "player1_win"
	ResultPlayer2Win MatchResult = "player2_win"
	ResultDraw       MatchResult = "draw"
)

// Match — единственная запись на неупорядоченную пару игроков внутри
// группы. Результат записывается ровно один раз.
type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	GroupID      int         `json:"group_id" db:"group_id"`
	Player1      string      `json:"player1" db:"player1"`
	Player2      string      `json:"player2" db:"player2"`
	Result       MatchResult `json:"result" db:"result"`
	IsCompleted  bool        `json:"is_completed" db:"is_completed"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// ValidSubmittedResult сообщает, допустим ли результат для записи.
// Pending записать нельзя.
func ValidSubmittedResult(r MatchResult) bool {
	switch r {
	case ResultPlayer1Win, ResultPlayer2Win, ResultDraw:
		return true
	}
	return false
}
