package scheduler

import "errors"

// ErrNotPartitionable возвращается, когда список игроков не делится на
// группы фиксированного размера без остатка.
var ErrNotPartitionable = errors.New("player count is not a multiple of the group size")

// GroupScheduler разбивает зарегистрированных игроков раунда на
// непересекающиеся группы фиксированного размера. Политика рассадки
// (порядок регистрации, сид по рейтингу, случайная) — деталь реализации.
type GroupScheduler interface {
	GetName() string
	BuildGroups(players []string, groupSize int) ([][]string, error)
}

// Pairings генерирует все C(n, 2) неупорядоченные пары группы —
// по одному круговому матчу на пару.
func Pairings(players []string) [][2]string {
	pairs := make([][2]string, 0, len(players)*(len(players)-1)/2)
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			pairs = append(pairs, [2]string{players[i], players[j]})
		}
	}
	return pairs
}
