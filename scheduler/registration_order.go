package scheduler

import "fmt"

// RegistrationOrderScheduler рассаживает игроков в порядке регистрации:
// первые groupSize зарегистрировавшихся — группа 1 и так далее.
// Детерминированно и воспроизводимо для аудита; это не сид по силе.
type RegistrationOrderScheduler struct{}

func NewRegistrationOrderScheduler() GroupScheduler {
	return &RegistrationOrderScheduler{}
}

func (s *RegistrationOrderScheduler) GetName() string {
	return "RegistrationOrder"
}

func (s *RegistrationOrderScheduler) BuildGroups(players []string, groupSize int) ([][]string, error) {
	if groupSize < 2 {
		return nil, fmt.Errorf("invalid group size %d", groupSize)
	}
	if len(players) == 0 || len(players)%groupSize != 0 {
		return nil, fmt.Errorf("%w: %d players, group size %d", ErrNotPartitionable, len(players), groupSize)
	}

	groups := make([][]string, 0, len(players)/groupSize)
	for i := 0; i < len(players); i += groupSize {
		group := make([]string, groupSize)
		copy(group, players[i:i+groupSize])
		groups = append(groups, group)
	}
	return groups, nil
}
