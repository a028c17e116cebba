package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Жизненный цикл и права
	ErrInvalidTransition = errors.New("invalid tournament state transition")
	ErrUnauthorized      = errors.New("operation not allowed for the current caller")

	// Регистрация
	ErrAlreadyRegistered   = errors.New("wallet is already registered for this tournament")
	ErrTournamentFull      = errors.New("tournament registration is full")
	ErrInsufficientPlayers = errors.New("not enough registered players to start")

	// Матчи
	ErrMatchNotFound         = errors.New("match not found for this pair in the group")
	ErrMatchAlreadyCompleted = errors.New("match result has already been submitted")
	ErrInvalidMatchResult    = errors.New("invalid match result")
	ErrRoundIncomplete       = errors.New("current round has incomplete groups")

	// Эскроу
	ErrEscrowInsufficientFunds = errors.New("insufficient funds to lock the prize pool")
	ErrEscrowAlreadyPaid       = errors.New("escrow has already been paid out")

	// Валидация создания турнира
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrInvalidPrizePool       = errors.New("prize pool must be positive")
	ErrInvalidMaxPlayers      = errors.New("max players must be a positive multiple of the group size")
	ErrInvalidDateRange       = errors.New("tournament end time must be after start time")
	ErrInvalidWinners         = errors.New("winners must be three distinct registered players")

	// Поиск сущностей
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrGroupNotFound      = errors.New("group not found")

	// Аутентификация
	ErrAuthInvalidCredentials = errors.New("invalid wallet or password")
	ErrAuthWalletTaken        = errors.New("wallet is already taken")
	ErrPasswordTooShort       = errors.New("password is too short")
)
