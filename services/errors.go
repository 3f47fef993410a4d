package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/cue-club/brackets"
)

// Общие ошибки, используемые в сервисах и маппинге HTTP.
var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrTournamentNotFound = errors.New("tournament bracket not found")

	// ErrPersistenceFailure: изменение применено в памяти, но не сохранено.
	// Повторить сохранение можно через Save.
	ErrPersistenceFailure = errors.New("bracket could not be saved")

	// Операции, запрещенные во время показа жеребьевки, относятся к InvalidOperation.
	ErrRevealInProgress = fmt.Errorf("%w: a draw reveal is in progress", brackets.ErrInvalidOperation)
	ErrNoActiveReveal   = fmt.Errorf("%w: no draw reveal is running", brackets.ErrInvalidOperation)
	ErrRevealCommitting = fmt.Errorf("%w: the reveal already finished and is being applied", brackets.ErrInvalidOperation)
	ErrBracketExists    = fmt.Errorf("%w: tournament already has a bracket", brackets.ErrInvalidOperation)

	// Ошибки аутентификации
	ErrAuthInvalidCredentials = errors.New("invalid staff credentials")
	ErrAuthInvalidToken       = errors.New("invalid or expired token")
)
