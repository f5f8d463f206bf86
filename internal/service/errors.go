package service

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrTriageUnavailable   = errors.New("triage service unavailable")
	ErrTriageNormalization = errors.New("triage response could not be normalized")
	ErrInvalidStatus       = errors.New("status must not be empty")
	ErrInvalidInput        = errors.New("invalid input")
)
