package service

import "errors"

var (
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrDistanceRequired     = errors.New("distance is required for rides")
	ErrMessageIDRequired    = errors.New("message id is required")
	ErrReminderDateRequired = errors.New("reminder date is required")
	ErrInvalidReminderDate  = errors.New("invalid reminder date")
	ErrReminderInPast       = errors.New("reminder date must be in the future")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrIDSpaceExhausted     = errors.New("failed to generate unique id")
)
