package dal

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateSubmission = errors.New("roster already submitted for this round")
	ErrInsufficientCredits = errors.New("insufficient bonus credits")
	ErrInvalidAmount       = errors.New("credit amount must be positive")
)
