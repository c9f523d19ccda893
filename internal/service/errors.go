package service

import "errors"

var (
	ErrSessionNotFound  = errors.New("draft session not found")
	ErrAlreadySubmitted = errors.New("roster already submitted for this round")
	ErrTeamNotFound     = errors.New("team is not in the round pool")
)
