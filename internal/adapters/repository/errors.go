package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrEventNotFound = errors.New("event not found")
	ErrTeamNotFound  = errors.New("team not found")
	ErrRoundNotFound = errors.New("round not found")
	ErrScoreNotFound = errors.New("score not found")
	ErrDuplicateTeam = errors.New("team name already taken")
)
