package app

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrInvalidScore  = errors.New("invalid score")
	ErrInvalidStatus = errors.New("invalid status")
)
