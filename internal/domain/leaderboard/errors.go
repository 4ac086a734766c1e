package leaderboard

import "errors"

// Sentinel kinds for leaderboard assembly errors.
var (
	// ErrIncompleteData means the snapshot was missing one of its
	// collections; the pipeline fails fast rather than producing a
	// partial leaderboard.
	ErrIncompleteData = errors.New("event data incomplete")
)
