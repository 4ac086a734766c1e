// Package movement classifies rank changes between the current
// standings and the standings as of an earlier comparison round.
//
// The comparison is recomputed from the score set itself rather than
// from whatever a particular client previously rendered, so every
// client derives the same tags from the same snapshot.
package movement

import (
	"github.com/liveboard/liveboard/internal/domain/model"
	"github.com/liveboard/liveboard/internal/domain/ranking"
)

// Direction tags how a team's rank moved.
type Direction string

// Movement tags.
const (
	Up   Direction = "up"
	Down Direction = "down"
	Same Direction = "same"
	New  Direction = "new"
)

// Classify returns teamID -> movement tag for the current rankings.
//
// The comparison round depends on lifecycle: an active event compares
// against the standings as of the last completed round ("where ranks
// stood one round ago"), a finished event steps one further back so
// the final table still shows who moved in the last round. When no
// comparison round exists every team is Same.
func Classify(status model.Status, lastCompleted int, hasCompleted bool, teams []model.Team, scores []model.Score, current []ranking.TeamRanking) map[string]Direction {
	out := make(map[string]Direction, len(current))

	comparison, ok := comparisonRound(status, lastCompleted, hasCompleted)
	if !ok {
		for _, r := range current {
			out[r.Team.ID] = Same
		}
		return out
	}

	previous := ranking.RanksThrough(teams, scores, comparison)
	for _, r := range current {
		prior, ranked := previous[r.Team.ID]
		switch {
		case !ranked:
			out[r.Team.ID] = New
		case r.Rank < prior:
			out[r.Team.ID] = Up
		case r.Rank > prior:
			out[r.Team.ID] = Down
		default:
			out[r.Team.ID] = Same
		}
	}
	return out
}

func comparisonRound(status model.Status, lastCompleted int, hasCompleted bool) (int, bool) {
	if !hasCompleted {
		return 0, false
	}
	switch status {
	case model.StatusActive:
		return lastCompleted, true
	case model.StatusCompleted, model.StatusArchived:
		if lastCompleted-1 >= 1 {
			return lastCompleted - 1, true
		}
		return 0, false
	default:
		return 0, false
	}
}
