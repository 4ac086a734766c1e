// Package completion determines which rounds are fully scored.
//
// A round is completed iff every team eligible for it has a recorded
// score. Teams are eligible from their join round onward, so a team
// that joined mid-event never blocks completion of earlier rounds.
package completion

import (
	"sort"

	"github.com/liveboard/liveboard/internal/domain/model"
)

// Tracker answers completion questions for one snapshot. It is built
// once per recomputation and holds no state across snapshots.
type Tracker struct {
	rounds []int          // defined round numbers, ascending
	joined map[string]int // teamID -> joinedRound
	scored map[int]map[string]bool
}

// NewTracker indexes rounds, teams and scores for completion queries.
func NewTracker(rounds []model.Round, teams []model.Team, scores []model.Score) *Tracker {
	t := &Tracker{
		joined: make(map[string]int, len(teams)),
		scored: make(map[int]map[string]bool),
	}
	for _, r := range rounds {
		t.rounds = append(t.rounds, r.RoundNumber)
	}
	sort.Ints(t.rounds)
	for _, tm := range teams {
		t.joined[tm.ID] = tm.JoinedRound
	}
	for _, s := range scores {
		set := t.scored[s.RoundNumber]
		if set == nil {
			set = make(map[string]bool)
			t.scored[s.RoundNumber] = set
		}
		set[s.TeamID] = true
	}
	return t
}

// IsCompleted reports whether every eligible team has a score at round.
// A round with no eligible teams is never completed; an empty roster
// must not read as a finished round.
func (t *Tracker) IsCompleted(round int) bool {
	eligible := 0
	for _, joinedRound := range t.joined {
		if joinedRound <= round {
			eligible++
		}
	}
	if eligible == 0 {
		return false
	}
	for teamID, joinedRound := range t.joined {
		if joinedRound > round {
			continue
		}
		if !t.scored[round][teamID] {
			return false
		}
	}
	return true
}

// CompletedRounds returns all completed round numbers, ascending.
func (t *Tracker) CompletedRounds() []int {
	var out []int
	for _, r := range t.rounds {
		if t.IsCompleted(r) {
			out = append(out, r)
		}
	}
	return out
}

// LastCompleted resolves the round used as the "just finished" anchor
// for momentum comparisons. The second return is false when no round
// qualifies.
//
// While an event is active the anchor is currentRound-1: an admin may
// advance rounds before entry is finished, so if that candidate is not
// fully scored we fall back to the greatest completed round strictly
// below it. For every other status the anchor is simply the greatest
// completed round.
func (t *Tracker) LastCompleted(status model.Status, currentRound int) (int, bool) {
	if status == model.StatusActive {
		candidate := currentRound - 1
		if candidate < 1 {
			return 0, false
		}
		if t.IsCompleted(candidate) {
			return candidate, true
		}
		for i := len(t.rounds) - 1; i >= 0; i-- {
			if t.rounds[i] >= candidate {
				continue
			}
			if t.IsCompleted(t.rounds[i]) {
				return t.rounds[i], true
			}
		}
		return 0, false
	}

	completed := t.CompletedRounds()
	if len(completed) == 0 {
		return 0, false
	}
	return completed[len(completed)-1], true
}
