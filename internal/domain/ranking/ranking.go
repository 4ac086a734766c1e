// Package ranking turns a score snapshot into an ordered leaderboard.
//
// The computation is pure: callers pass the snapshot pieces plus the
// last completed round and get back fully annotated rankings. Nothing
// is cached between calls.
package ranking

import (
	"sort"

	"github.com/liveboard/liveboard/internal/domain/model"
)

// RoundScore is one team's points at one defined round. Absent scores
// contribute zero; absence is not an error.
type RoundScore struct {
	RoundNumber int     `json:"roundNumber"`
	Points      float64 `json:"points"`
}

// TeamRanking is the per-team leaderboard row.
type TeamRanking struct {
	Team            model.Team   `json:"team"`
	TotalScore      float64      `json:"totalScore"`
	Rank            int          `json:"rank"`
	RoundScores     []RoundScore `json:"roundScores"`
	LastRoundPoints float64      `json:"lastRoundPoints"`
	RecentDelta     float64      `json:"recentDelta"`
	AverageScore    float64      `json:"averageScore"`
}

// Compute builds the ordered ranking for all teams. lastCompleted is
// the anchor round from the completion tracker; hasCompleted is false
// when no round has finished yet, which zeroes the momentum fields.
//
// Order is a total order: total score descending, team name ascending.
// Ranks are dense and 1-based; equal totals never share a rank.
func Compute(rounds []model.Round, teams []model.Team, scores []model.Score, lastCompleted int, hasCompleted bool) []TeamRanking {
	roundNumbers := make([]int, 0, len(rounds))
	for _, r := range rounds {
		roundNumbers = append(roundNumbers, r.RoundNumber)
	}
	sort.Ints(roundNumbers)

	points := indexPoints(scores)

	rankings := make([]TeamRanking, 0, len(teams))
	for _, team := range teams {
		rs := make([]RoundScore, 0, len(roundNumbers))
		total := 0.0
		for _, rn := range roundNumbers {
			p := points[cell{team.ID, rn}]
			rs = append(rs, RoundScore{RoundNumber: rn, Points: p})
			total += p
		}

		var lastRoundPoints, previousRoundPoints float64
		if hasCompleted {
			lastRoundPoints = points[cell{team.ID, lastCompleted}]
			if lastCompleted > 1 {
				previousRoundPoints = points[cell{team.ID, lastCompleted - 1}]
			}
		}
		recentDelta := 0.0
		if hasCompleted {
			recentDelta = lastRoundPoints - previousRoundPoints
		}

		rankings = append(rankings, TeamRanking{
			Team:            team,
			TotalScore:      total,
			RoundScores:     rs,
			LastRoundPoints: lastRoundPoints,
			RecentDelta:     recentDelta,
			AverageScore:    average(points, team, roundNumbers, lastCompleted, hasCompleted),
		})
	}

	sortRankings(rankings)
	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings
}

// RanksThrough re-ranks all teams eligible by round using only scores
// recorded at or before it, returning teamID -> rank. Teams that had
// not yet joined by that round are omitted; they have no prior rank.
// The movement classifier diffs these against the current ranking.
func RanksThrough(teams []model.Team, scores []model.Score, round int) map[string]int {
	totals := make(map[string]float64)
	names := make(map[string]string)
	for _, team := range teams {
		if team.JoinedRound > round {
			continue
		}
		totals[team.ID] = 0
		names[team.ID] = team.Name
	}
	for _, s := range scores {
		if s.RoundNumber > round {
			continue
		}
		if _, ok := totals[s.TeamID]; !ok {
			continue
		}
		totals[s.TeamID] += s.Points
	}

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if totals[ids[i]] != totals[ids[j]] {
			return totals[ids[i]] > totals[ids[j]]
		}
		return names[ids[i]] < names[ids[j]]
	})

	ranks := make(map[string]int, len(ids))
	for i, id := range ids {
		ranks[id] = i + 1
	}
	return ranks
}

type cell struct {
	teamID string
	round  int
}

func indexPoints(scores []model.Score) map[cell]float64 {
	points := make(map[cell]float64, len(scores))
	for _, s := range scores {
		points[cell{s.TeamID, s.RoundNumber}] = s.Points
	}
	return points
}

// average divides the team's points over rounds it was both eligible
// for and that have completed. A team joining at round 3 is not
// penalized for "missing" rounds 1-2, and future rounds do not drag
// the denominator.
func average(points map[cell]float64, team model.Team, roundNumbers []int, lastCompleted int, hasCompleted bool) float64 {
	if !hasCompleted {
		return 0
	}
	sum := 0.0
	count := 0
	for _, rn := range roundNumbers {
		if rn > lastCompleted || rn < team.JoinedRound {
			continue
		}
		sum += points[cell{team.ID, rn}]
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func sortRankings(rankings []TeamRanking) {
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].TotalScore != rankings[j].TotalScore {
			return rankings[i].TotalScore > rankings[j].TotalScore
		}
		return rankings[i].Team.Name < rankings[j].Team.Name
	})
}
