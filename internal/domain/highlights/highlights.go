// Package highlights derives narrative signals from a computed ranking.
package highlights

import (
	"github.com/liveboard/liveboard/internal/domain/model"
	"github.com/liveboard/liveboard/internal/domain/ranking"
)

// Leader is the rank-1 team and its margin over the runner-up.
// LeadOverNext is nil with fewer than two teams.
type Leader struct {
	Team         model.Team `json:"team"`
	Total        float64    `json:"total"`
	LeadOverNext *float64   `json:"leadOverNext"`
}

// Surging is the team with the largest positive recent delta.
type Surging struct {
	Team        model.Team `json:"team"`
	Delta       float64    `json:"delta"`
	RoundNumber int        `json:"roundNumber"`
}

// TightRace is the adjacent pair with the smallest positive margin.
type TightRace struct {
	Margin float64       `json:"margin"`
	Teams  [2]model.Team `json:"teams"`
}

// RoundHero is the single highest recorded score across all rounds.
type RoundHero struct {
	Team        model.Team `json:"team"`
	Points      float64    `json:"points"`
	RoundNumber int        `json:"roundNumber"`
}

// Highlights bundles the derived signals. Any of them may be nil when
// the underlying data cannot support the signal.
type Highlights struct {
	Leader    *Leader    `json:"leader"`
	Surging   *Surging   `json:"surging"`
	TightRace *TightRace `json:"tightRace"`
	RoundHero *RoundHero `json:"roundHero"`
}

// Compute derives all signals from the ordered rankings and raw scores.
func Compute(rankings []ranking.TeamRanking, teams []model.Team, scores []model.Score, lastCompleted int, hasCompleted bool) Highlights {
	return Highlights{
		Leader:    leader(rankings),
		Surging:   surging(rankings, lastCompleted, hasCompleted),
		TightRace: tightRace(rankings),
		RoundHero: roundHero(teams, scores),
	}
}

func leader(rankings []ranking.TeamRanking) *Leader {
	if len(rankings) == 0 {
		return nil
	}
	l := &Leader{Team: rankings[0].Team, Total: rankings[0].TotalScore}
	if len(rankings) > 1 {
		margin := rankings[0].TotalScore - rankings[1].TotalScore
		l.LeadOverNext = &margin
	}
	return l
}

// surging picks the largest strictly positive recent delta. Without a
// completed round there is no momentum to report.
func surging(rankings []ranking.TeamRanking, lastCompleted int, hasCompleted bool) *Surging {
	if !hasCompleted {
		return nil
	}
	var best *Surging
	for _, r := range rankings {
		if r.RecentDelta <= 0 {
			continue
		}
		if best == nil || r.RecentDelta > best.Delta {
			best = &Surging{Team: r.Team, Delta: r.RecentDelta, RoundNumber: lastCompleted}
		}
	}
	return best
}

// tightRace scans adjacent pairs in rank order and keeps the smallest
// strictly positive margin. Zero margins are skipped; a dead heat is
// not a race worth calling out.
func tightRace(rankings []ranking.TeamRanking) *TightRace {
	var best *TightRace
	for i := 0; i+1 < len(rankings); i++ {
		margin := rankings[i].TotalScore - rankings[i+1].TotalScore
		if margin <= 0 {
			continue
		}
		if best == nil || margin < best.Margin {
			best = &TightRace{
				Margin: margin,
				Teams:  [2]model.Team{rankings[i].Team, rankings[i+1].Team},
			}
		}
	}
	return best
}

// roundHero finds the highest single recorded score. Ties keep the
// first score encountered.
func roundHero(teams []model.Team, scores []model.Score) *RoundHero {
	byID := make(map[string]model.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}
	var best *RoundHero
	for _, s := range scores {
		if best != nil && s.Points <= best.Points {
			continue
		}
		team, ok := byID[s.TeamID]
		if !ok {
			continue
		}
		best = &RoundHero{Team: team, Points: s.Points, RoundNumber: s.RoundNumber}
	}
	return best
}
