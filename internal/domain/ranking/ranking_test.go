package ranking_test

import (
	"testing"

	"github.com/liveboard/liveboard/internal/domain/model"
	"github.com/liveboard/liveboard/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func rounds(n int) []model.Round {
	out := make([]model.Round, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.Round{RoundNumber: i})
	}
	return out
}

func team(id, name string, joined int) model.Team {
	return model.Team{ID: id, Name: name, JoinedRound: joined}
}

func score(teamID string, round int, points float64) model.Score {
	return model.Score{TeamID: teamID, RoundNumber: round, Points: points}
}

func TestCompute(t *testing.T) {
	Convey("Given three teams two rounds into a three-round event", t, func() {
		teams := []model.Team{
			team("alpha", "Alpha", 1),
			team("beta", "Beta", 1),
			team("gamma", "Gamma", 1),
		}
		scores := []model.Score{
			score("alpha", 1, 10), score("beta", 1, 20), score("gamma", 1, 15),
			score("alpha", 2, 30), score("beta", 2, 5), score("gamma", 2, 15),
		}

		rankings := ranking.Compute(rounds(3), teams, scores, 2, true)

		Convey("Then totals order the table with name as tie-break", func() {
			So(rankings, ShouldHaveLength, 3)
			So(rankings[0].Team.Name, ShouldEqual, "Alpha") // 40
			So(rankings[1].Team.Name, ShouldEqual, "Gamma") // 30
			So(rankings[2].Team.Name, ShouldEqual, "Beta")  // 25
		})

		Convey("Then ranks are dense and 1-based", func() {
			So(rankings[0].Rank, ShouldEqual, 1)
			So(rankings[1].Rank, ShouldEqual, 2)
			So(rankings[2].Rank, ShouldEqual, 3)
		})

		Convey("Then every row carries one entry per defined round", func() {
			So(rankings[0].RoundScores, ShouldHaveLength, 3)
			So(rankings[0].RoundScores[2].Points, ShouldEqual, 0) // round 3 unscored
		})

		Convey("Then momentum fields come from the anchor round", func() {
			So(rankings[0].LastRoundPoints, ShouldEqual, 30)
			So(rankings[0].RecentDelta, ShouldEqual, 20) // 30 - 10
			So(rankings[2].RecentDelta, ShouldEqual, -15) // 5 - 20
		})

		Convey("Then averages span only completed rounds", func() {
			So(rankings[0].AverageScore, ShouldEqual, 20) // (10+30)/2
			So(rankings[1].AverageScore, ShouldEqual, 15)
		})
	})

	Convey("Given equal totals", t, func() {
		teams := []model.Team{team("z", "Zebra", 1), team("a", "Aardvark", 1)}
		scores := []model.Score{score("z", 1, 10), score("a", 1, 10)}

		rankings := ranking.Compute(rounds(1), teams, scores, 1, true)

		Convey("Then name ascending breaks the tie and ranks stay distinct", func() {
			So(rankings[0].Team.Name, ShouldEqual, "Aardvark")
			So(rankings[0].Rank, ShouldEqual, 1)
			So(rankings[1].Team.Name, ShouldEqual, "Zebra")
			So(rankings[1].Rank, ShouldEqual, 2)
		})
	})

	Convey("Given no completed round yet", t, func() {
		teams := []model.Team{team("a", "Alpha", 1)}
		scores := []model.Score{score("a", 1, 25)}

		rankings := ranking.Compute(rounds(2), teams, scores, 0, false)

		Convey("Then totals still accumulate but momentum is zeroed", func() {
			So(rankings[0].TotalScore, ShouldEqual, 25)
			So(rankings[0].LastRoundPoints, ShouldEqual, 0)
			So(rankings[0].RecentDelta, ShouldEqual, 0)
			So(rankings[0].AverageScore, ShouldEqual, 0)
		})
	})

	Convey("Given a team that joined at round 3 of four completed rounds", t, func() {
		teams := []model.Team{team("late", "Latecomer", 3)}
		scores := []model.Score{score("late", 3, 40), score("late", 4, 20)}

		rankings := ranking.Compute(rounds(4), teams, scores, 4, true)

		Convey("Then the average ignores rounds before the join", func() {
			So(rankings[0].AverageScore, ShouldEqual, 30) // (40+20)/2, not /4
		})
	})

	Convey("Given no teams", t, func() {
		rankings := ranking.Compute(rounds(2), nil, nil, 0, false)

		Convey("Then the result is empty, not nil-panicking", func() {
			So(rankings, ShouldBeEmpty)
		})
	})
}

func TestRanksThrough(t *testing.T) {
	Convey("Given scores across three rounds", t, func() {
		teams := []model.Team{
			team("a", "Alpha", 1),
			team("b", "Beta", 1),
			team("late", "Latecomer", 3),
		}
		scores := []model.Score{
			score("a", 1, 10), score("b", 1, 20),
			score("a", 2, 30), score("b", 2, 5),
			score("a", 3, 1), score("b", 3, 2), score("late", 3, 50),
		}

		Convey("When ranking through round 1", func() {
			ranks := ranking.RanksThrough(teams, scores, 1)

			Convey("Then only scores at or before round 1 count", func() {
				So(ranks["b"], ShouldEqual, 1)
				So(ranks["a"], ShouldEqual, 2)
			})

			Convey("And the late joiner has no rank", func() {
				_, ok := ranks["late"]
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When ranking through round 3", func() {
			ranks := ranking.RanksThrough(teams, scores, 3)

			Convey("Then the late joiner appears", func() {
				So(ranks, ShouldContainKey, "late")
				So(ranks["late"], ShouldEqual, 1) // 50 beats a=41 and b=27
				So(ranks["a"], ShouldEqual, 2)
				So(ranks["b"], ShouldEqual, 3)
			})
		})
	})
}
