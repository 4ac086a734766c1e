package leaderboard_test

import (
	"testing"
	"time"

	"github.com/liveboard/liveboard/internal/domain/leaderboard"
	"github.com/liveboard/liveboard/internal/domain/model"
	"github.com/liveboard/liveboard/internal/domain/movement"
	. "github.com/smartystreets/goconvey/convey"
)

func snapshot() model.Snapshot {
	return model.Snapshot{
		Event: model.Event{
			ID:           "ev1",
			Name:         "Trivia Night",
			Status:       model.StatusActive,
			CurrentRound: 3,
			UpdatedAt:    time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC),
		},
		Rounds: []model.Round{
			{RoundNumber: 1, Name: "Round 1"},
			{RoundNumber: 2, Name: "Round 2"},
			{RoundNumber: 3, Name: "Round 3"},
		},
		Teams: []model.Team{
			{ID: "a", Name: "Alpha", JoinedRound: 1},
			{ID: "b", Name: "Beta", JoinedRound: 1},
			{ID: "c", Name: "Gamma", JoinedRound: 1},
		},
		Scores: []model.Score{
			{TeamID: "a", RoundNumber: 1, Points: 10},
			{TeamID: "b", RoundNumber: 1, Points: 20},
			{TeamID: "c", RoundNumber: 1, Points: 15},
			{TeamID: "a", RoundNumber: 2, Points: 30},
			{TeamID: "b", RoundNumber: 2, Points: 5},
			{TeamID: "c", RoundNumber: 2, Points: 15},
			// Round 3 is in progress: only Gamma has been scored so far.
			{TeamID: "c", RoundNumber: 3, Points: 25},
		},
	}
}

func TestBuild(t *testing.T) {
	Convey("Given an active event two rounds in", t, func() {
		snap := snapshot()

		lb, err := leaderboard.Build(snap)
		So(err, ShouldBeNil)

		Convey("Then the table reflects the in-progress round", func() {
			So(lb.Rows, ShouldHaveLength, 3)
			So(lb.Rows[0].Team.Name, ShouldEqual, "Gamma") // 55 with the live round-3 score
			So(lb.Rows[1].Team.Name, ShouldEqual, "Alpha") // 40
			So(lb.Rows[2].Team.Name, ShouldEqual, "Beta")  // 25
		})

		Convey("Then movement compares against the last completed round", func() {
			// Standings through round 2 were Alpha, Gamma, Beta; the live
			// round-3 score is what moved Gamma up.
			So(lb.Rows[0].Movement, ShouldEqual, movement.Up)
			So(lb.Rows[1].Movement, ShouldEqual, movement.Down)
			So(lb.Rows[2].Movement, ShouldEqual, movement.Same)
		})

		Convey("Then the round anchor is exposed", func() {
			So(lb.LastCompletedRound, ShouldNotBeNil)
			So(*lb.LastCompletedRound, ShouldEqual, 2)
			So(lb.CurrentRound, ShouldEqual, 3)
			So(lb.TotalRounds, ShouldEqual, 3)
		})

		Convey("Then the watermark mirrors the event", func() {
			So(lb.LastUpdated.Equal(snap.Event.UpdatedAt), ShouldBeTrue)
		})

		Convey("Then each round gets a summary with its top scorer", func() {
			So(lb.RoundsSummary, ShouldHaveLength, 3)

			So(lb.RoundsSummary[0].Status, ShouldEqual, leaderboard.RoundCompleted)
			So(lb.RoundsSummary[0].TopTeamName, ShouldEqual, "Beta")
			So(*lb.RoundsSummary[0].TopScore, ShouldEqual, 20)

			So(lb.RoundsSummary[2].Status, ShouldEqual, leaderboard.RoundCurrent)
			So(lb.RoundsSummary[2].TopTeamName, ShouldEqual, "Gamma")
			So(*lb.RoundsSummary[2].TopScore, ShouldEqual, 25)
		})

		Convey("Then highlights are populated", func() {
			So(lb.Highlights.Leader, ShouldNotBeNil)
			So(lb.Highlights.Leader.Team.Name, ShouldEqual, "Gamma")
		})
	})

	Convey("Given a draft event with no scores", t, func() {
		snap := snapshot()
		snap.Event.Status = model.StatusDraft
		snap.Event.CurrentRound = 0
		snap.Scores = []model.Score{}

		lb, err := leaderboard.Build(snap)
		So(err, ShouldBeNil)

		Convey("Then no round is anchored and nobody moved", func() {
			So(lb.LastCompletedRound, ShouldBeNil)
			for _, row := range lb.Rows {
				So(row.Movement, ShouldEqual, movement.Same)
				So(row.TotalScore, ShouldEqual, 0)
			}
		})

		Convey("Then all rounds read upcoming", func() {
			for _, rs := range lb.RoundsSummary {
				So(rs.Status, ShouldEqual, leaderboard.RoundUpcoming)
			}
		})
	})

	Convey("Given a snapshot with a missing collection", t, func() {
		snap := snapshot()
		snap.Teams = nil

		_, err := leaderboard.Build(snap)

		Convey("Then the build is refused rather than rendered partial", func() {
			So(err, ShouldNotBeNil)
			So(err, ShouldWrap, leaderboard.ErrIncompleteData)
		})
	})
}
