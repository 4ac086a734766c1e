package conflict_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/liveboard/liveboard/internal/broadcast"
	"github.com/liveboard/liveboard/internal/conflict"
	"github.com/liveboard/liveboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithWriter(io.Discard))
	m.Run()
}

// harness wires a coordinator to a real bus channel and exposes a
// conflict notification channel for synchronization.
type harness struct {
	bus       *broadcast.Bus
	coord     *conflict.Coordinator
	conflicts chan conflict.Conflict
	cancelRun context.CancelFunc
	cancelSub func()
}

func newHarness(operatorID string, opts ...conflict.Option) *harness {
	bus := broadcast.NewBus()
	msgs, cancelSub := bus.Subscribe(context.Background(), broadcast.EventChannel("ev1"))

	h := &harness{
		bus:       bus,
		conflicts: make(chan conflict.Conflict, 8),
		cancelSub: cancelSub,
	}
	opts = append(opts, conflict.WithConflictHandler(func(c conflict.Conflict) {
		h.conflicts <- c
	}))
	h.coord = conflict.New(operatorID, msgs, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancelRun = cancel
	go h.coord.Run(ctx)
	return h
}

func (h *harness) stop() {
	h.cancelSub()
	h.cancelRun()
	<-h.coord.Done()
}

func (h *harness) remoteScore(teamID string, round int, points float64, by string) {
	_ = h.bus.Publish(context.Background(), broadcast.EventChannel("ev1"), broadcast.TypeScoreUpdated, broadcast.ScoreUpdated{
		TeamID:      teamID,
		RoundNumber: round,
		Points:      points,
		ChangedBy:   by,
	})
}

func (h *harness) remoteDelete(teamID string, round int, by string) {
	_ = h.bus.Publish(context.Background(), broadcast.EventChannel("ev1"), broadcast.TypeScoreDeleted, broadcast.ScoreDeleted{
		TeamID:      teamID,
		RoundNumber: round,
		ChangedBy:   by,
	})
}

func (h *harness) waitConflict() (conflict.Conflict, bool) {
	select {
	case c := <-h.conflicts:
		return c, true
	case <-time.After(time.Second):
		return conflict.Conflict{}, false
	}
}

// settle gives the listener goroutine time to drain messages that are
// expected to produce no conflict.
func (h *harness) settle() {
	time.Sleep(50 * time.Millisecond)
}

func TestCoordinator_ConflictFlow(t *testing.T) {
	Convey("Given an operator editing a cell", t, func() {
		h := newHarness("op-local")
		defer h.stop()

		key := conflict.CellKey{TeamID: "team-1", Round: 2}
		h.coord.BeginEdit(key, "10")
		h.coord.UpdateDraft(key, "12")
		So(h.coord.State(key), ShouldEqual, conflict.StateEditing)

		Convey("When a remote operator saves the same cell", func() {
			h.remoteScore("team-1", 2, 15, "op-remote")

			conf, got := h.waitConflict()
			So(got, ShouldBeTrue)

			Convey("Then the cell is conflicted with both values preserved", func() {
				So(h.coord.State(key), ShouldEqual, conflict.StateConflicted)
				So(conf.LocalValue, ShouldEqual, "12")
				So(conf.RemoteValue, ShouldEqual, 15)
				So(conf.ChangedBy, ShouldEqual, "op-remote")
			})

			Convey("And accepting the remote value returns the cell to idle", func() {
				local, ok := h.coord.Resolve(key, true)
				So(ok, ShouldBeTrue)
				So(local, ShouldBeEmpty)
				So(h.coord.State(key), ShouldEqual, conflict.StateIdle)
			})

			Convey("And overriding hands the preserved draft back for re-save", func() {
				local, ok := h.coord.Resolve(key, false)
				So(ok, ShouldBeTrue)
				So(local, ShouldEqual, "12")
				So(h.coord.State(key), ShouldEqual, conflict.StateIdle)
			})

			Convey("And a second remote write keeps the original draft", func() {
				h.remoteScore("team-1", 2, 99, "op-third")
				conf2, got2 := h.waitConflict()
				So(got2, ShouldBeTrue)
				So(conf2.RemoteValue, ShouldEqual, 99)
				So(conf2.LocalValue, ShouldEqual, "12")
			})
		})

		Convey("When a remote operator deletes the cell's score", func() {
			h.remoteDelete("team-1", 2, "op-remote")

			conf, got := h.waitConflict()
			So(got, ShouldBeTrue)

			Convey("Then the conflict records the deletion", func() {
				So(conf.RemoteDeleted, ShouldBeTrue)
				So(h.coord.State(key), ShouldEqual, conflict.StateConflicted)
			})
		})

		Convey("When the echo of the operator's own save arrives", func() {
			h.remoteScore("team-1", 2, 12, "op-local")
			h.settle()

			Convey("Then nothing conflicts", func() {
				So(h.coord.State(key), ShouldEqual, conflict.StateEditing)
				So(h.coord.Conflicts(), ShouldBeEmpty)
			})
		})

		Convey("When the remote change hits a different cell", func() {
			h.remoteScore("team-2", 2, 30, "op-remote")
			h.settle()

			Convey("Then the edit is untouched and the other cell highlights", func() {
				So(h.coord.State(key), ShouldEqual, conflict.StateEditing)
				other := conflict.CellKey{TeamID: "team-2", Round: 2}
				So(waitHighlighted(h.coord, other), ShouldBeTrue)
			})
		})
	})
}

func TestCoordinator_Highlights(t *testing.T) {
	Convey("Given an idle cell and a controllable clock", t, func() {
		now := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
		clock := &now
		h := newHarness("op-local", conflict.WithClock(func() time.Time { return *clock }))
		defer h.stop()

		key := conflict.CellKey{TeamID: "team-1", Round: 1}

		Convey("When a remote change lands", func() {
			h.remoteScore("team-1", 1, 20, "op-remote")

			Convey("Then the cell highlights without interrupting anyone", func() {
				So(waitHighlighted(h.coord, key), ShouldBeTrue)
				So(h.coord.State(key), ShouldEqual, conflict.StateIdle)
			})

			Convey("And the highlight expires after the TTL", func() {
				So(waitHighlighted(h.coord, key), ShouldBeTrue)
				*clock = now.Add(3 * time.Second)
				So(h.coord.Highlighted(key), ShouldBeFalse)
			})
		})
	})
}

func TestCoordinator_EditLifecycle(t *testing.T) {
	Convey("Given a coordinator", t, func() {
		h := newHarness("op-local")
		defer h.stop()

		key := conflict.CellKey{TeamID: "team-1", Round: 1}

		Convey("Then a fresh cell is idle", func() {
			So(h.coord.State(key), ShouldEqual, conflict.StateIdle)
		})

		Convey("When an edit is canceled", func() {
			h.coord.BeginEdit(key, "5")
			h.coord.CancelEdit(key)

			Convey("Then the cell returns to idle", func() {
				So(h.coord.State(key), ShouldEqual, conflict.StateIdle)
			})
		})

		Convey("When an edit completes after a successful save", func() {
			h.coord.BeginEdit(key, "5")
			h.coord.CompleteEdit(key)

			Convey("Then the cell returns to idle", func() {
				So(h.coord.State(key), ShouldEqual, conflict.StateIdle)
			})
		})

		Convey("When resolving a cell that never conflicted", func() {
			_, ok := h.coord.Resolve(key, true)

			Convey("Then it reports no conflict", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

// waitHighlighted polls because the highlight is applied on the
// listener goroutine.
func waitHighlighted(c *conflict.Coordinator, key conflict.CellKey) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.Highlighted(key) {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
