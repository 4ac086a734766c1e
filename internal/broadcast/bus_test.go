package broadcast_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/liveboard/liveboard/internal/broadcast"
	"github.com/liveboard/liveboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithWriter(io.Discard))
	m.Run()
}

func receive(ch <-chan broadcast.Message) (broadcast.Message, bool) {
	select {
	case msg, ok := <-ch:
		return msg, ok
	case <-time.After(time.Second):
		return broadcast.Message{}, false
	}
}

func TestBus(t *testing.T) {
	Convey("Given a bus with one subscriber per channel", t, func() {
		bus := broadcast.NewBus()
		ctx := context.Background()

		eventCh, cancelEvent := bus.Subscribe(ctx, broadcast.EventChannel("ev1"))
		globalCh, cancelGlobal := bus.Subscribe(ctx, broadcast.GlobalChannel)
		defer cancelEvent()
		defer cancelGlobal()

		Convey("When publishing to the event channel", func() {
			err := bus.Publish(ctx, broadcast.EventChannel("ev1"), broadcast.TypeScoreUpdated, broadcast.ScoreUpdated{
				TeamID:      "team-1",
				RoundNumber: 2,
				Points:      42.5,
				ChangedBy:   "op-1",
			})
			So(err, ShouldBeNil)

			Convey("Then the event subscriber receives a typed envelope", func() {
				msg, ok := receive(eventCh)
				So(ok, ShouldBeTrue)
				So(msg.Type, ShouldEqual, broadcast.TypeScoreUpdated)
				So(msg.Channel, ShouldEqual, broadcast.EventChannel("ev1"))
				So(msg.ID, ShouldNotBeEmpty)

				p, err := broadcast.DecodeScoreUpdated(msg)
				So(err, ShouldBeNil)
				So(p.Points, ShouldEqual, 42.5)
				So(p.OldPoints, ShouldBeNil)
			})

			Convey("And the global subscriber hears nothing", func() {
				heard := false
				select {
				case <-globalCh:
					heard = true
				case <-time.After(50 * time.Millisecond):
				}
				So(heard, ShouldBeFalse)
			})
		})

		Convey("When a subscription is canceled", func() {
			cancelEvent()

			Convey("Then its channel closes and the count drops", func() {
				_, ok := receive(eventCh)
				So(ok, ShouldBeFalse)
				So(bus.SubscriberCount(), ShouldEqual, 1)
			})

			Convey("And canceling twice is harmless", func() {
				cancelEvent()
				So(bus.SubscriberCount(), ShouldEqual, 1)
			})
		})

		Convey("When the bus is closed", func() {
			So(bus.Close(), ShouldBeNil)

			Convey("Then all subscriber channels close", func() {
				_, ok := receive(eventCh)
				So(ok, ShouldBeFalse)
				_, ok = receive(globalCh)
				So(ok, ShouldBeFalse)
			})

			Convey("And publishing reports the closed bus", func() {
				err := bus.Publish(ctx, broadcast.GlobalChannel, broadcast.TypeEventCreated, broadcast.LifecycleNotice{})
				So(err, ShouldWrap, broadcast.ErrClosed)
			})

			Convey("And new subscriptions come back already closed", func() {
				ch, cancel := bus.Subscribe(ctx, "late")
				defer cancel()
				_, ok := receive(ch)
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a subscriber with a tiny buffer that never drains", t, func() {
		bus := broadcast.NewBus(broadcast.WithBufferSize(1))
		ctx := context.Background()

		ch, cancel := bus.Subscribe(ctx, "busy")
		defer cancel()

		Convey("When more messages are published than it can hold", func() {
			for i := 0; i < 5; i++ {
				err := bus.Publish(ctx, "busy", broadcast.TypeRoundChanged, broadcast.RoundChanged{NewRound: i})
				So(err, ShouldBeNil)
			}

			Convey("Then the overflow is dropped, not blocking the publisher", func() {
				msg, ok := receive(ch)
				So(ok, ShouldBeTrue)
				So(msg.Type, ShouldEqual, broadcast.TypeRoundChanged)

				buffered := false
				select {
				case <-ch:
					buffered = true
				case <-time.After(50 * time.Millisecond):
				}
				So(buffered, ShouldBeFalse)
			})
		})
	})
}
