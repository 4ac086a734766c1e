// Package ws exposes broadcast channels over websocket connections.
//
// A connection subscribes to exactly one logical channel: the global
// lifecycle feed at /live or a single event's feed at /live/{eventID}.
// Messages flow one way, server to client; the read loop exists only
// to notice the peer going away.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/liveboard/liveboard/internal/broadcast"
	"github.com/liveboard/liveboard/internal/domain/model"
	"github.com/liveboard/liveboard/pkg/logger"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 60 * time.Second
)

// Feed is what the handler needs from the service layer.
type Feed interface {
	Subscribe(ctx context.Context, channel string) (<-chan broadcast.Message, func())
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
}

// Handler serves /live and /live/{eventID}.
func Handler(feed Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel := broadcast.GlobalChannel
		if rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/live"), "/"); rest != "" {
			eventID := rest
			if _, err := feed.GetEvent(r.Context(), eventID); err != nil {
				http.Error(w, "event not found", http.StatusNotFound)
				return
			}
			channel = broadcast.EventChannel(eventID)
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		serve(r.Context(), conn, feed, channel)
	}
}

func serve(ctx context.Context, conn *websocket.Conn, feed Feed, channel string) {
	log := logger.Get().Named("ws")

	msgs, cancel := feed.Subscribe(ctx, channel)
	defer cancel()

	// Writer goroutine: drains the subscription until it closes or a
	// write fails.
	writeCtx, writeCancel := context.WithCancel(ctx)
	defer writeCancel()
	go func() {
		for msg := range msgs {
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			wctx, wcancel := context.WithTimeout(writeCtx, writeTimeout)
			err = conn.Write(wctx, websocket.MessageText, payload)
			wcancel()
			if err != nil {
				log.Debug(writeCtx, "websocket write failed",
					logger.String("channel", channel),
					logger.Error(err),
				)
				return
			}
		}
	}()

	// Reader loop: the feed is one-way, so any inbound frame is
	// discarded. Read errors mean the peer is gone.
	for {
		rctx, rcancel := context.WithTimeout(ctx, readTimeout)
		_, _, err := conn.Read(rctx)
		rcancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			return
		}
	}
}
