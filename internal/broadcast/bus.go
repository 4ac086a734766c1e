package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liveboard/liveboard/pkg/logger"
	"github.com/liveboard/liveboard/pkg/metrics"
)

// Default bus configuration constants.
const (
	defaultBufferSize = 64
)

// Publisher is the write side of the bus. Publish failures are
// non-fatal for callers: the originating write has already committed,
// a missed broadcast only delays live updates.
type Publisher interface {
	Publish(ctx context.Context, channel string, t Type, payload any) error
}

// Subscriber is the read side of the bus.
type Subscriber interface {
	// Subscribe returns a receive channel for one logical channel and
	// a cancel func that must be called to release the subscription.
	Subscribe(ctx context.Context, channel string) (<-chan Message, func())
}

// Bus is an in-memory fan-out of messages to per-channel subscribers.
// Slow subscribers do not block publishers; messages they cannot
// buffer are dropped and counted.
type Bus struct {
	mu         sync.RWMutex
	subs       map[string]map[int]chan Message
	nextID     int
	bufferSize int
	closed     bool
	logger     logger.Logger
}

// NewBus creates a bus with configuration options.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:       make(map[string]map[int]chan Message),
		bufferSize: defaultBufferSize,
		logger:     logger.Named("broadcast"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish encodes payload and delivers the message to every current
// subscriber of channel. Subscribers with full buffers are skipped.
func (b *Bus) Publish(ctx context.Context, channel string, t Type, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodePayload, err)
	}
	msg := Message{
		ID:        uuid.NewString(),
		Channel:   channel,
		Type:      t,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}
	for _, ch := range b.subs[channel] {
		select {
		case ch <- msg:
			metrics.RecordBroadcastPublished(string(t))
		default:
			metrics.RecordBroadcastDropped()
			b.logger.Warn(ctx, "dropping broadcast for slow subscriber",
				logger.String("channel", channel),
				logger.String("type", string(t)),
			)
		}
	}
	return nil
}

// Subscribe registers a buffered receive channel for one logical
// channel. The returned cancel func is idempotent; the receive channel
// is closed once unsubscribed.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Message, b.bufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]chan Message)
	}
	b.subs[channel][id] = ch
	metrics.UpdateSubscriberCount(b.subscriberCountLocked())

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subs[channel]; ok {
				if sub, ok := subs[id]; ok {
					delete(subs, id)
					if len(subs) == 0 {
						delete(b.subs, channel)
					}
					close(sub)
				}
			}
			metrics.UpdateSubscriberCount(b.subscriberCountLocked())
		})
	}
	return ch, cancel
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for channel, subs := range b.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subs, channel)
	}
	metrics.UpdateSubscriberCount(0)
	return nil
}

// SubscriberCount reports how many subscriptions are live.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subscriberCountLocked()
}

func (b *Bus) subscriberCountLocked() int {
	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}
