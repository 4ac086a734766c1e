// Package conflict implements the client-side concurrent-edit warning
// protocol for score cells.
//
// Each cell (team, round) moves through idle -> editing -> idle, with
// a conflicted detour when a remote operator changes a cell the local
// operator is still editing. The coordinator only surfaces near
// collisions; it never arbitrates who wins. The persistence layer's
// last-write-wins semantics remain the final arbiter.
package conflict

import (
	"context"
	"sync"
	"time"

	"github.com/liveboard/liveboard/internal/broadcast"
	"github.com/liveboard/liveboard/internal/domain/dedupe"
	"github.com/liveboard/liveboard/pkg/logger"
	"github.com/liveboard/liveboard/pkg/metrics"
)

// Default coordinator configuration constants.
const (
	defaultHighlightTTL = 2500 * time.Millisecond
	dedupeWindow        = 1024
)

// CellState is the per-cell machine state.
type CellState string

// Cell states.
const (
	StateIdle       CellState = "idle"
	StateEditing    CellState = "editing"
	StateConflicted CellState = "conflicted"
)

// CellKey identifies one score cell.
type CellKey struct {
	TeamID string
	Round  int
}

// Conflict captures a detected collision: the remote change plus the
// operator's own pending value, preserved so nothing is silently
// overwritten.
type Conflict struct {
	Key           CellKey
	LocalValue    string
	RemoteValue   float64
	RemoteDeleted bool
	ChangedBy     string
	ChangedByName string
}

// Coordinator tracks edit state for one operator's session. The
// broadcast subscription is constructor-injected with an explicit
// lifetime; Run exits when the subscription channel closes or ctx is
// canceled.
//
// All exported methods are safe for concurrent use: UI interactions
// and the listener goroutine touch the same cells.
type Coordinator struct {
	operator string
	msgs     <-chan broadcast.Message

	mu         sync.Mutex
	editing    map[CellKey]string // cell -> unsaved local draft
	conflicts  map[CellKey]Conflict
	highlights map[CellKey]time.Time // cell -> highlight expiry

	highlightTTL time.Duration
	deduper      dedupe.Deduper
	onConflict   func(Conflict)
	now          func() time.Time
	logger       logger.Logger
	done         chan struct{}
}

// New creates a coordinator for the given operator identity, consuming
// the provided subscription.
func New(operatorID string, msgs <-chan broadcast.Message, opts ...Option) *Coordinator {
	c := &Coordinator{
		operator:     operatorID,
		msgs:         msgs,
		editing:      make(map[CellKey]string),
		conflicts:    make(map[CellKey]Conflict),
		highlights:   make(map[CellKey]time.Time),
		highlightTTL: defaultHighlightTTL,
		deduper:      dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(dedupeWindow)),
		now:          time.Now,
		logger:       logger.Named("conflict"),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes broadcast messages until ctx is canceled or the
// subscription closes. It never blocks the caller's UI path; callers
// start it on its own goroutine.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.msgs:
			if !ok {
				return
			}
			c.handle(ctx, msg)
		}
	}
}

// Done is closed once Run has exited.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// BeginEdit marks a cell as under local edit with the given draft
// value. A conflicted cell stays conflicted until resolved.
func (c *Coordinator) BeginEdit(key CellKey, draft string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.conflicts[key]; ok {
		return
	}
	c.editing[key] = draft
}

// UpdateDraft records the operator's in-progress value so a later
// conflict can preserve it.
func (c *Coordinator) UpdateDraft(key CellKey, draft string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.editing[key]; ok {
		c.editing[key] = draft
	}
}

// CancelEdit abandons a local edit with no network effect.
func (c *Coordinator) CancelEdit(key CellKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.editing, key)
}

// CompleteEdit returns a cell to idle after a successful save.
func (c *Coordinator) CompleteEdit(key CellKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.editing, key)
}

// State reports the cell's machine state.
func (c *Coordinator) State(key CellKey) CellState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.conflicts[key]; ok {
		return StateConflicted
	}
	if _, ok := c.editing[key]; ok {
		return StateEditing
	}
	return StateIdle
}

// Conflict returns the conflict recorded for a cell, if any.
func (c *Coordinator) Conflict(key CellKey) (Conflict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conf, ok := c.conflicts[key]
	return conf, ok
}

// Conflicts returns all unresolved conflicts.
func (c *Coordinator) Conflicts() []Conflict {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Conflict, 0, len(c.conflicts))
	for _, conf := range c.conflicts {
		out = append(out, conf)
	}
	return out
}

// Resolve clears a conflict. accept=true adopts the remote value and
// the cell returns to idle. accept=false is an override: the preserved
// local draft is returned so the caller can re-save it, which will
// itself broadcast and may conflict a third concurrent editor.
func (c *Coordinator) Resolve(key CellKey, accept bool) (localValue string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conf, found := c.conflicts[key]
	if !found {
		return "", false
	}
	delete(c.conflicts, key)
	delete(c.editing, key)
	metrics.RecordConflictResolved(accept)
	if accept {
		return "", true
	}
	return conf.LocalValue, true
}

// Highlighted reports whether a cell carries an unexpired remote
// change highlight.
func (c *Coordinator) Highlighted(key CellKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	expiry, ok := c.highlights[key]
	if !ok {
		return false
	}
	if c.now().After(expiry) {
		delete(c.highlights, key)
		return false
	}
	return true
}

func (c *Coordinator) handle(ctx context.Context, msg broadcast.Message) {
	if c.deduper.SeenAndRecord(ctx, msg.ID) {
		return
	}

	switch msg.Type {
	case broadcast.TypeScoreUpdated:
		p, err := broadcast.DecodeScoreUpdated(msg)
		if err != nil {
			c.logger.Warn(ctx, "bad score-updated payload", logger.Error(err))
			return
		}
		// Own writes echo back over the channel; no self-conflict,
		// no self-highlight.
		if p.ChangedBy == c.operator {
			return
		}
		c.remoteChange(CellKey{TeamID: p.TeamID, Round: p.RoundNumber}, Conflict{
			RemoteValue:   p.Points,
			ChangedBy:     p.ChangedBy,
			ChangedByName: p.ChangedByName,
		})

	case broadcast.TypeScoreDeleted:
		p, err := broadcast.DecodeScoreDeleted(msg)
		if err != nil {
			c.logger.Warn(ctx, "bad score-deleted payload", logger.Error(err))
			return
		}
		if p.ChangedBy == c.operator {
			return
		}
		c.remoteChange(CellKey{TeamID: p.TeamID, Round: p.RoundNumber}, Conflict{
			RemoteDeleted: true,
			ChangedBy:     p.ChangedBy,
			ChangedByName: p.ChangedByName,
		})

	default:
		// Other message kinds drive the snapshot refresh, not the
		// per-cell machine.
	}
}

// remoteChange applies the editing/idle branch: an edited cell becomes
// conflicted with the local draft preserved, an idle cell gets a
// transient highlight so the peer's change is noticed without
// interruption.
func (c *Coordinator) remoteChange(key CellKey, conf Conflict) {
	c.mu.Lock()
	draft, editing := c.editing[key]
	if editing || c.hasConflictLocked(key) {
		conf.Key = key
		conf.LocalValue = draft
		if existing, ok := c.conflicts[key]; ok {
			// A newer remote write supersedes the recorded remote
			// value but keeps the operator's original draft.
			conf.LocalValue = existing.LocalValue
		}
		c.conflicts[key] = conf
		handler := c.onConflict
		c.mu.Unlock()

		metrics.RecordConflictDetected()
		if handler != nil {
			handler(conf)
		}
		return
	}
	c.highlights[key] = c.now().Add(c.highlightTTL)
	c.mu.Unlock()
	metrics.RecordHighlightApplied()
}

func (c *Coordinator) hasConflictLocked(key CellKey) bool {
	_, ok := c.conflicts[key]
	return ok
}
