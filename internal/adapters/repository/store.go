// Package repository defines the record store interface and errors.
//
// The ranking pipeline never talks to the store directly; it consumes
// immutable snapshots produced here. Uniqueness of one score per
// (team, round) is enforced at this layer, as is the UpdatedAt
// watermark bump on every score mutation.
package repository

import (
	"context"
	"time"

	"github.com/liveboard/liveboard/internal/domain/model"
)

// AuditAction tags an audit trail entry.
type AuditAction string

// Audit actions.
const (
	AuditCreated AuditAction = "created"
	AuditUpdated AuditAction = "updated"
	AuditDeleted AuditAction = "deleted"
)

// AuditEntry records one score mutation for the history view.
type AuditEntry struct {
	ID          string      `json:"id"`
	EventID     string      `json:"eventId"`
	TeamID      string      `json:"teamId"`
	RoundNumber int         `json:"roundNumber"`
	OldPoints   *float64    `json:"oldPoints"`
	NewPoints   float64     `json:"newPoints"`
	Action      AuditAction `json:"action"`
	ChangedBy   string      `json:"changedBy"`
	At          time.Time   `json:"at"`
}

// NewEventInput describes an event to create, with its initial rounds
// and roster.
type NewEventInput struct {
	Name          string
	ScheduledDate time.Time
	Rounds        []NewRoundInput
	Teams         []string
}

// NewRoundInput describes one round of a new event.
type NewRoundInput struct {
	Name      string
	IsBonus   bool
	MaxPoints float64
}

// Store provides read/write access to events, rounds, teams and
// scores.
type Store interface {
	// CreateEvent creates a draft event with its rounds and teams.
	CreateEvent(ctx context.Context, in NewEventInput) (model.Event, error)

	// GetEvent returns one event. Returns ErrEventNotFound if unknown.
	GetEvent(ctx context.Context, eventID string) (model.Event, error)

	// ListEvents returns all events, most recently updated first.
	ListEvents(ctx context.Context) ([]model.Event, error)

	// DeleteEvent removes an event and all dependent records.
	DeleteEvent(ctx context.Context, eventID string) error

	// SetStatus transitions the event lifecycle and stamps
	// StartedAt/EndedAt as appropriate.
	SetStatus(ctx context.Context, eventID string, status model.Status) (model.Event, error)

	// SetCurrentRound moves the active round pointer.
	SetCurrentRound(ctx context.Context, eventID string, round int) (model.Event, error)

	// ResetEvent wipes all scores and rewinds the round pointer. The
	// audit trail is preserved.
	ResetEvent(ctx context.Context, eventID string) (model.Event, error)

	// AddTeam registers a team joining at the given round.
	AddTeam(ctx context.Context, eventID, name string, joinedRound int) (model.Team, error)

	// RemoveTeam drops a team and its scores.
	RemoveTeam(ctx context.Context, eventID, teamID string) (model.Team, error)

	// UpsertScore writes the single score for (team, round), replacing
	// any previous value. oldPoints is nil when the score was created.
	// Last write wins; the store does not serialize competing editors.
	UpsertScore(ctx context.Context, eventID, teamID string, round int, points float64, enteredBy string) (score model.Score, oldPoints *float64, err error)

	// DeleteScore removes the score for (team, round). Returns the
	// removed score.
	DeleteScore(ctx context.Context, eventID, teamID string, round int, deletedBy string) (model.Score, error)

	// Snapshot returns the full read model for one event.
	Snapshot(ctx context.Context, eventID string) (model.Snapshot, error)

	// Audit returns the score mutation trail, newest first.
	Audit(ctx context.Context, eventID string) ([]AuditEntry, error)

	// Counts returns store-wide totals for monitoring.
	Counts(ctx context.Context) (events, teams, scores int)
}
