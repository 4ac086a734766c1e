// Package broadcast defines the typed live-update messages and the
// in-process bus that fans them out to connected clients.
package broadcast

import (
	"encoding/json"
	"time"
)

// Type discriminates the message kinds carried on a per-event channel.
type Type string

// Per-event message kinds.
const (
	TypeScoreUpdated       Type = "score-updated"
	TypeScoreDeleted       Type = "score-deleted"
	TypeRoundChanged       Type = "round-changed"
	TypeTeamAdded          Type = "team-added"
	TypeTeamRemoved        Type = "team-removed"
	TypeEventStatusChanged Type = "event-status-changed"
)

// Global lifecycle notice kinds. These only trigger dashboard list
// refreshes and are not consumed by the ranking/conflict core.
const (
	TypeEventCreated  Type = "event-created"
	TypeEventStarted  Type = "event-started"
	TypeEventEnded    Type = "event-ended"
	TypeEventReopened Type = "event-reopened"
	TypeEventArchived Type = "event-archived"
	TypeEventDeleted  Type = "event-deleted"
	TypeEventReset    Type = "event-reset"
)

// EventChannel names the logical channel carrying one event's updates.
func EventChannel(eventID string) string { return "event:" + eventID }

// GlobalChannel carries cross-event lifecycle notices.
const GlobalChannel = "events:global"

// Message is the wire envelope. ID is unique per publish and lets
// consumers drop re-delivered copies; delivery is best-effort, not
// exactly-once.
type Message struct {
	ID        string          `json:"id"`
	Channel   string          `json:"channel"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// ScoreUpdated announces a saved score. OldPoints is nil for a freshly
// created score.
type ScoreUpdated struct {
	TeamID        string   `json:"teamId"`
	TeamName      string   `json:"teamName"`
	RoundNumber   int      `json:"roundNumber"`
	Points        float64  `json:"points"`
	OldPoints     *float64 `json:"oldPoints,omitempty"`
	ChangedBy     string   `json:"changedBy"`
	ChangedByName string   `json:"changedByName"`
}

// ScoreDeleted announces a removed score.
type ScoreDeleted struct {
	TeamID        string `json:"teamId"`
	TeamName      string `json:"teamName"`
	RoundNumber   int    `json:"roundNumber"`
	ChangedBy     string `json:"changedBy"`
	ChangedByName string `json:"changedByName"`
}

// RoundChanged announces an admin advancing the current round.
type RoundChanged struct {
	NewRound      int    `json:"newRound"`
	TotalRounds   int    `json:"totalRounds"`
	ChangedBy     string `json:"changedBy"`
	ChangedByName string `json:"changedByName"`
}

// TeamAdded announces a mid-event roster addition.
type TeamAdded struct {
	TeamID      string `json:"teamId"`
	TeamName    string `json:"teamName"`
	JoinedRound int    `json:"joinedRound"`
}

// TeamRemoved announces a roster removal.
type TeamRemoved struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
}

// EventStatusChanged announces a lifecycle transition.
type EventStatusChanged struct {
	Status string `json:"status"`
}

// LifecycleNotice is the payload for global channel notices.
type LifecycleNotice struct {
	EventID   string `json:"eventId"`
	EventName string `json:"eventName"`
}

// DecodeScoreUpdated unmarshals a score-updated payload.
func DecodeScoreUpdated(m Message) (ScoreUpdated, error) {
	var p ScoreUpdated
	err := json.Unmarshal(m.Payload, &p)
	return p, err
}

// DecodeScoreDeleted unmarshals a score-deleted payload.
func DecodeScoreDeleted(m Message) (ScoreDeleted, error) {
	var p ScoreDeleted
	err := json.Unmarshal(m.Payload, &p)
	return p, err
}
