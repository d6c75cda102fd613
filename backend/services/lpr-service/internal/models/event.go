package models

import (
	"fmt"
	"strings"
	"time"
)

// EventType is the kind of plate sighting reported by a checkpoint camera.
type EventType string

const (
	EventTypeEntry EventType = "entry"
	EventTypeExit  EventType = "exit"
)

// ParseEventType accepts exactly "entry" or "exit".
func ParseEventType(raw string) (EventType, error) {
	if t := EventType(raw); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("invalid event type %q", raw)
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t == EventTypeEntry || t == EventTypeExit
}

func (t EventType) String() string { return string(t) }

// NormalizePlate trims surrounding whitespace from a plate number.
func NormalizePlate(plate string) string {
	return strings.TrimSpace(plate)
}

// Event is an accepted plate sighting. Events are never mutated after insert.
type Event struct {
	ID          int64     `db:"id" json:"id"`
	PlateNumber string    `db:"plate_number" json:"plate_number"`
	EventType   EventType `db:"event_type" json:"event_type"`
	EventTime   time.Time `db:"event_time" json:"event_time"`
	Metadata    Metadata  `db:"metadata" json:"metadata"`
}
