package events

import (
	"context"
	"time"

	"mediahub/internal/util"
)

const (
	MediaCreated  = "media.created"
	MediaUpdated  = "media.updated"
	MediaDeleted  = "media.deleted"
	MediaImported = "media.imported"
)

// Event announces a change to the media catalogue.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	MediaID string    `json:"mediaId,omitempty"`
	Count   int       `json:"count,omitempty"`
	At      time.Time `json:"at"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType, mediaID string) Event {
	return Event{ID: util.NewID(), Type: eventType, MediaID: mediaID, At: time.Now().UTC()}
}

// Publisher delivers media events. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
