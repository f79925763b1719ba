package live

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/igacmun/site/go/internal/reveal"
)

// Event is the envelope of every message pushed to countdown clients.
type Event struct {
	ID        string          `json:"id"`
	Section   string          `json:"section"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type EventType string

const (
	EventTypeCountdownTick   EventType = "CountdownTick"
	EventTypeSectionRevealed EventType = "SectionRevealed"
)

// CountdownTickPayload carries a changed snapshot.
type CountdownTickPayload struct {
	reveal.Snapshot
	RevealAt string `json:"reveal_at"`
}

// SectionRevealedPayload is sent once when the section becomes visible.
type SectionRevealedPayload struct {
	RevealAt   string    `json:"reveal_at"`
	RevealedAt time.Time `json:"revealed_at"`
}

func newEvent(section string, typ EventType, payload any, at time.Time) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Section:   section,
		Type:      typ,
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// ParseEventPayload decodes the payload of a known event type.
func ParseEventPayload(event *Event) (any, error) {
	switch event.Type {
	case EventTypeCountdownTick:
		var payload CountdownTickPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSectionRevealed:
		var payload SectionRevealedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}
}
