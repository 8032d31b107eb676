package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope é a forma publicada no Kafka / Redis: metadados + payload tipado.
type Envelope struct {
	EventID    string          `json:"event_id"`
	Type       Type            `json:"type"`
	MatchID    string          `json:"match_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Wrap serializa o evento dentro de um envelope.
func Wrap(e Event, eventID string, at time.Time) (Envelope, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	return Envelope{
		EventID:    eventID,
		Type:       e.EventType(),
		MatchID:    e.EventMatchID(),
		OccurredAt: at.UTC(),
		Data:       data,
	}, nil
}

// Decode devolve o evento tipado contido no envelope.
func (env Envelope) Decode() (Event, error) {
	var (
		e   Event
		err error
	)
	switch env.Type {
	case TypeMatchCreated:
		e, err = decodeAs[MatchCreated](env.Data)
	case TypeBetPlaced:
		e, err = decodeAs[BetPlaced](env.Data)
	case TypeMatchResolved:
		e, err = decodeAs[MatchResolved](env.Data)
	case TypeBetWon:
		e, err = decodeAs[BetWon](env.Data)
	case TypeBetLost:
		e, err = decodeAs[BetLost](env.Data)
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return e, nil
}

func decodeAs[T Event](data json.RawMessage) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
