package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the envelope version written by Emit when none is given.
const CurrentVersion = 1

var (
	ErrMissingEventID = errors.New("envelope has no event id")
	ErrEmptyData      = errors.New("envelope carries no data")
)

// ActorRef names the user whose request produced an event.
type ActorRef struct {
	UserID uint   `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// PayloadEnvelope wraps every outbox payload. EventID is what consumers
// dedupe on; Data holds the event specific body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// seal stamps a new event id and serialises the event into its stored form.
func seal(event DomainEvent) (PayloadEnvelope, []byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("encode %s payload: %w", event.EventType, err)
	}
	env := PayloadEnvelope{
		Version:    event.Version,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	if env.Version == 0 {
		env.Version = CurrentVersion
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("encode envelope: %w", err)
	}
	return env, raw, nil
}

// OpenEnvelope parses a stored or published envelope. Envelopes from a newer
// writer, without an event id, or with a null body are rejected.
func OpenEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version > CurrentVersion {
		return PayloadEnvelope{}, fmt.Errorf("envelope version %d is newer than %d", env.Version, CurrentVersion)
	}
	if env.EventID == "" {
		return PayloadEnvelope{}, ErrMissingEventID
	}
	if body := bytes.TrimSpace(env.Data); len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return PayloadEnvelope{}, ErrEmptyData
	}
	return env, nil
}

// DecodeData unmarshals the event body into dst.
func (e PayloadEnvelope) DecodeData(dst any) error {
	return json.Unmarshal(e.Data, dst)
}
