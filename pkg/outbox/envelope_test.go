package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-api/pkg/enums"
)

func TestSealThenOpen(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	env, raw, err := seal(DomainEvent{
		EventType:  enums.EventProductLowStock,
		Actor:      &ActorRef{UserID: 3, Role: "admin"},
		Data:       map[string]int{"product_id": 9},
		OccurredAt: at,
	})
	require.NoError(t, err)
	require.Equal(t, CurrentVersion, env.Version)

	opened, err := OpenEnvelope(raw)
	require.NoError(t, err)
	require.Equal(t, env.EventID, opened.EventID)
	require.True(t, at.Equal(opened.OccurredAt))

	var body struct {
		ProductID int `json:"product_id"`
	}
	require.NoError(t, opened.DecodeData(&body))
	require.Equal(t, 9, body.ProductID)
}

func TestOpenEnvelopeRejects(t *testing.T) {
	encode := func(env PayloadEnvelope) []byte {
		raw, err := json.Marshal(env)
		require.NoError(t, err)
		return raw
	}
	cases := map[string][]byte{
		"garbage":   []byte("{"),
		"no id":     encode(PayloadEnvelope{Version: 1, Data: json.RawMessage(`{}`)}),
		"null data": encode(PayloadEnvelope{Version: 1, EventID: "e", Data: json.RawMessage(`null`)}),
		"future":    encode(PayloadEnvelope{Version: CurrentVersion + 1, EventID: "e", Data: json.RawMessage(`{}`)}),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := OpenEnvelope(raw)
			require.Error(t, err)
		})
	}
}
