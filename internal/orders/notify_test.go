package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	keys    [][]byte
	values  [][]byte
	headers [][]kafkago.Header
}

func (c *capture) Publish(key, value []byte, headers ...kafkago.Header) {
	c.keys = append(c.keys, key)
	c.values = append(c.values, value)
	c.headers = append(c.headers, headers)
}

func TestKafkaNotifier_FinalizationFailed(t *testing.T) {
	failed := &capture{}
	n := &KafkaNotifier{Failed: failed, Service: "storefront-api"}

	n.FinalizationFailed(context.Background(), Failure{
		SessionID: "sess_abc",
		EventID:   "evt_1",
		Stage:     StageInsert,
		Err:       errors.New("db down"),
	})

	require.Len(t, failed.values, 1)
	assert.Equal(t, []byte("sess_abc"), failed.keys[0])
	assert.Equal(t, "x-event-type", failed.headers[0][0].Key)
	assert.Equal(t, EventFinalizationFailed, string(failed.headers[0][0].Value))

	var env Envelope
	require.NoError(t, json.Unmarshal(failed.values[0], &env))
	assert.Equal(t, EventFinalizationFailed, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "storefront-api", env.Producer)
	assert.Equal(t, "sess_abc", env.CorrelationID)
	assert.NotEmpty(t, env.EventID)

	var p FinalizationFailedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "sess_abc", p.StripeSessionID)
	assert.Equal(t, "evt_1", p.ProcessorEvent)
	assert.Equal(t, StageInsert, p.Stage)
	assert.Equal(t, "db down", p.Error)
}

func TestKafkaNotifier_OrderFinalized(t *testing.T) {
	done := &capture{}
	n := &KafkaNotifier{Finalized: done, Service: "storefront-api"}

	n.OrderFinalized(context.Background(),
		Order{ID: "ord-1", StripeSessionID: "sess_abc", AmountTotal: 4500, Currency: "usd"},
		[]OrderItem{{}, {}},
	)

	require.Len(t, done.values, 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(done.values[0], &env))
	var p OrderFinalizedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "ord-1", p.OrderID)
	assert.Equal(t, 2, p.ItemCount)
	assert.Equal(t, int64(4500), p.AmountTotal)
}

func TestKafkaNotifier_NilPublishers(t *testing.T) {
	n := &KafkaNotifier{}
	assert.NotPanics(t, func() {
		n.OrderFinalized(context.Background(), Order{}, nil)
		n.FinalizationFailed(context.Background(), Failure{})
	})
}

func TestMulti(t *testing.T) {
	a, b := &recNotifier{}, &recNotifier{}
	Multi{a, b, LogNotifier{}}.FinalizationFailed(context.Background(), Failure{SessionID: "s"})
	assert.Len(t, a.failures, 1)
	assert.Len(t, b.failures, 1)
}
