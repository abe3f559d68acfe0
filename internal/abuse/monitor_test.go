package abuse

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"visitly/internal/gateways"
	"visitly/pkg/clock"
	"visitly/pkg/mq"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channel struct {
	key  string
	body []byte
	err  error
}

func (c *channel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	c.key, c.body = key, msg.Body
	return c.err
}

func (c *channel) Close() error { return nil }

func TestMonitorRecord(t *testing.T) {
	ch := &channel{}
	now := time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)
	m := NewMonitor(mq.NewPublisherWithChannel(ch, "visitly.abuse"), clock.NewFake(now))

	err := m.Record(context.Background(), gateways.AbuseEvent{
		Type:      gateways.AbuseRefundAutoApproved,
		BookingID: "b-1",
		ActorID:   "v-1",
		Amount:    2000,
		Flags:     []string{"fraud_flag", "scam"},
	})
	require.NoError(t, err)
	assert.Equal(t, "abuse.refund_auto_approved", ch.key)

	var got map[string]any
	require.NoError(t, json.Unmarshal(ch.body, &got))
	assert.Equal(t, "b-1", got["booking_id"])
	assert.Equal(t, float64(2000), got["amount"])
	assert.Equal(t, now.Format(time.RFC3339), got["recorded_at"])
}

func TestMonitorRecordErrors(t *testing.T) {
	ch := &channel{err: amqp.ErrClosed}
	m := NewMonitor(mq.NewPublisherWithChannel(ch, "visitly.abuse"), nil)

	err := m.Record(context.Background(), gateways.AbuseEvent{Type: gateways.AbuseRefundRequested})
	assert.True(t, errors.Is(err, amqp.ErrClosed))

	assert.Error(t, m.Record(context.Background(), gateways.AbuseEvent{}))
}
