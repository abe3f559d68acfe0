package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"visitly/internal/gateways"
	"visitly/pkg/clock"
	"visitly/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sentAt = time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)

func TestKafkaGatewaySend(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	gw := NewKafkaGatewayWithProducer(producer, "visit-notifications", clock.NewFake(sentAt), logger.Discard())

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var env Envelope
		if err := json.Unmarshal(val, &env); err != nil {
			return err
		}
		if env.Template != gateways.TemplateSlotCancelled || env.Priority != PriorityHigh {
			return errors.New("unexpected template or priority")
		}
		if len(env.Channels) != 2 || env.Data["booking_id"] != "b-1" {
			return errors.New("unexpected channels or data")
		}
		if !env.CreatedAt.Equal(sentAt) {
			return errors.New("unexpected timestamp")
		}
		return nil
	})

	err := gw.Send(context.Background(),
		gateways.Recipient{UserID: "u-1", Email: "ann@example.com", Phone: "+66812345678"},
		gateways.TemplateSlotCancelled,
		map[string]string{"booking_id": "b-1"})
	require.NoError(t, err)
	require.NoError(t, gw.Close())
}

func TestKafkaGatewaySendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	gw := NewKafkaGatewayWithProducer(producer, "visit-notifications", clock.NewFake(sentAt), logger.Discard())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := gw.Send(context.Background(), gateways.Recipient{Email: "ann@example.com"}, gateways.TemplateBookingConfirmed, nil)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, gw.Close())
}

func TestEnvelopeRouting(t *testing.T) {
	env := newEnvelope(gateways.Recipient{Email: "ann@example.com"}, gateways.TemplateBookingConfirmed, nil, sentAt)
	assert.Equal(t, "ann@example.com", env.PartitionKey())
	assert.Equal(t, []Channel{ChannelEmail}, env.Channels)
	assert.Equal(t, PriorityNormal, env.Priority)

	env = newEnvelope(gateways.Recipient{UserID: "org-1"}, gateways.TemplateFraudAlert, map[string]string{"booking_id": "b-9"}, sentAt)
	assert.Equal(t, "org-1", env.PartitionKey())
	assert.Equal(t, PriorityHigh, env.Priority)

	h := headers(env)
	keys := make(map[string]string, len(h))
	for _, rh := range h {
		keys[string(rh.Key)] = string(rh.Value)
	}
	assert.Equal(t, "b-9", keys["booking_id"])
	assert.Equal(t, "fraud_alert", keys["template"])
}

func TestDefaultProducerConfig(t *testing.T) {
	sc := DefaultProducerConfig().SaramaConfig()
	assert.True(t, sc.Producer.Return.Successes)
	assert.True(t, sc.Producer.Idempotent)
	assert.Equal(t, 1, sc.Net.MaxOpenRequests)
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
}
