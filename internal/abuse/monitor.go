// Package abuse forwards refund activity to the abuse monitoring exchange.
package abuse

import (
	"context"
	"fmt"
	"time"

	"visitly/internal/gateways"
	"visitly/pkg/clock"
)

// Publisher is satisfied by *mq.Publisher.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type record struct {
	gateways.AbuseEvent
	RecordedAt time.Time `json:"recorded_at"`
}

// Monitor implements gateways.AbuseMonitor over RabbitMQ.
type Monitor struct {
	pub   Publisher
	clock clock.Clock
}

var _ gateways.AbuseMonitor = (*Monitor)(nil)

func NewMonitor(pub Publisher, clk clock.Clock) *Monitor {
	if clk == nil {
		clk = clock.Real()
	}
	return &Monitor{pub: pub, clock: clk}
}

// Record publishes the event under abuse.<type>.
func (m *Monitor) Record(ctx context.Context, event gateways.AbuseEvent) error {
	if event.Type == "" {
		return fmt.Errorf("abuse event without type")
	}
	key := "abuse." + string(event.Type)
	if err := m.pub.PublishJSON(ctx, key, record{AbuseEvent: event, RecordedAt: m.clock.Now()}); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}
