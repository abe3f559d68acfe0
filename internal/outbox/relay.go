package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"visitly/internal/gateways"
	"visitly/pkg/clock"
	"visitly/pkg/logger"
	"visitly/pkg/obs"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RelayConfig tunes the dispatch loop.
type RelayConfig struct {
	Interval     time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
}

func DefaultRelayConfig() *RelayConfig {
	return &RelayConfig{
		Interval:     2 * time.Second,
		BatchSize:    50,
		MaxAttempts:  8,
		RetryBackoff: 30 * time.Second,
	}
}

// Gateways are the dispatch targets of the relay.
type Gateways struct {
	Payments      gateways.PaymentGateway
	Notifications gateways.NotificationGateway
	Abuse         gateways.AbuseMonitor
}

// Relay drains committed outbox rows to the external gateways. Delivery is
// at-least-once: a crash between dispatch and MarkDispatched resends.
type Relay struct {
	repo     Repository
	gateways Gateways
	config   *RelayConfig
	clock    clock.Clock
	log      *logger.Logger
	done     chan struct{}
}

func NewRelay(repo Repository, gw Gateways, config *RelayConfig, clk clock.Clock, log *logger.Logger) *Relay {
	if config == nil {
		config = DefaultRelayConfig()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Relay{
		repo:     repo,
		gateways: gw,
		config:   config,
		clock:    clk,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start runs the relay loop until Stop or ctx is cancelled.
func (r *Relay) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.config.Interval)
		defer ticker.Stop()

		r.log.Info("outbox relay started", "interval", r.config.Interval.String())
		for {
			select {
			case <-ticker.C:
				if _, err := r.DrainOnce(ctx); err != nil {
					r.log.Error("outbox drain failed", "error", err)
				}
			case <-r.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Relay) Stop() {
	close(r.done)
}

// DrainOnce dispatches one batch of due messages and returns how many were handled.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	ctx, span := obs.Tracer("outbox").Start(ctx, "outbox.DrainOnce")
	defer span.End()

	now := r.clock.Now()
	handled := 0
	err := r.repo.Transaction(ctx, func(tx Repository) error {
		msgs, err := tx.ClaimDue(ctx, now, r.config.BatchSize)
		if err != nil {
			return err
		}
		for i := range msgs {
			if err := r.handle(ctx, tx, &msgs[i], now); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	span.SetAttributes(attribute.Int("outbox.handled", handled))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return handled, err
}

func (r *Relay) handle(ctx context.Context, tx Repository, msg *Message, now time.Time) error {
	dispatchErr := r.dispatch(ctx, msg)
	if dispatchErr == nil {
		return tx.MarkDispatched(ctx, msg.ID, now)
	}

	attempts := msg.Attempts + 1
	r.log.LogDispatchFailure(ctx, msg.ID.String(), string(msg.Kind), attempts, dispatchErr)
	if attempts >= r.config.MaxAttempts {
		return tx.MarkFailed(ctx, msg.ID, attempts, dispatchErr.Error())
	}
	next := now.Add(time.Duration(attempts) * r.config.RetryBackoff)
	return tx.MarkRetry(ctx, msg.ID, attempts, dispatchErr.Error(), next)
}

func (r *Relay) dispatch(ctx context.Context, msg *Message) error {
	switch msg.Kind {
	case KindPaymentRefund:
		if r.gateways.Payments == nil {
			return fmt.Errorf("no payment gateway configured")
		}
		var p RefundPayload
		if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
			return fmt.Errorf("decode refund payload: %w", err)
		}
		_, err := r.gateways.Payments.Refund(ctx, p.PaymentRef, p.Amount)
		return err

	case KindNotificationSend:
		if r.gateways.Notifications == nil {
			return nil
		}
		var p NotificationPayload
		if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
			return fmt.Errorf("decode notification payload: %w", err)
		}
		return r.gateways.Notifications.Send(ctx, p.Recipient, p.Template, p.Data)

	case KindAbuseRecord:
		if r.gateways.Abuse == nil {
			return nil
		}
		var ev gateways.AbuseEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			return fmt.Errorf("decode abuse payload: %w", err)
		}
		return r.gateways.Abuse.Record(ctx, ev)

	default:
		return fmt.Errorf("unknown outbox kind %q", msg.Kind)
	}
}

// GetJobStatus reports the relay settings for the status endpoint.
func (r *Relay) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{
		"interval":     r.config.Interval.String(),
		"batch_size":   r.config.BatchSize,
		"max_attempts": r.config.MaxAttempts,
	}
}
