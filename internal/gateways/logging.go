package gateways

import (
	"context"

	"visitly/pkg/logger"

	"github.com/google/uuid"
)

// Logging gateways stand in for integrations that are switched off in local
// and test deployments. They accept every call and log it.

type LoggingPayments struct{ Log *logger.Logger }

func (p LoggingPayments) Capture(ctx context.Context, amount int64, payer Payer) (string, error) {
	ref := "dev_chrg_" + uuid.NewString()
	p.Log.InfoContext(ctx, "payment capture skipped", "booking_id", payer.BookingID, "amount", amount, "payment_ref", ref)
	return ref, nil
}

func (p LoggingPayments) Refund(ctx context.Context, paymentRef string, amount int64) (string, error) {
	p.Log.InfoContext(ctx, "payment refund skipped", "payment_ref", paymentRef, "amount", amount)
	return "dev_rfnd_" + uuid.NewString(), nil
}

type LoggingNotifications struct{ Log *logger.Logger }

func (n LoggingNotifications) Send(ctx context.Context, recipient Recipient, template Template, data map[string]string) error {
	n.Log.InfoContext(ctx, "notification", "template", string(template), "recipient", recipient.UserID, "email", recipient.Email, "booking_id", data["booking_id"])
	return nil
}

type LoggingAbuse struct{ Log *logger.Logger }

func (a LoggingAbuse) Record(ctx context.Context, event AbuseEvent) error {
	a.Log.InfoContext(ctx, "abuse event", "type", string(event.Type), "booking_id", event.BookingID, "actor_id", event.ActorID, "flags", event.Flags)
	return nil
}
