// Package payments captures and refunds visit fees through Omise.
package payments

import (
	"context"
	"errors"
	"fmt"

	"visitly/internal/gateways"
	"visitly/pkg/logger"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

var (
	ErrInvalidCharge = errors.New("charge requires a positive amount and a card token")
	ErrChargeFailed  = errors.New("charge was not successful")
)

// OmiseGateway implements gateways.PaymentGateway with card charges.
type OmiseGateway struct {
	client   *omise.Client
	currency string
	log      *logger.Logger
}

var _ gateways.PaymentGateway = (*OmiseGateway)(nil)

func NewOmiseGateway(publicKey, secretKey, currency string, log *logger.Logger) (*OmiseGateway, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	client.SetDebug(false)
	if currency == "" {
		currency = "thb"
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &OmiseGateway{client: client, currency: currency, log: log}, nil
}

// Capture charges the tokenized card and returns the charge id.
func (g *OmiseGateway) Capture(ctx context.Context, amount int64, payer gateways.Payer) (string, error) {
	if amount <= 0 || payer.SourceToken == "" {
		return "", ErrInvalidCharge
	}

	ch := &omise.Charge{}
	req := &operations.CreateCharge{
		Amount:   amount,
		Currency: g.currency,
		Card:     payer.SourceToken,
		Metadata: map[string]interface{}{
			"booking_id": payer.BookingID,
			"visitor_id": payer.VisitorID,
		},
	}
	if err := g.client.Do(ch, req); err != nil {
		return "", fmt.Errorf("create charge: %w", err)
	}

	ref, err := chargeOutcome(ch)
	if err != nil {
		g.log.WarnContext(ctx, "charge not captured", "booking_id", payer.BookingID, "charge_id", ch.ID, "status", string(ch.Status))
		return "", err
	}
	return ref, nil
}

// Refund returns amount of the captured charge.
func (g *OmiseGateway) Refund(ctx context.Context, paymentRef string, amount int64) (string, error) {
	if paymentRef == "" || amount <= 0 {
		return "", fmt.Errorf("%w: missing charge or amount", gateways.ErrFailedRefund)
	}

	refund := &omise.Refund{}
	req := &operations.CreateRefund{
		ChargeID: paymentRef,
		Amount:   amount,
	}
	if err := g.client.Do(refund, req); err != nil {
		g.log.WarnContext(ctx, "refund rejected", "charge_id", paymentRef, "error", err.Error())
		return "", fmt.Errorf("%w: %v", gateways.ErrFailedRefund, err)
	}
	return refund.ID, nil
}

// chargeOutcome maps an Omise charge to a payment reference. Only successful
// charges count as captured; pending ones would need a webhook we do not run.
func chargeOutcome(ch *omise.Charge) (string, error) {
	switch string(ch.Status) {
	case "successful":
		return ch.ID, nil
	case "failed":
		msg := "unknown failure"
		if ch.FailureMessage != nil {
			msg = *ch.FailureMessage
		}
		if ch.FailureCode != nil {
			msg = *ch.FailureCode + ": " + msg
		}
		return "", fmt.Errorf("%w: %s", ErrChargeFailed, msg)
	default:
		return "", fmt.Errorf("%w: status %s", ErrChargeFailed, ch.Status)
	}
}
