package payments

import (
	"context"
	"errors"
	"testing"

	"visitly/internal/gateways"

	"github.com/omise/omise-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestChargeOutcome(t *testing.T) {
	ref, err := chargeOutcome(&omise.Charge{Base: omise.Base{ID: "chrg_1"}, Status: omise.ChargeStatus("successful")})
	require.NoError(t, err)
	assert.Equal(t, "chrg_1", ref)

	_, err = chargeOutcome(&omise.Charge{
		Status:         omise.ChargeStatus("failed"),
		FailureCode:    strPtr("insufficient_fund"),
		FailureMessage: strPtr("insufficient funds in the account"),
	})
	assert.True(t, errors.Is(err, ErrChargeFailed))
	assert.Contains(t, err.Error(), "insufficient_fund")

	_, err = chargeOutcome(&omise.Charge{Status: omise.ChargeStatus("pending")})
	assert.True(t, errors.Is(err, ErrChargeFailed))
}

func TestOmiseGatewayRejectsBadInputWithoutCallingOmise(t *testing.T) {
	gw, err := NewOmiseGateway("pkey_test_123", "skey_test_123", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "thb", gw.currency)

	_, err = gw.Capture(context.Background(), 0, gateways.Payer{SourceToken: "tokn_test"})
	assert.ErrorIs(t, err, ErrInvalidCharge)

	_, err = gw.Capture(context.Background(), 2000, gateways.Payer{})
	assert.ErrorIs(t, err, ErrInvalidCharge)

	_, err = gw.Refund(context.Background(), "", 2000)
	assert.ErrorIs(t, err, gateways.ErrFailedRefund)
}
