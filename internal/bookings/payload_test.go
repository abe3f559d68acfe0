package bookings

import (
	"strings"
	"testing"
	"time"

	"visitly/internal/shared/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanPayloadRoundTrip(t *testing.T) {
	signer := NewPayloadSigner("secret", "visitly")
	b := &Booking{ID: uuid.New(), SlotID: uuid.New(), VisitorID: uuid.New(), ConfirmationCode: "048213"}
	issued := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)

	token, err := signer.BuildScanPayload(b, issued)
	require.NoError(t, err)

	claims, err := signer.ParseScanPayload(token)
	require.NoError(t, err)
	assert.Equal(t, b.ID.String(), claims.BookingID)
	assert.Equal(t, b.SlotID.String(), claims.SlotID)
	assert.Equal(t, b.VisitorID.String(), claims.VisitorID)
	assert.Equal(t, "048213", claims.ConfirmationCode)
	assert.Equal(t, issued.Unix(), claims.Issued)
	assert.Equal(t, b.ID, claims.BookingUUID())
}

func TestScanPayloadRejects(t *testing.T) {
	signer := NewPayloadSigner("secret", "visitly")
	b := &Booking{ID: uuid.New(), SlotID: uuid.New(), VisitorID: uuid.New(), ConfirmationCode: "123456"}
	token, err := signer.BuildScanPayload(b, time.Now())
	require.NoError(t, err)

	foreign, err := NewPayloadSigner("other-secret", "visitly").BuildScanPayload(b, time.Now())
	require.NoError(t, err)
	otherIssuer, err := NewPayloadSigner("secret", "someone-else").BuildScanPayload(b, time.Now())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"tampered":     tampered,
		"wrong secret": foreign,
		"wrong issuer": otherIssuer,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := signer.ParseScanPayload(input)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeDecodeError), "got %v", err)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		})
	}
}
