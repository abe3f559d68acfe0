package bookings

import (
	"errors"
	"fmt"
	"time"

	"visitly/internal/shared/apperrors"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ScanClaims is what the visitor's QR code carries. It only references a
// booking; check-in re-reads every field from the store.
type ScanClaims struct {
	BookingID        string `json:"bid"`
	ConfirmationCode string `json:"code"`
	SlotID           string `json:"sid"`
	VisitorID        string `json:"vid"`
	Issued           int64  `json:"issued"`
	jwt.RegisteredClaims
}

// PayloadSigner builds and verifies scan payloads.
type PayloadSigner struct {
	secret []byte
	issuer string
}

func NewPayloadSigner(secret, issuer string) *PayloadSigner {
	return &PayloadSigner{secret: []byte(secret), issuer: issuer}
}

// BuildScanPayload signs the identifying fields of b.
func (p *PayloadSigner) BuildScanPayload(b *Booking, issuedAt time.Time) (string, error) {
	claims := ScanClaims{
		BookingID:        b.ID.String(),
		ConfirmationCode: b.ConfirmationCode,
		SlotID:           b.SlotID.String(),
		VisitorID:        b.VisitorID.String(),
		Issued:           issuedAt.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: p.issuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign scan payload: %w", err)
	}
	return signed, nil
}

// ParseScanPayload verifies the signature and returns the embedded claims.
// Any malformed, tampered or foreign token is a DecodeError.
func (p *PayloadSigner) ParseScanPayload(token string) (*ScanClaims, error) {
	if token == "" {
		return nil, decodeError("scan payload is empty")
	}

	claims := &ScanClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
			return nil, decodeError("scan payload signature is invalid")
		}
		return nil, decodeError("scan payload could not be decoded")
	}
	if !parsed.Valid || claims.Issuer != p.issuer {
		return nil, decodeError("scan payload was not issued by this service")
	}
	for _, id := range []string{claims.BookingID, claims.SlotID, claims.VisitorID} {
		if _, err := uuid.Parse(id); err != nil {
			return nil, decodeError("scan payload carries a malformed identifier")
		}
	}
	if claims.ConfirmationCode == "" {
		return nil, decodeError("scan payload has no confirmation code")
	}
	return claims, nil
}

func (c *ScanClaims) BookingUUID() uuid.UUID {
	return uuid.MustParse(c.BookingID)
}

func decodeError(msg string) error {
	return apperrors.Validation(apperrors.CodeDecodeError, msg)
}
