package bookings

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"visitly/internal/shared/apperrors"

	"github.com/google/uuid"
)

// CodeGenerator issues numeric confirmation codes that are unique within a slot.
type CodeGenerator struct {
	length      int
	maxAttempts int
	draw        func(length int) (string, error)
}

func NewCodeGenerator(length, maxAttempts int) *CodeGenerator {
	if length <= 0 {
		length = 6
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &CodeGenerator{length: length, maxAttempts: maxAttempts, draw: randomDigits}
}

// Generate draws codes until one is unused in the slot. repo should be bound
// to the transaction that will insert the booking.
func (g *CodeGenerator) Generate(ctx context.Context, repo Repository, slotID uuid.UUID) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.draw(g.length)
		if err != nil {
			return "", apperrors.Internal("failed to generate confirmation code", err)
		}
		taken, err := repo.CodeExists(ctx, slotID, code)
		if err != nil {
			return "", apperrors.Internal("failed to check confirmation code", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", codesExhausted()
}

func codesExhausted() error {
	return apperrors.Conflict(apperrors.CodeCodeGenerationExhausted, "could not allocate a unique confirmation code, please retry")
}

func randomDigits(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
