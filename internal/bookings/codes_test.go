package bookings

import (
	"context"
	"regexp"
	"testing"

	"visitly/internal/shared/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// takenCodes answers CodeExists from a fixed set.
type takenCodes struct {
	Repository
	taken map[string]bool
	calls int
}

func (r *takenCodes) CodeExists(_ context.Context, _ uuid.UUID, code string) (bool, error) {
	r.calls++
	return r.taken[code], nil
}

func sequence(codes ...string) func(int) (string, error) {
	i := 0
	return func(int) (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func TestCodeGeneratorFormat(t *testing.T) {
	gen := NewCodeGenerator(6, 10)
	repo := &takenCodes{taken: map[string]bool{}}
	pattern := regexp.MustCompile(`^[0-9]{6}$`)

	for i := 0; i < 200; i++ {
		code, err := gen.Generate(context.Background(), repo, uuid.New())
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestCodeGeneratorSkipsTakenCodes(t *testing.T) {
	gen := NewCodeGenerator(6, 10)
	gen.draw = sequence("111111", "222222", "333333")
	repo := &takenCodes{taken: map[string]bool{"111111": true, "222222": true}}

	code, err := gen.Generate(context.Background(), repo, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "333333", code)
	assert.Equal(t, 3, repo.calls)
}

func TestCodeGeneratorExhausted(t *testing.T) {
	gen := NewCodeGenerator(6, 4)
	gen.draw = sequence("424242")
	repo := &takenCodes{taken: map[string]bool{"424242": true}}

	_, err := gen.Generate(context.Background(), repo, uuid.New())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCodeGenerationExhausted))
	assert.Equal(t, 4, repo.calls)
}

func TestRandomDigitsKeepsLeadingZeros(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := randomDigits(4)
		require.NoError(t, err)
		require.Len(t, code, 4)
	}
}
