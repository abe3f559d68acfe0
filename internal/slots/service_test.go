package slots

import (
	"context"
	"testing"
	"time"

	"visitly/internal/shared/apperrors"
	"visitly/internal/shared/database/dbtest"
	"visitly/pkg/clock"
	"visitly/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSlot(t *testing.T) {
	clk := clock.NewFake(baseTime)
	svc := NewService(NewRepository(dbtest.Open(t, &Slot{})), nil, clk, logger.Discard())
	ctx := context.Background()
	organizer := uuid.New()

	valid := CreateSlotRequest{
		PropertyID: uuid.NewString(),
		StartTime:  baseTime.Add(24 * time.Hour),
		EndTime:    baseTime.Add(25 * time.Hour),
		FeeAmount:  2000,
	}

	t.Run("Given a valid request When created Then defaults apply", func(t *testing.T) {
		slot, err := svc.CreateSlot(ctx, organizer, valid)
		require.NoError(t, err)
		assert.Equal(t, StatusAvailable, slot.Status)
		assert.Equal(t, 1, slot.Capacity)
		assert.Equal(t, organizer, slot.OrganizerID)

		got, err := svc.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2000), got.FeeAmount)
	})

	t.Run("Given end before start When created Then validation error", func(t *testing.T) {
		req := valid
		req.EndTime = req.StartTime.Add(-time.Minute)
		_, err := svc.CreateSlot(ctx, organizer, req)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("Given a start in the past When created Then temporal error", func(t *testing.T) {
		req := valid
		req.StartTime = baseTime.Add(-time.Hour)
		req.EndTime = baseTime.Add(time.Hour)
		_, err := svc.CreateSlot(ctx, organizer, req)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotInPast))
	})
}
