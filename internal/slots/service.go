package slots

import (
	"context"

	"visitly/internal/shared/apperrors"
	"visitly/internal/shared/constants"
	"visitly/pkg/cache"
	"visitly/pkg/clock"
	"visitly/pkg/logger"
	"visitly/pkg/obs"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type Service interface {
	CreateSlot(ctx context.Context, organizerID uuid.UUID, req CreateSlotRequest) (*Slot, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error)
}

type service struct {
	repo  Repository
	cache cache.Service
	clock clock.Clock
	log   *logger.Logger
}

// NewService builds the slot service. cacheSvc may be nil.
func NewService(repo Repository, cacheSvc cache.Service, clk clock.Clock, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{repo: repo, cache: cacheSvc, clock: clk, log: log}
}

func (s *service) CreateSlot(ctx context.Context, organizerID uuid.UUID, req CreateSlotRequest) (*Slot, error) {
	ctx, span := obs.Tracer("slots").Start(ctx, "slots.CreateSlot")
	defer span.End()

	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "property_id must be a UUID")
	}
	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	if !start.Before(end) {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "start_time must be before end_time")
	}
	if !start.After(s.clock.Now()) {
		return nil, apperrors.Temporal(apperrors.CodeSlotInPast, "slot must start in the future").
			WithDetail("start_time", start)
	}
	if req.FeeAmount < 0 {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "fee_amount must not be negative")
	}
	capacity := req.Capacity
	if capacity == 0 {
		capacity = 1
	}

	slot := &Slot{
		OrganizerID:   organizerID,
		PropertyID:    propertyID,
		StartTime:     start,
		EndTime:       end,
		FeeAmount:     req.FeeAmount,
		FeeRefundable: req.FeeRefundable,
		Status:        StatusAvailable,
		MeetingPoint:  req.MeetingPoint,
		Instructions:  req.Instructions,
		Capacity:      capacity,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, apperrors.Internal("failed to create slot", err)
	}

	span.SetAttributes(attribute.String("slot.id", slot.ID.String()))
	s.log.LogSlotCreated(ctx, slot.ID.String(), organizerID.String())
	return slot, nil
}

func (s *service) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	if s.cache == nil {
		return s.repo.GetSlot(ctx, id)
	}

	var slot Slot
	err := s.cache.GetOrSet(ctx, constants.BuildSlotDetailKey(id.String()), constants.TTL_SLOT_DETAIL, func() (interface{}, error) {
		return s.repo.GetSlot(ctx, id)
	}, &slot)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
