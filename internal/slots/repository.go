package slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"visitly/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository owns visit slots. Every state change is a conditional UPDATE so
// concurrent writers across processes cannot overwrite each other.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, slot *Slot) error
	GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error)

	// Reserve takes one unit of capacity if the slot is available and still in
	// the future. It reports false when no row matched.
	Reserve(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// Release gives back one unit of capacity.
	Release(ctx context.Context, id uuid.UUID) (bool, error)
	Cancel(ctx context.Context, id, organizerID uuid.UUID) (bool, error)
	// CompleteElapsed moves open slots that ended before cutoff to completed.
	CompleteElapsed(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, slot *Slot) error {
	if err := r.db.WithContext(ctx).Create(slot).Error; err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

func (r *repository) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	var slot Slot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(apperrors.CodeSlotNotFound, "slot not found")
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return &slot, nil
}

func (r *repository) Reserve(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Slot{}).
		Where("id = ? AND status = ? AND active_bookings < capacity AND start_time > ?", id, StatusAvailable, now).
		Updates(map[string]interface{}{
			"active_bookings": gorm.Expr("active_bookings + 1"),
			"status":          gorm.Expr("CASE WHEN active_bookings + 1 >= capacity THEN ? ELSE status END", StatusBooked),
		})
	if res.Error != nil {
		return false, fmt.Errorf("reserve slot: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Release(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Slot{}).
		Where("id = ? AND active_bookings > 0 AND status IN ?", id, []Status{StatusAvailable, StatusBooked}).
		Updates(map[string]interface{}{
			"active_bookings": gorm.Expr("active_bookings - 1"),
			"status":          StatusAvailable,
		})
	if res.Error != nil {
		return false, fmt.Errorf("release slot: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Cancel(ctx context.Context, id, organizerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Slot{}).
		Where("id = ? AND organizer_id = ? AND status IN ?", id, organizerID, []Status{StatusAvailable, StatusBooked}).
		Updates(map[string]interface{}{
			"status":          StatusCancelled,
			"active_bookings": 0,
		})
	if res.Error != nil {
		return false, fmt.Errorf("cancel slot: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CompleteElapsed(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Slot{}).
		Where("status IN ? AND end_time < ?", []Status{StatusAvailable, StatusBooked}, cutoff).
		Update("status", StatusCompleted)
	if res.Error != nil {
		return 0, fmt.Errorf("complete elapsed slots: %w", res.Error)
	}
	return res.RowsAffected, nil
}
