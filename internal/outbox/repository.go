package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// WithTx binds the repository to an open transaction.
	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	Append(ctx context.Context, msgs ...*Message) error
	// ClaimDue locks up to limit pending messages due at now. Rows locked by
	// another relay are skipped on PostgreSQL.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]Message, error)
	MarkDispatched(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkRetry(ctx context.Context, id uuid.UUID, attempts int, lastErr string, next time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error

	ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]Message, error)
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

func (r *repository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *repository) Append(ctx context.Context, msgs ...*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(msgs).Error; err != nil {
		return fmt.Errorf("append outbox messages: %w", err)
	}
	return nil
}

func (r *repository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]Message, error) {
	var msgs []Message
	q := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", StatusPending, now).
		Order("created_at ASC").
		Limit(limit)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("claim outbox messages: %w", err)
	}
	return msgs, nil
}

func (r *repository) MarkDispatched(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":        StatusDispatched,
			"dispatched_at": now,
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    nil,
		}).Error
}

func (r *repository) MarkRetry(ctx context.Context, id uuid.UUID, attempts int, lastErr string, next time.Time) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"attempts":        attempts,
			"last_error":      lastErr,
			"next_attempt_at": next,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":     StatusFailed,
			"attempts":   attempts,
			"last_error": lastErr,
		}).Error
}

func (r *repository) ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]Message, error) {
	var msgs []Message
	err := r.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}
