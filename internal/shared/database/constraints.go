package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Index names surface in unique-violation errors and are matched by callers.
const (
	IndexActiveVisitorBooking = "uq_visit_bookings_active_visitor"
	IndexSlotConfirmationCode = "uq_visit_bookings_slot_confirmation_code"
)

type constraint struct {
	table string
	sql   string
	// postgresOnly marks statements SQLite cannot run (ALTER TABLE ADD CONSTRAINT)
	postgresOnly bool
}

var constraints = []constraint{
	{
		table: "visit_bookings",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS ` + IndexActiveVisitorBooking + `
			ON visit_bookings (slot_id, visitor_id)
			WHERE visit_status <> 'cancelled'`,
	},
	{
		table: "visit_bookings",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS ` + IndexSlotConfirmationCode + `
			ON visit_bookings (slot_id, confirmation_code)`,
	},
	{
		table: "visit_bookings",
		sql: `CREATE INDEX IF NOT EXISTS idx_visit_bookings_sweep
			ON visit_bookings (visit_status, slot_id)`,
	},
	{
		table: "visit_slots",
		sql: `CREATE INDEX IF NOT EXISTS idx_visit_slots_status_end
			ON visit_slots (status, end_time)`,
	},
	{
		table: "outbox_messages",
		sql: `CREATE INDEX IF NOT EXISTS idx_outbox_messages_pending
			ON outbox_messages (status, next_attempt_at)`,
	},
	{
		table: "visit_slots",
		sql: `DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_visit_slots_capacity') THEN
				ALTER TABLE visit_slots ADD CONSTRAINT chk_visit_slots_capacity
				CHECK (active_bookings >= 0 AND active_bookings <= capacity AND start_time < end_time);
			END IF;
		END $$`,
		postgresOnly: true,
	},
}

// MigrateConstraints adds the indexes and checks that enforce booking
// uniqueness and slot capacity at the storage layer.
func MigrateConstraints(db *gorm.DB) error {
	isPostgres := db.Dialector.Name() == "postgres"
	for _, c := range constraints {
		if c.postgresOnly && !isPostgres {
			continue
		}
		if !db.Migrator().HasTable(c.table) {
			continue
		}
		if err := db.Exec(c.sql).Error; err != nil {
			return fmt.Errorf("apply constraint on %s: %w", c.table, err)
		}
	}
	return nil
}
