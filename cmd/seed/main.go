package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"visitly/internal/bookings"
	"visitly/internal/outbox"
	"visitly/internal/shared/config"
	"visitly/internal/shared/database"
	"visitly/internal/shared/middleware"
	"visitly/internal/slots"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Fixed demo identities so tokens printed by one run stay valid for the next.
var (
	demoOrganizer = uuid.MustParse("5b0c9f52-6f0e-4c1e-9a51-0c6a3b6d1a01")
	demoVisitor   = uuid.MustParse("5b0c9f52-6f0e-4c1e-9a51-0c6a3b6d1a02")
	demoAdmin     = uuid.MustParse("5b0c9f52-6f0e-4c1e-9a51-0c6a3b6d1a03")
	demoProperty  = uuid.MustParse("5b0c9f52-6f0e-4c1e-9a51-0c6a3b6d1b01")
)

type Seeder struct {
	db  *database.DB
	cfg *config.Config
}

func main() {
	_ = godotenv.Load()
	fmt.Println("Starting visitly database seeder...")

	cfg := config.Load()
	db, err := database.InitDB(cfg, &slots.Slot{}, &bookings.Booking{}, &outbox.Message{})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db, cfg: cfg}

	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	if err := seeder.SeedSlots(); err != nil {
		log.Fatalf("Failed to seed slots: %v", err)
	}
	if err := seeder.PrintTokens(); err != nil {
		log.Fatalf("Failed to sign demo tokens: %v", err)
	}

	if err := db.Redis.FlushDB(context.Background()).Err(); err != nil {
		log.Printf("Warning: failed to clear Redis cache: %v", err)
	}
	fmt.Println("Seeding completed.")
}

// CleanDatabase truncates the visit tables, dependents first
func (s *Seeder) CleanDatabase() error {
	for _, table := range []string{"outbox_messages", "visit_bookings", "visit_slots"} {
		if err := s.db.PostgreSQL.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return nil
}

// SeedSlots publishes a week of demo slots: free, refundable paid and
// non-refundable paid.
func (s *Seeder) SeedSlots() error {
	start := time.Now().UTC().Truncate(time.Hour).Add(24 * time.Hour)
	var created []slots.Slot
	for day := 0; day < 7; day++ {
		base := start.Add(time.Duration(day) * 24 * time.Hour)
		created = append(created,
			demoSlot(base, 0, false, 4, "Lobby, ground floor"),
			demoSlot(base.Add(2*time.Hour), 2000, true, 1, "Unit 12B, ask the concierge"),
			demoSlot(base.Add(4*time.Hour), 5000, false, 2, "Show flat, level 3"),
		)
	}
	if err := s.db.PostgreSQL.Create(&created).Error; err != nil {
		return err
	}
	fmt.Printf("  Seeded %d slots for organizer %s\n", len(created), demoOrganizer)
	return nil
}

func demoSlot(startAt time.Time, fee int64, refundable bool, capacity int, meetingPoint string) slots.Slot {
	return slots.Slot{
		OrganizerID:   demoOrganizer,
		PropertyID:    demoProperty,
		StartTime:     startAt,
		EndTime:       startAt.Add(time.Hour),
		FeeAmount:     fee,
		FeeRefundable: refundable,
		Status:        slots.StatusAvailable,
		MeetingPoint:  meetingPoint,
		Capacity:      capacity,
	}
}

// PrintTokens prints week-long access tokens for the demo identities.
func (s *Seeder) PrintTokens() error {
	for role, id := range map[string]uuid.UUID{
		middleware.RoleOrganizer: demoOrganizer,
		middleware.RoleVisitor:   demoVisitor,
		middleware.RoleAdmin:     demoAdmin,
	} {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"type":    "access",
			"user_id": id.String(),
			"email":   fmt.Sprintf("%s@visitly.local", id.String()[:8]),
			"role":    role,
			"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(s.cfg.JWT.Secret))
		if err != nil {
			return err
		}
		fmt.Printf("  %-9s %s\n", role, signed)
	}
	return nil
}
