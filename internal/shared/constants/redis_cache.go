package constants

import (
	"time"
)

// Redis keys follow visitly:{module}:{operation}:{identifier}

// Cache TTL durations
const (
	TTL_IDEMPOTENCY    = 24 * time.Hour // replayed booking responses
	TTL_IDEMPOTENCY_IN = 30 * time.Second
)

const (
	CACHE_PREFIX = "visitly"
)

// Slot cache keys
const (
	CACHE_KEY_SLOT_DETAIL = CACHE_PREFIX + ":slots:detail:uuid:" // + slot-id
)

const (
	TTL_SLOT_DETAIL = 30 * time.Second // capacity changes often
)

// Idempotency keys for booking creation
const (
	CACHE_KEY_IDEMPOTENCY = CACHE_PREFIX + ":idempotency:bookings:" // + visitor-id:key
)

// Rate limit keys
const (
	CACHE_KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:"
)

func BuildSlotDetailKey(slotID string) string {
	return CACHE_KEY_SLOT_DETAIL + slotID
}

func BuildIdempotencyKey(visitorID, key string) string {
	return CACHE_KEY_IDEMPOTENCY + visitorID + ":" + key
}
