package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
	assert.Equal(t, 30*time.Minute, cfg.Visits.CheckInGrace)
	assert.Equal(t, 6, cfg.Visits.CodeLength)
	assert.Equal(t, 10, cfg.Visits.CodeMaxAttempts)
	assert.Equal(t, 5, cfg.Visits.RefundProcessingDays)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Contains(t, cfg.Database.DSN, "dbname=visitly_db")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VISIT_CHECKIN_GRACE", "15m")
	t.Setenv("VISIT_FRAUD_PHRASES", "fraud, scam ,,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("JOBS_RELAY_MAX_ATTEMPTS", "not-a-number")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.Visits.CheckInGrace)
	assert.Equal(t, []string{"fraud", "scam"}, cfg.Visits.FraudPhrases)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Jobs.RelayMaxAttempts)
}
