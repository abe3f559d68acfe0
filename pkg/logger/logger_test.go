package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, getLogLevel("warning"))
	assert.Equal(t, slog.LevelError, getLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getLogLevel(""))
}

func TestLogForbiddenWritesAuditRecord(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info")

	l.LogForbidden(context.Background(), "checkin", "org-2", "booking-1", "organizer mismatch")

	out := buf.String()
	assert.Contains(t, out, "Forbidden Access")
	assert.Contains(t, out, "org-2")
	assert.Contains(t, out, "booking-1")
	assert.Contains(t, out, "audit")
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")

	l.LogBookingCreated(context.Background(), "b", "s", "v")

	assert.Empty(t, buf.String())
}
