package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with request and domain helpers
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to stdout
func New() *Logger {
	return NewWithWriter(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewWithWriter creates a logger for the given writer and level name
func NewWithWriter(w io.Writer, levelName string) *Logger {
	level := getLogLevel(levelName)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Text handler is easier to read locally
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithUserID adds user ID to logger context
func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("user_id", userID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Business logic logging methods

// LogSlotCreated logs when an organizer publishes a slot
func (l *Logger) LogSlotCreated(ctx context.Context, slotID, organizerID string) {
	l.Logger.InfoContext(ctx,
		"Slot Created",
		slog.String("slot_id", slotID),
		slog.String("organizer_id", organizerID),
	)
}

// LogSlotCancelled logs a slot cancellation and how many bookings it touched
func (l *Logger) LogSlotCancelled(ctx context.Context, slotID, organizerID string, cancelled, refunded int) {
	l.Logger.InfoContext(ctx,
		"Slot Cancelled",
		slog.String("slot_id", slotID),
		slog.String("organizer_id", organizerID),
		slog.Int("bookings_cancelled", cancelled),
		slog.Int("bookings_refunded", refunded),
	)
}

// LogBookingCreated logs when a booking is created
func (l *Logger) LogBookingCreated(ctx context.Context, bookingID, slotID, visitorID string) {
	l.Logger.InfoContext(ctx,
		"Booking Created",
		slog.String("booking_id", bookingID),
		slog.String("slot_id", slotID),
		slog.String("visitor_id", visitorID),
	)
}

// LogBookingCancelled logs when a booking is cancelled
func (l *Logger) LogBookingCancelled(ctx context.Context, bookingID, slotID, visitorID string) {
	l.Logger.InfoContext(ctx,
		"Booking Cancelled",
		slog.String("booking_id", bookingID),
		slog.String("slot_id", slotID),
		slog.String("visitor_id", visitorID),
	)
}

// LogCheckIn logs a check-in attempt that succeeded
func (l *Logger) LogCheckIn(ctx context.Context, bookingID, organizerID string, alreadyCheckedIn bool) {
	l.Logger.InfoContext(ctx,
		"Visitor Checked In",
		slog.String("booking_id", bookingID),
		slog.String("organizer_id", organizerID),
		slog.Bool("already_checked_in", alreadyCheckedIn),
	)
}

// LogRefundDecision logs the outcome of a refund adjudication
func (l *Logger) LogRefundDecision(ctx context.Context, bookingID, actorID, refundStatus string, fraudFlag bool, amount int64) {
	l.Logger.InfoContext(ctx,
		"Refund Decision",
		slog.String("booking_id", bookingID),
		slog.String("actor_id", actorID),
		slog.String("refund_status", refundStatus),
		slog.Bool("fraud_flag", fraudFlag),
		slog.Int64("amount", amount),
	)
}

// Security logging methods

// LogForbidden writes an audit record for an identity mismatch
func (l *Logger) LogForbidden(ctx context.Context, operation, actorID, resourceID, reason string) {
	l.Logger.WarnContext(ctx,
		"Forbidden Access",
		slog.String("audit", "true"),
		slog.String("operation", operation),
		slog.String("actor_id", actorID),
		slog.String("resource_id", resourceID),
		slog.String("reason", reason),
	)
}

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Dispatch logging methods

// LogDispatchFailure logs a failed side-effect dispatch from the outbox
func (l *Logger) LogDispatchFailure(ctx context.Context, messageID, kind string, attempts int, err error) {
	l.Logger.WarnContext(ctx,
		"Outbox Dispatch Failed",
		slog.String("message_id", messageID),
		slog.String("kind", kind),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// Discard returns a logger that drops everything, for tests
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
