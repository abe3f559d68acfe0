package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"visitly/internal/bookings"
	"visitly/internal/checkin"
	"visitly/internal/refunds"
	"visitly/internal/shared/config"
	"visitly/internal/slots"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticJob map[string]interface{}

func (s staticJob) GetJobStatus() map[string]interface{} { return s }

func newEngine(health func(*gin.Context) error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{APIVersion: "v1", APIPrefix: "/api"}
	cfg.JWT.Secret = "test-secret"

	r := NewRouter(cfg, health, Controllers{
		Slots:    slots.NewController(nil),
		Bookings: bookings.NewController(nil, nil),
		CheckIn:  checkin.NewController(nil),
		Refunds:  refunds.NewController(nil),
	}, map[string]JobReporter{"outbox_relay": staticJob{"batch_size": 50}})

	engine := gin.New()
	r.SetupRoutes(engine)
	return engine
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthRoutes(t *testing.T) {
	engine := newEngine(nil)

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/ping").Code)

	w := serve(engine, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Jobs map[string]map[string]interface{} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(50), body.Jobs["outbox_relay"]["batch_size"])
}

func TestHealthReportsUnhealthyStore(t *testing.T) {
	engine := newEngine(func(*gin.Context) error { return errors.New("postgres down") })

	w := serve(engine, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "postgres down")
}

func TestAPIRoutesRequireToken(t *testing.T) {
	engine := newEngine(nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/slots"},
		{http.MethodPost, "/api/v1/slots/2b1f6a54-5f7e-4c39-9f0a-1f1f1f1f1f1f/bookings"},
		{http.MethodGet, "/api/v1/bookings/2b1f6a54-5f7e-4c39-9f0a-1f1f1f1f1f1f"},
		{http.MethodPost, "/api/v1/checkins"},
		{http.MethodPost, "/api/v1/bookings/2b1f6a54-5f7e-4c39-9f0a-1f1f1f1f1f1f/refund"},
		{http.MethodPost, "/api/v1/admin/refunds/2b1f6a54-5f7e-4c39-9f0a-1f1f1f1f1f1f/decision"},
	} {
		assert.Equal(t, http.StatusUnauthorized, serve(engine, tc.method, tc.path).Code, tc.path)
	}
}
