package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"visitly/internal/shared/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/", func(c *gin.Context) { RespondError(c, err) })
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestRespondError(t *testing.T) {
	t.Run("temporal errors carry window bounds", func(t *testing.T) {
		err := apperrors.Temporal(apperrors.CodeOutOfWindow, "outside check-in window").
			WithDetail("window_start", "2026-01-01T09:30:00Z")
		w := serve(err)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var body struct {
			Errors ErrorBody `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, apperrors.CodeOutOfWindow, body.Errors.Code)
		assert.Equal(t, "2026-01-01T09:30:00Z", body.Errors.Details["window_start"])
	})

	t.Run("untyped errors are hidden", func(t *testing.T) {
		w := serve(errors.New("pq: connection refused"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("payment required maps to 402", func(t *testing.T) {
		w := serve(apperrors.PaymentRequired("booking is not paid"))
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})
}
