package response

import (
	"net/http"

	"visitly/internal/shared/apperrors"
	"visitly/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError maps a typed error to its HTTP status. Untyped errors become 500s
// without leaking their text.
func RespondError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Kind == apperrors.KindInternal {
		logger.GetDefault().LogHTTPError(c, err, http.StatusInternalServerError)
		RespondJSON(c, "error", http.StatusInternalServerError, "internal server error", nil, nil)
		return
	}

	code := apperrors.HTTPStatus(appErr.Kind)
	if code >= http.StatusInternalServerError {
		logger.GetDefault().LogHTTPError(c, err, code)
	}
	RespondJSON(c, "error", code, appErr.Message, nil, ErrorBody{
		Kind:    string(appErr.Kind),
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}
