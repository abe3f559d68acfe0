package response

type StandardApiResponse struct {
	Status     string      `json:"status"`           // "success" or "error"
	StatusCode int         `json:"status_code"`      // HTTP status code
	Message    string      `json:"message"`          // Human-readable message
	Data       interface{} `json:"data,omitempty"`   // Payload for success
	Errors     interface{} `json:"errors,omitempty"` // Validation or error details
}

// ErrorBody is the errors payload for typed failures
type ErrorBody struct {
	Kind    string                 `json:"kind"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}
