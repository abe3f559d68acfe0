package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so callers can match on it and pick a localized message.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindForbidden       Kind = "forbidden"
	KindTemporal        Kind = "temporal"
	KindTransient       Kind = "transient"
	KindPaymentRequired Kind = "payment_required"
	KindDenied          Kind = "denied"
	KindInvalid         Kind = "invalid"
	KindInternal        Kind = "internal"
)

// Stable error codes surfaced to clients.
const (
	CodeSlotNotFound            = "SlotNotFound"
	CodeSlotUnavailable         = "SlotUnavailable"
	CodeSlotInPast              = "SlotInPast"
	CodeDuplicateBooking        = "DuplicateBooking"
	CodeBookingNotFound         = "BookingNotFound"
	CodeCodeGenerationExhausted = "CodeGenerationExhausted"
	CodeDecodeError             = "DecodeError"
	CodeScanPayloadMismatch     = "ScanPayloadMismatch"
	CodeNotSlotOrganizer        = "NotSlotOrganizer"
	CodeNotBookingOwner         = "NotBookingOwner"
	CodePaymentRequired         = "PaymentRequired"
	CodeOutOfWindow             = "OutOfWindow"
	CodeVisitNotCheckable       = "VisitNotCheckable"
	CodeNoPaymentToRefund       = "NoPaymentToRefund"
	CodeRefundAlreadyInProgress = "RefundAlreadyInProgress"
	CodeNonRefundableFee        = "NonRefundableFee"
	CodeRefundNotPending        = "RefundNotPending"
	CodeInvalidTransition       = "InvalidTransition"
	CodePaymentFailed           = "PaymentFailed"
	CodeInvalidInput            = "InvalidInput"
)

// Error is the typed error returned at component boundaries.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind and Code so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetail returns a copy of e with an extra detail attached.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error { return newError(KindValidation, code, message) }
func NotFound(code, message string) *Error   { return newError(KindNotFound, code, message) }
func Conflict(code, message string) *Error   { return newError(KindConflict, code, message) }
func Forbidden(code, message string) *Error  { return newError(KindForbidden, code, message) }
func Temporal(code, message string) *Error   { return newError(KindTemporal, code, message) }
func Denied(code, message string) *Error     { return newError(KindDenied, code, message) }
func Invalid(code, message string) *Error    { return newError(KindInvalid, code, message) }

func PaymentRequired(message string) *Error {
	return newError(KindPaymentRequired, CodePaymentRequired, message)
}

// Transient wraps a dispatch or gateway failure.
func Transient(code, message string, err error) *Error {
	e := newError(KindTransient, code, message)
	e.Err = err
	return e
}

// Internal wraps an unexpected storage or programming error.
func Internal(message string, err error) *Error {
	e := newError(KindInternal, "Internal", message)
	e.Err = err
	return e
}

// InternalUnlessTyped passes typed errors through and wraps anything else
// as Internal with msg.
func InternalUnlessTyped(err error, msg string) error {
	if _, ok := As(err); ok {
		return err
	}
	return Internal(msg, err)
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal if err is untyped.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// HTTPStatus maps a Kind to the response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindTemporal, KindDenied, KindInvalid:
		return http.StatusUnprocessableEntity
	case KindPaymentRequired:
		return http.StatusPaymentRequired
	case KindTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
