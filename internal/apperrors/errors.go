package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrStorage             = errors.New("storage failure")
	ErrStoreUnavailable    = errors.New("order store not configured")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrOrderNotCompleted   = errors.New("order not completed")
	ErrGatewayAuthFailed   = errors.New("payment gateway authentication failed")
	ErrGatewayCreateFailed = errors.New("payment gateway order creation failed")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
)

// Validation codes returned to API callers.
const (
	CodeMissingFields     = "MISSING_FIELDS"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeUnknownTicketType = "UNKNOWN_TICKET_TYPE"
	CodeMissingToken      = "MISSING_TOKEN"
	CodeMissingOrder      = "MISSING_ORDER"
	CodeBadJSON           = "BAD_JSON"
)

// ValidationError is a caller mistake. It always unwraps to ErrValidation.
type ValidationError struct {
	Code    string   `json:"code"`
	Message string   `json:"error"`
	Fields  []string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidation(code, message string, fields ...string) *ValidationError {
	return &ValidationError{Code: code, Message: message, Fields: fields}
}

// HTTPStatus maps a service error to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrOrderNotCompleted):
		return http.StatusConflict
	case errors.Is(err, ErrGatewayAuthFailed),
		errors.Is(err, ErrGatewayCreateFailed),
		errors.Is(err, ErrGatewayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the error text safe to show an API caller.
func PublicMessage(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrOrderNotCompleted):
		return "Order not completed"
	case errors.Is(err, ErrGatewayAuthFailed):
		return "PayU auth failed"
	case errors.Is(err, ErrGatewayCreateFailed):
		return "PayU create order failed"
	case errors.Is(err, ErrGatewayUnavailable):
		return "PayU unavailable"
	case errors.Is(err, ErrStoreUnavailable):
		return "Order store not configured"
	default:
		return "Internal error"
	}
}
