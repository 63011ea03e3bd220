package services

import "net/http"

// Error codes surfaced to callers so route handlers and clients can branch
// without string-matching messages.
const (
	CodeInsufficientStock   = "insufficient_stock"
	CodeProductNotFound     = "product_not_found"
	CodeProductInactive     = "product_inactive"
	CodeExceedsMaxStock     = "exceeds_max_stock"
	CodeNegativeStock       = "negative_stock"
	CodeContention          = "contention"
	CodeAlreadyTerminal     = "already_terminal"
	CodeReservationNotFound = "reservation_not_found"
	CodeInvalidOwner        = "invalid_owner"
	CodeDuplicateProduct    = "duplicate_product"
	CodeInvalidThresholds   = "invalid_thresholds"
	CodeInternal            = "internal_error"
)

// ServiceError is a typed error with an HTTP status code, a stable machine
// code, and structured detail (e.g. available vs requested) so the caller
// can offer a corrective action.
type ServiceError struct {
	StatusCode int                    `json:"-"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

func newError(status int, code, message string) *ServiceError {
	return &ServiceError{StatusCode: status, Code: code, Message: message}
}

func (e *ServiceError) withDetails(details map[string]interface{}) *ServiceError {
	e.Details = details
	return e
}

func internalError(message string) *ServiceError {
	return newError(http.StatusInternalServerError, CodeInternal, message)
}

func contentionError() *ServiceError {
	return newError(http.StatusConflict, CodeContention,
		"Stock record is under heavy contention, please retry")
}
