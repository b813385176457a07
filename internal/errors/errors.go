package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNotFound is returned when a user id does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrPaymentNotFound is returned when a payment id does not exist.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrClientNotFound is returned when a payment references a missing or non-client user.
	ErrClientNotFound = errors.New("client not found")
	// ErrDuplicateUsername is returned when the username is already taken by any user.
	ErrDuplicateUsername = errors.New("username already in use")
	// ErrDuplicateCode is returned when the code is already taken within the same role.
	ErrDuplicateCode = errors.New("code already in use for this role")
	// ErrDuplicatePaymentItem is returned when the client already has a payment
	// with the same category and concept.
	ErrDuplicatePaymentItem = errors.New("payment already registered for this item")
	// ErrInvalidAmount is returned when an amount is negative or not a number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidAttachment is returned when image bytes and image type are not
	// supplied (or cleared) together.
	ErrInvalidAttachment = errors.New("image and image type must be provided together")
	// ErrInvalidRole is returned when an unknown role is supplied.
	ErrInvalidRole = errors.New("invalid role")
	// ErrForbidden is returned when the principal may not perform the operation.
	ErrForbidden = errors.New("operation not allowed for this role")
	// ErrInvalidCredentials is returned when username or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrPaymentNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "PAYMENT_NOT_FOUND")
	case errors.Is(err, ErrClientNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "CLIENT_NOT_FOUND")
	case errors.Is(err, ErrDuplicateUsername):
		return NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_USERNAME")
	case errors.Is(err, ErrDuplicateCode):
		return NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_CODE")
	case errors.Is(err, ErrDuplicatePaymentItem):
		return NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_PAYMENT_ITEM")
	case errors.Is(err, ErrInvalidAmount):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_AMOUNT")
	case errors.Is(err, ErrInvalidAttachment):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_ATTACHMENT")
	case errors.Is(err, ErrInvalidRole):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_ROLE")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
