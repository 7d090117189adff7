package errors

import "fmt"

type ErrorCode string

const (
	ErrInternalServer             ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrInvalidInput               ErrorCode = "INVALID_INPUT"
	ErrInvalidRequestData         ErrorCode = "INVALID_REQUEST_DATA"
	ErrUnauthorized               ErrorCode = "UNAUTHORIZED"
	ErrForbidden                  ErrorCode = "FORBIDDEN"
	ErrNotFound                   ErrorCode = "NOT_FOUND"
	ErrAlreadyExists              ErrorCode = "ALREADY_EXISTS"
	ErrTokenExpired               ErrorCode = "TOKEN_EXPIRED"
	ErrInvalidTokenFormat         ErrorCode = "INVALID_TOKEN_FORMAT"
	ErrMissingAuthorizationHeader ErrorCode = "MISSING_AUTHORIZATION_HEADER"

	// Calendar sync
	ErrNoLinkedAccount ErrorCode = "NO_LINKED_ACCOUNT"
	ErrNoRefreshToken  ErrorCode = "NO_REFRESH_TOKEN"
	ErrRemoteAPI       ErrorCode = "REMOTE_API_ERROR"
	ErrSyncInProgress  ErrorCode = "SYNC_IN_PROGRESS"
)

// AppError is the application-level error carried across service boundaries.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the ErrorCode from err, or ErrInternalServer when err is
// not an AppError.
func CodeOf(err error) ErrorCode {
	if ae, ok := err.(*AppError); ok && ae != nil {
		return ae.Code
	}
	return ErrInternalServer
}
