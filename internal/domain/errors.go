package domain

import "fmt"

// APIError is a wire-visible error. Name becomes the "__type" field of the
// JSON error body; Message becomes "message". Match with errors.Is against
// the sentinel kinds below - never compare error strings.
type APIError struct {
	Name    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is reports whether target is an APIError of the same kind. This lets
// errors.Is(err, domain.ErrUserNotFound) match regardless of message.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Name == e.Name
}

// Wire error names. These appear verbatim in the "__type" response field.
const (
	NameResourceNotFound          = "ResourceNotFoundError"
	NameUserNotFound              = "UserNotFoundError"
	NameUsernameExists            = "UsernameExistsError"
	NameNotAuthorized             = "NotAuthorizedError"
	NameInvalidPassword           = "InvalidPasswordError"
	NamePasswordResetRequired     = "PasswordResetRequiredError"
	NameCodeMismatch              = "CodeMismatchError"
	NameInvalidParameter          = "InvalidParameterError"
	NameUnsupported               = "UnsupportedError"
	NameUnexpectedLambdaException = "UnexpectedLambdaExceptionError"
	NameInvalidLambdaResponse     = "InvalidLambdaResponseError"
	NameUserLambdaValidation      = "UserLambdaValidationError"
)

// Sentinel kinds for errors.Is matching. The messages here are generic
// fallbacks; handlers construct specific messages via the helpers below.
var (
	ErrResourceNotFound          = &APIError{Name: NameResourceNotFound, Message: "Resource not found."}
	ErrUserNotFound              = &APIError{Name: NameUserNotFound, Message: "User not found."}
	ErrUsernameExists            = &APIError{Name: NameUsernameExists, Message: "User already exists"}
	ErrNotAuthorized             = &APIError{Name: NameNotAuthorized, Message: "User not authorized"}
	ErrInvalidPassword           = &APIError{Name: NameInvalidPassword, Message: "Invalid password"}
	ErrPasswordResetRequired     = &APIError{Name: NamePasswordResetRequired, Message: "Password reset required for the user"}
	ErrCodeMismatch              = &APIError{Name: NameCodeMismatch, Message: "Invalid verification code provided, please try again."}
	ErrInvalidParameter          = &APIError{Name: NameInvalidParameter, Message: "Invalid parameter"}
	ErrUnsupported               = &APIError{Name: NameUnsupported, Message: "Unsupported operation"}
	ErrUnexpectedLambdaException = &APIError{Name: NameUnexpectedLambdaException, Message: "Unexpected error when invoking lambda"}
	ErrInvalidLambdaResponse     = &APIError{Name: NameInvalidLambdaResponse, Message: "Invalid lambda response"}
	ErrUserLambdaValidation      = &APIError{Name: NameUserLambdaValidation, Message: "Lambda validation failed"}
)

// ResourceNotFound returns a ResourceNotFoundError with a specific message.
func ResourceNotFound(format string, args ...any) *APIError {
	return &APIError{Name: NameResourceNotFound, Message: fmt.Sprintf(format, args...)}
}

// UserNotFound returns a UserNotFoundError with a specific message.
func UserNotFound(format string, args ...any) *APIError {
	return &APIError{Name: NameUserNotFound, Message: fmt.Sprintf(format, args...)}
}

// NotAuthorized returns a NotAuthorizedError with a specific message.
func NotAuthorized(format string, args ...any) *APIError {
	return &APIError{Name: NameNotAuthorized, Message: fmt.Sprintf(format, args...)}
}

// InvalidParameter returns an InvalidParameterError with a specific message.
func InvalidParameter(format string, args ...any) *APIError {
	return &APIError{Name: NameInvalidParameter, Message: fmt.Sprintf(format, args...)}
}

// Unsupported returns an UnsupportedError with a specific message.
func Unsupported(format string, args ...any) *APIError {
	return &APIError{Name: NameUnsupported, Message: fmt.Sprintf(format, args...)}
}

// UserLambdaValidation returns a UserLambdaValidationError carrying the
// function error reported by the invoked trigger.
func UserLambdaValidation(format string, args ...any) *APIError {
	return &APIError{Name: NameUserLambdaValidation, Message: fmt.Sprintf(format, args...)}
}
