package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or dependency violation.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates a malformed identifier or field.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized covers missing, invalid or expired credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller touching a resource it does not own.
	ErrForbidden = errors.New("forbidden")
	// ErrUpstream indicates a failure of an external service.
	ErrUpstream = errors.New("upstream failure")
	// ErrStorage indicates a document store failure.
	ErrStorage = errors.New("storage failure")
)

// Error is a domain failure with a caller-facing message and a taxonomy kind.
type Error struct {
	Kind    error
	Message string
}

// NewError builds an Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" && e.Kind != nil {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// UserSafeMessage returns the message that may be shown to API callers.
func UserSafeMessage(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Error()
	}
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrUnauthorized, ErrForbidden, ErrUpstream} {
		if errors.Is(err, kind) {
			return err.Error()
		}
	}
	return "internal error"
}
