package gallery

import (
	"github.com/tphakala/pixalb/internal/errors"
)

// ErrorKind tags the failure modes of the gallery layer.
type ErrorKind int

const (
	KindNoConnection ErrorKind = iota + 1
	KindUnsuccessfulRequest
	KindUnsuccessfulDatabaseAccess
	KindMissingEntry
	KindMissingPage
	KindEntryCap
	KindNotFound
	KindInvalidRequest
	KindClosed
)

var kindNames = map[ErrorKind]string{
	KindNoConnection:               "no_connection",
	KindUnsuccessfulRequest:        "unsuccessful_request",
	KindUnsuccessfulDatabaseAccess: "unsuccessful_database_access",
	KindMissingEntry:               "missing_entry",
	KindMissingPage:                "missing_page",
	KindEntryCap:                   "entry_cap",
	KindNotFound:                   "not_found",
	KindInvalidRequest:             "invalid_request",
	KindClosed:                     "closed",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is the tagged error returned by every gallery component and carried
// by Error states. Match kinds with errors.Is against the Err* values.
type Error struct {
	Kind  ErrorKind
	Cause error
}

// Sentinels for errors.Is. They carry no cause.
var (
	ErrNoConnection               = &Error{Kind: KindNoConnection}
	ErrUnsuccessfulRequest        = &Error{Kind: KindUnsuccessfulRequest}
	ErrUnsuccessfulDatabaseAccess = &Error{Kind: KindUnsuccessfulDatabaseAccess}
	ErrMissingEntry               = &Error{Kind: KindMissingEntry}
	ErrMissingPage                = &Error{Kind: KindMissingPage}
	ErrEntryCap                   = &Error{Kind: KindEntryCap}
	ErrNotFound                   = &Error{Kind: KindNotFound}
	ErrInvalidRequest             = &Error{Kind: KindInvalidRequest}
	ErrClosed                     = &Error{Kind: KindClosed}
)

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return "gallery: " + e.Kind.String()
	}
	return "gallery: " + e.Kind.String() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a gallery error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// ErrorCategory implements errors.CategorizedError.
func (e *Error) ErrorCategory() errors.ErrorCategory {
	switch e.Kind {
	case KindNoConnection:
		return errors.CategoryNetwork
	case KindUnsuccessfulRequest:
		return errors.CategoryHTTP
	case KindUnsuccessfulDatabaseAccess:
		return errors.CategoryDatabase
	case KindMissingEntry, KindMissingPage:
		return errors.CategoryCache
	case KindEntryCap:
		return errors.CategoryLimit
	case KindNotFound:
		return errors.CategoryNotFound
	case KindInvalidRequest:
		return errors.CategoryValidation
	case KindClosed:
		return errors.CategoryState
	default:
		return errors.CategoryGeneric
	}
}

// KindOf returns the kind of the first gallery error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return 0, false
}
