package errs

import (
	"github.com/pkg/errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrUnsupportedType    = errors.New("file type not allowed")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserInactive       = errors.New("user is inactive")
	ErrDuplicateIdentity  = errors.New("username or email already exists")
	ErrBookUnavailable    = errors.New("book is not available, not active, or does not exist")
	ErrNoActiveLoan       = errors.New("no active loan found for this book and user")
	ErrBookOnLoan         = errors.New("book is currently on loan and must be returned first")
	ErrUserHasOpenLoan    = errors.New("user has active loans, all books must be returned first")
	ErrAlreadyActive      = errors.New("already active")
)

type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "internal"
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrValidation, KindValidation},
	{ErrUnsupportedType, KindValidation},
	{ErrInvalidCredentials, KindAuth},
	{ErrUserInactive, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrDuplicateIdentity, KindConflict},
	{ErrBookUnavailable, KindConflict},
	{ErrNoActiveLoan, KindConflict},
	{ErrBookOnLoan, KindConflict},
	{ErrUserHasOpenLoan, KindConflict},
	{ErrAlreadyActive, KindConflict},
}

// KindOf classifies err. Anything unknown is internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Validation(msg string) error {
	return &ValidationError{Msg: msg}
}

// Message is the client-facing text of a classified error.
func Message(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Msg
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.err.Error()
		}
	}
	return "internal error"
}
