package runtime

import "fmt"

// Kind identifies one of the closed set of runtime error conditions the
// bit stream and emitted encode/decode routines can raise. The set is
// closed: codegen and the runtime never return a bare fmt.Errorf for a
// condition not represented here.
type Kind int

const (
	// EndOfStream is raised when a decoder attempts to read past the end
	// of its backing buffer.
	EndOfStream Kind = iota + 1
	// InvalidUTF8 is raised when a string field fails UTF-8 validation.
	InvalidUTF8
	// ConstMismatch is raised when a const field's decoded value differs
	// from its schema-declared literal. Recoverable: a union's try-decode
	// catches this and advances to the next variant.
	ConstMismatch
	// VariantRejection wraps a failed variant attempt during union
	// try-decode; it is always recoverable by the enclosing union.
	VariantRejection
	// NoVariantMatched is raised when every variant of a union has been
	// tried (or, for peek-based unions, every `when` predicate has failed)
	// with no match.
	NoVariantMatched
	// MissingContext is raised when a decode needed a parent field value
	// that the caller did not supply via DecodingContext.
	MissingContext
	// InvalidBackReference is raised when a back-reference's offset points
	// outside the already-decoded prefix of the message.
	InvalidBackReference
	// InvalidValue is the catch-all for malformed input: a value exceeding
	// its declared width, a negative value where the encoding is unsigned,
	// a corresponding-selector index out of bounds, a missing parent field
	// during computed-field resolution, and varlength overflow.
	InvalidValue
)

func (k Kind) String() string {
	switch k {
	case EndOfStream:
		return "EndOfStream"
	case InvalidUTF8:
		return "InvalidUtf8"
	case ConstMismatch:
		return "ConstMismatch"
	case VariantRejection:
		return "VariantRejection"
	case NoVariantMatched:
		return "NoVariantMatched"
	case MissingContext:
		return "MissingContext"
	case InvalidBackReference:
		return "InvalidBackReference"
	case InvalidValue:
		return "InvalidValue"
	default:
		return "Unknown"
	}
}

// Error is the single sum type every runtime-level failure is reported as.
// Codegen never constructs ad hoc error values; it always goes through
// New/Wrap so callers can type-switch or errors.Is/As against a closed set.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, if any (e.g. a nested variant's error)
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, runtime.ErrEndOfStream) style checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an existing error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsRecoverable reports whether err is one of the four kinds a union's
// try-each-variant loop catches and recovers from: ConstMismatch,
// VariantRejection, InvalidValue, EndOfStream. Anything else (most notably
// MissingContext and InvalidBackReference) propagates unchanged.
func IsRecoverable(err error) bool {
	var e *Error
	if !As(err, &e) {
		return false
	}
	switch e.Kind {
	case ConstMismatch, VariantRejection, InvalidValue, EndOfStream:
		return true
	default:
		return false
	}
}

// As is a small local alias over the stdlib errors.As so callers that only
// import this package can type-assert without an extra import; it mirrors
// the signature exactly.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Sentinel instances for errors.Is-style comparisons where only the Kind
// matters (Error.Is ignores Message/Err on the target side).
var (
	ErrEndOfStream          = &Error{Kind: EndOfStream}
	ErrInvalidUTF8          = &Error{Kind: InvalidUTF8}
	ErrConstMismatch        = &Error{Kind: ConstMismatch}
	ErrVariantRejection     = &Error{Kind: VariantRejection}
	ErrNoVariantMatched     = &Error{Kind: NoVariantMatched}
	ErrMissingContext       = &Error{Kind: MissingContext}
	ErrInvalidBackReference = &Error{Kind: InvalidBackReference}
	ErrInvalidValue         = &Error{Kind: InvalidValue}
)
