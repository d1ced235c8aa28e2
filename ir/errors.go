package ir

import "fmt"

// CompileErrorKind closes the set of schema-malformedness conditions the
// analyzer and validator can report. These are distinct from runtime
// errors (runtime.Error): they surface before any byte is encoded or
// decoded.
type CompileErrorKind int

const (
	ErrUndefinedTypeRef CompileErrorKind = iota + 1
	ErrAliasCycle
	ErrSelfReference
	ErrMalformedTarget
	ErrUnimplementedFeature
	ErrInvalidDiscriminator
	ErrInvalidComputedSpec
)

func (k CompileErrorKind) String() string {
	switch k {
	case ErrUndefinedTypeRef:
		return "UndefinedTypeRef"
	case ErrAliasCycle:
		return "AliasCycle"
	case ErrSelfReference:
		return "SelfReference"
	case ErrMalformedTarget:
		return "MalformedTarget"
	case ErrUnimplementedFeature:
		return "UnimplementedFeature"
	case ErrInvalidDiscriminator:
		return "InvalidDiscriminator"
	case ErrInvalidComputedSpec:
		return "InvalidComputedSpec"
	default:
		return "Unknown"
	}
}

// CompileError is a schema-level error: malformed schema, undefined type
// reference, circular alias, or an unimplemented combination of features.
type CompileError struct {
	Kind    CompileErrorKind
	TypeName string
	Message string
}

func (e *CompileError) Error() string {
	if e.TypeName != "" {
		return fmt.Sprintf("%s (type %q): %s", e.Kind, e.TypeName, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newCompileError(kind CompileErrorKind, typeName, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, TypeName: typeName, Message: fmt.Sprintf(format, args...)}
}
