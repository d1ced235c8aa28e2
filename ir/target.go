package ir

import (
	"regexp"
	"strings"
)

// TargetKind discriminates the three shapes a computed-field target path
// can take.
type TargetKind int

const (
	// TargetLocal names a field in the same frame.
	TargetLocal TargetKind = iota
	// TargetAncestor names a field in an ancestor frame ("../field",
	// "../../field", ...).
	TargetAncestor
	// TargetSelector names a specific array element by position or
	// correlation ("array[first<T>]", "array[last<T>]",
	// "array[corresponding<T>]").
	TargetSelector
)

// SelectorKind discriminates the three selector forms.
type SelectorKind int

const (
	SelectorFirst SelectorKind = iota
	SelectorLast
	SelectorCorresponding
)

// Selector identifies one element of an array field by position or by
// correlation with the current encoding iteration.
type Selector struct {
	ArrayField string
	Kind       SelectorKind
	TypeName   string
}

// Target is a parsed computed-field target path.
type Target struct {
	Kind TargetKind

	// FieldName is set for TargetLocal and TargetAncestor.
	FieldName string

	// AncestorDepth counts "../" segments for TargetAncestor (1 = parent,
	// 2 = grandparent, ...).
	AncestorDepth int

	Selector Selector // set for TargetSelector
}

var selectorPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\[(first|last|corresponding)<([A-Za-z_][A-Za-z0-9_]*)>\]$`)

// ParseTarget parses one of the three target path shapes. It never needs
// schema context: ancestor depth and selector
// shape are purely syntactic.
func ParseTarget(s string) (Target, error) {
	if s == "" {
		return Target{}, newCompileError(ErrMalformedTarget, "", "empty target path")
	}

	if m := selectorPattern.FindStringSubmatch(s); m != nil {
		var kind SelectorKind
		switch m[2] {
		case "first":
			kind = SelectorFirst
		case "last":
			kind = SelectorLast
		case "corresponding":
			kind = SelectorCorresponding
		}
		return Target{
			Kind: TargetSelector,
			Selector: Selector{
				ArrayField: m[1],
				Kind:       kind,
				TypeName:   m[3],
			},
		}, nil
	}

	if strings.HasPrefix(s, "../") {
		depth := 0
		rest := s
		for strings.HasPrefix(rest, "../") {
			depth++
			rest = rest[3:]
		}
		if rest == "" {
			return Target{}, newCompileError(ErrMalformedTarget, "", "ancestor target %q missing a field name", s)
		}
		return Target{Kind: TargetAncestor, FieldName: rest, AncestorDepth: depth}, nil
	}

	if strings.ContainsAny(s, "[]<>/") {
		return Target{}, newCompileError(ErrMalformedTarget, "", "malformed target path %q", s)
	}

	return Target{Kind: TargetLocal, FieldName: s}, nil
}
