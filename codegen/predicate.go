package codegen

import (
	"fmt"
	"strings"
)

// predicateEnv tells translatePredicate how to resolve the identifiers a
// `when` or `conditional` expression references.
type predicateEnv struct {
	// valueVar substitutes for the conventional `value` identifier in
	// peek-based union predicates and field-based discriminator checks.
	valueVar string
	// fieldExpr resolves a bare field name to a Go expression over the
	// current frame ("v.Foo" on both encode and decode).
	fieldExpr func(name string) string
	// ancestor emits pre-statements resolving "../name" to a local variable
	// and returns the expression to use; nil means ancestor references are
	// rejected.
	ancestor func(w *body, depth int, name string) (string, error)
}

// translatePredicate rewrites a schema predicate ("value == 0x01",
// "flags >= 0xC0 && version != 0", "../count > 0") into a Go boolean
// expression, emitting any required lookup statements to w. The operator
// set a schema may use is already Go syntax, so only identifiers are
// rewritten.
func translatePredicate(w *body, pred string, env predicateEnv) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(pred) {
		c := pred[i]
		switch {
		case c == '.' && strings.HasPrefix(pred[i:], "../"):
			depth := 0
			for strings.HasPrefix(pred[i:], "../") {
				depth++
				i += 3
			}
			start := i
			for i < len(pred) && isIdentChar(pred[i]) {
				i++
			}
			name := pred[start:i]
			if name == "" {
				return "", fmt.Errorf("codegen: ancestor reference missing field name in predicate %q", pred)
			}
			if env.ancestor == nil {
				return "", fmt.Errorf("codegen: ancestor reference %q not allowed in this predicate position", name)
			}
			expr, err := env.ancestor(w, depth, name)
			if err != nil {
				return "", err
			}
			out.WriteString(expr)
		case c >= '0' && c <= '9':
			start := i
			i++
			if c == '0' && i < len(pred) && (pred[i] == 'x' || pred[i] == 'X') {
				i++
			}
			for i < len(pred) && isNumChar(pred[i]) {
				i++
			}
			out.WriteString(pred[start:i])
		case isIdentStart(c):
			start := i
			for i < len(pred) && isIdentChar(pred[i]) {
				i++
			}
			name := pred[start:i]
			switch name {
			case "value":
				if env.valueVar != "" {
					out.WriteString(env.valueVar)
					continue
				}
				fallthrough
			case "true", "false":
				if name == "true" || name == "false" {
					out.WriteString(name)
					continue
				}
				fallthrough
			default:
				if env.fieldExpr == nil {
					return "", fmt.Errorf("codegen: field reference %q not allowed in this predicate position", name)
				}
				out.WriteString(env.fieldExpr(name))
			}
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isNumChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '_'
}
