package codegen

import (
	"strings"
	"unicode"
)

// toGoName converts a schema-level snake_case (or already-PascalCase) name
// to an exported Go identifier.
func toGoName(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		b.WriteRune(unicode.ToUpper(runes[0]))
		if len(runes) > 1 {
			b.WriteString(string(runes[1:]))
		}
	}
	return b.String()
}

// toGoUnexported is toGoName with a lowercased first rune, used for local
// variables derived from field names.
func toGoUnexported(name string) string {
	g := toGoName(name)
	if g == "" {
		return g
	}
	runes := []rune(g)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
