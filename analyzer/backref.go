package analyzer

import "github.com/binschema/binschema/ir"

// containsBackRefTransitive reports whether the named type, or anything it
// nests (directly or through refs/arrays/optionals/unions), contains a
// back_reference field. The path slice guards against recursive type
// graphs (trees, linked lists via ref) that ir.Validate permits.
func containsBackRefTransitive(s *ir.Schema, name string, memo map[string]bool, path []string) bool {
	if v, ok := memo[name]; ok {
		return v
	}
	for _, p := range path {
		if p == name {
			return false
		}
	}
	def, ok := s.Types[name]
	if !ok {
		return false
	}
	path = append(path, name)
	result := false

	switch def.Kind {
	case ir.TypeComposite:
		if def.Composite != nil {
			for _, f := range def.Composite.Sequence {
				if fieldTypeContainsBackRef(s, &f.Type, memo, path) {
					result = true
					break
				}
			}
			if !result {
				for _, inst := range def.Composite.Instances {
					if fieldTypeContainsBackRef(s, &inst.Type, memo, path) {
						result = true
						break
					}
				}
			}
		}
	case ir.TypeAlias:
		if def.Alias != nil {
			result = fieldTypeContainsBackRef(s, def.Alias, memo, path)
		}
	case ir.TypeUnion:
		if def.Union != nil {
			for _, v := range def.Union.Variants {
				if containsBackRefTransitive(s, v.TypeName, memo, path) {
					result = true
					break
				}
			}
		}
	}

	memo[name] = result
	return result
}

func fieldTypeContainsBackRef(s *ir.Schema, ft *ir.FieldType, memo map[string]bool, path []string) bool {
	switch ft.Kind {
	case ir.KindBackReference:
		return true
	case ir.KindRef:
		return containsBackRefTransitive(s, ft.RefName, memo, path)
	case ir.KindBitfield:
		for _, sf := range ft.SubFields {
			if fieldTypeContainsBackRef(s, &sf.Type, memo, path) {
				return true
			}
		}
	case ir.KindArray:
		if ft.Array != nil && ft.Array.Items != nil {
			return fieldTypeContainsBackRef(s, ft.Array.Items, memo, path)
		}
	case ir.KindOptional:
		if ft.Optional != nil && ft.Optional.Value != nil {
			return fieldTypeContainsBackRef(s, ft.Optional.Value, memo, path)
		}
	case ir.KindInlineUnion:
		if ft.Union != nil {
			for _, v := range ft.Union.Variants {
				if containsBackRefTransitive(s, v.TypeName, memo, path) {
					return true
				}
			}
		}
	}
	return false
}
