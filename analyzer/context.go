package analyzer

import "github.com/binschema/binschema/ir"

// needsEncodeContextTransitive reports whether the named type must be
// passed an *runtime.EncodingContext during encode: it has a computed
// field or conditional targeting an ancestor or a selector, it tracks
// array positions itself, it contains a back-reference, or it transitively
// nests a type for which any of that is true.
func needsEncodeContextTransitive(a *Annotated, name string, memo map[string]bool, path []string) bool {
	if v, ok := memo[name]; ok {
		return v
	}
	for _, p := range path {
		if p == name {
			return false
		}
	}
	info := a.Types[name]
	if info == nil {
		return false
	}
	if info.ContainsBackReference || len(info.PositionTracked) > 0 {
		memo[name] = true
		return true
	}
	def := a.Schema.Types[name]
	if def == nil {
		memo[name] = false
		return false
	}
	path = append(path, name)
	result := false

	switch def.Kind {
	case ir.TypeComposite:
		if def.Composite != nil {
			for _, f := range def.Composite.Sequence {
				if f.Computed != nil && targetNeedsContext(f.Computed.Target) {
					result = true
					break
				}
				if targetNeedsContext(f.Conditional) {
					result = true
					break
				}
				if fieldTypeNeedsEncodeContext(a, &f.Type, memo, path) {
					result = true
					break
				}
			}
			if !result {
				for _, inst := range def.Composite.Instances {
					if fieldTypeNeedsEncodeContext(a, &inst.Type, memo, path) {
						result = true
						break
					}
				}
			}
		}
	case ir.TypeAlias:
		if def.Alias != nil {
			result = fieldTypeNeedsEncodeContext(a, def.Alias, memo, path)
		}
	case ir.TypeUnion:
		if def.Union != nil {
			for _, v := range def.Union.Variants {
				if needsEncodeContextTransitive(a, v.TypeName, memo, path) {
					result = true
					break
				}
			}
		}
	}

	memo[name] = result
	return result
}

func targetNeedsContext(s string) bool {
	if s == "" {
		return false
	}
	tgt, err := ir.ParseTarget(s)
	if err != nil {
		return false
	}
	return tgt.Kind == ir.TargetAncestor || tgt.Kind == ir.TargetSelector
}

func fieldTypeNeedsEncodeContext(a *Annotated, ft *ir.FieldType, memo map[string]bool, path []string) bool {
	switch ft.Kind {
	case ir.KindRef:
		return needsEncodeContextTransitive(a, ft.RefName, memo, path)
	case ir.KindBitfield:
		for _, sf := range ft.SubFields {
			if sf.Computed != nil && targetNeedsContext(sf.Computed.Target) {
				return true
			}
			if fieldTypeNeedsEncodeContext(a, &sf.Type, memo, path) {
				return true
			}
		}
	case ir.KindArray:
		if ft.Array != nil && ft.Array.Items != nil {
			return fieldTypeNeedsEncodeContext(a, ft.Array.Items, memo, path)
		}
	case ir.KindOptional:
		if ft.Optional != nil && ft.Optional.Value != nil {
			return fieldTypeNeedsEncodeContext(a, ft.Optional.Value, memo, path)
		}
	case ir.KindInlineUnion:
		if ft.Union != nil {
			for _, v := range ft.Union.Variants {
				if needsEncodeContextTransitive(a, v.TypeName, memo, path) {
					return true
				}
			}
		}
	}
	return false
}
