package analyzer

import "github.com/binschema/binschema/ir"

// sizeClassOf classifies a type's encoded size as Fixed (known at compile
// time) or Variable (must be measured at encode time). It is a codegen
// optimization hint only; it does not compute an actual byte width.
func sizeClassOf(s *ir.Schema, name string, memo map[string]SizeClass, path []string) SizeClass {
	if v, ok := memo[name]; ok {
		return v
	}
	for _, p := range path {
		if p == name {
			return SizeUnknown
		}
	}
	def, ok := s.Types[name]
	if !ok {
		return SizeUnknown
	}
	path = append(path, name)
	class := SizeFixed

	switch def.Kind {
	case ir.TypeComposite:
		if def.Composite == nil {
			class = SizeUnknown
			break
		}
		for _, f := range def.Composite.Sequence {
			if f.Conditional != "" {
				class = SizeVariable
				break
			}
			if fieldTypeSizeClass(s, &f.Type, memo, path) != SizeFixed {
				class = SizeVariable
				break
			}
		}
	case ir.TypeAlias:
		if def.Alias == nil {
			class = SizeUnknown
		} else {
			class = fieldTypeSizeClass(s, def.Alias, memo, path)
		}
	case ir.TypeUnion:
		if def.Union == nil || def.Union.ByteBudget != "" {
			class = SizeVariable
		} else {
			for _, v := range def.Union.Variants {
				if sizeClassOf(s, v.TypeName, memo, path) != SizeFixed {
					class = SizeVariable
					break
				}
			}
		}
	default:
		class = SizeUnknown
	}

	memo[name] = class
	return class
}

func fieldTypeSizeClass(s *ir.Schema, ft *ir.FieldType, memo map[string]SizeClass, path []string) SizeClass {
	switch ft.Kind {
	case ir.KindUint8, ir.KindUint16, ir.KindUint32, ir.KindUint64,
		ir.KindInt8, ir.KindInt16, ir.KindInt32, ir.KindInt64,
		ir.KindFloat32, ir.KindFloat64, ir.KindBit, ir.KindPadding:
		return SizeFixed
	case ir.KindBitfield:
		for _, sf := range ft.SubFields {
			if fieldTypeSizeClass(s, &sf.Type, memo, path) != SizeFixed {
				return SizeVariable
			}
		}
		return SizeFixed
	case ir.KindVarlength:
		return SizeVariable
	case ir.KindString:
		if ft.String != nil && ft.String.Kind == ir.StringFixed {
			return SizeFixed
		}
		return SizeVariable
	case ir.KindArray:
		if ft.Array != nil && ft.Array.Kind == ir.ArrayFixed && ft.Array.Items != nil {
			return fieldTypeSizeClass(s, ft.Array.Items, memo, path)
		}
		return SizeVariable
	case ir.KindOptional:
		return SizeVariable
	case ir.KindRef:
		return sizeClassOf(s, ft.RefName, memo, path)
	case ir.KindBackReference:
		return SizeFixed
	case ir.KindInlineUnion:
		if ft.Union == nil || ft.Union.ByteBudget != "" {
			return SizeVariable
		}
		for _, v := range ft.Union.Variants {
			if sizeClassOf(s, v.TypeName, memo, path) != SizeFixed {
				return SizeVariable
			}
		}
		return SizeFixed
	}
	return SizeUnknown
}
