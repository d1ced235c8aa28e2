package codegen

import "github.com/binschema/binschema/ir"

// goTypeOf maps a schema field type to the Go type codegen emits for it.
// Only shapes reachable from a composite's Sequence/Instances are handled
// here; named references, union member types included, are resolved
// separately by refGoType in facts.go.
func goTypeOf(ft *ir.FieldType) string {
	switch ft.Kind {
	case ir.KindUint8:
		return "uint8"
	case ir.KindUint16:
		return "uint16"
	case ir.KindUint32:
		return "uint32"
	case ir.KindUint64:
		return "uint64"
	case ir.KindInt8:
		return "int8"
	case ir.KindInt16:
		return "int16"
	case ir.KindInt32:
		return "int32"
	case ir.KindInt64:
		return "int64"
	case ir.KindFloat32:
		return "float32"
	case ir.KindFloat64:
		return "float64"
	case ir.KindBit:
		if ft.BitWidth == 1 {
			return "bool"
		}
		return uintTypeForWidth(ft.BitWidth)
	case ir.KindBitfield:
		return "struct{}" // overwritten by facts.go once sub-fields are known
	case ir.KindVarlength:
		return "uint64"
	case ir.KindString:
		return "string"
	case ir.KindArray:
		if ft.Array != nil && ft.Array.Items != nil {
			return "[]" + goTypeOf(ft.Array.Items)
		}
		return "[]byte"
	case ir.KindOptional:
		if ft.Optional != nil && ft.Optional.Value != nil {
			return "*" + goTypeOf(ft.Optional.Value)
		}
		return "*struct{}"
	case ir.KindPadding:
		return ""
	case ir.KindRef:
		return toGoName(ft.RefName)
	case ir.KindBackReference:
		if ft.BackRef != nil {
			return toGoName(ft.BackRef.TargetType)
		}
		return "struct{}"
	case ir.KindInlineUnion:
		return "any" // tagged union value; concrete type asserted at use sites
	}
	return "any"
}

// uintTypeForWidth picks the smallest unsigned integer type that can hold
// a bit-field of the given width.
func uintTypeForWidth(width int) string {
	switch {
	case width <= 8:
		return "uint8"
	case width <= 16:
		return "uint16"
	case width <= 32:
		return "uint32"
	default:
		return "uint64"
	}
}
