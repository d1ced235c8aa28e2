// Package docfmt renders a schema's types and fields as Markdown tables,
// backing the CLI's doc command.
package docfmt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/binschema/binschema/ir"
)

// Render produces one Markdown section per type: a heading and a table
// with one row per field (name, type, modifiers).
func Render(s *ir.Schema) string {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		def := s.Types[name]
		fmt.Fprintf(&sb, "## %s\n\n", name)
		switch def.Kind {
		case ir.TypeComposite:
			renderComposite(&sb, def.Composite)
		case ir.TypeAlias:
			fmt.Fprintf(&sb, "Alias of `%s`.\n\n", typeLabel(def.Alias))
		case ir.TypeUnion:
			renderUnion(&sb, def.Union)
		}
	}
	return sb.String()
}

func renderComposite(sb *strings.Builder, c *ir.Composite) {
	sb.WriteString("| Field | Type | Modifiers |\n|---|---|---|\n")
	for _, f := range c.Sequence {
		fmt.Fprintf(sb, "| %s | `%s` | %s |\n", f.Name, typeLabel(&f.Type), modifiers(&f))
	}
	for _, inst := range c.Instances {
		fmt.Fprintf(sb, "| %s | `%s` | instance @%s |\n", inst.Name, typeLabel(&inst.Type), offsetLabel(&inst.Offset))
	}
	sb.WriteString("\n")
}

func renderUnion(sb *strings.Builder, u *ir.UnionDef) {
	switch {
	case u.Discriminator == nil:
		sb.WriteString("Choice (try each variant in order).\n\n")
	case u.Discriminator.Kind == ir.DiscriminatorPeek:
		fmt.Fprintf(sb, "Discriminated by `peek<%s>`.\n\n", u.Discriminator.IntegerKind)
	default:
		fmt.Fprintf(sb, "Discriminated by parent field `%s`.\n\n", u.Discriminator.FieldName)
	}
	sb.WriteString("| Variant | When |\n|---|---|\n")
	for _, v := range u.Variants {
		when := v.When
		if when == "" {
			when = "(fallback)"
		}
		fmt.Fprintf(sb, "| %s | %s |\n", v.TypeName, when)
	}
	sb.WriteString("\n")
}

func modifiers(f *ir.Field) string {
	var mods []string
	if f.Const != nil {
		mods = append(mods, "const")
	}
	if f.Computed != nil {
		mods = append(mods, fmt.Sprintf("computed %s", f.Computed.Kind))
	}
	if f.Conditional != "" {
		mods = append(mods, fmt.Sprintf("if %s", f.Conditional))
	}
	if f.Endianness != "" {
		mods = append(mods, string(f.Endianness))
	}
	if len(mods) == 0 {
		return "—"
	}
	return strings.Join(mods, ", ")
}

func typeLabel(ft *ir.FieldType) string {
	switch ft.Kind {
	case ir.KindRef:
		return ft.RefName
	case ir.KindArray:
		if ft.Array != nil && ft.Array.Items != nil {
			return fmt.Sprintf("%s[%s]", ft.Array.Kind, typeLabel(ft.Array.Items))
		}
		return "array"
	case ir.KindString:
		if ft.String != nil {
			return fmt.Sprintf("string<%s,%s>", ft.String.Kind, ft.String.Encoding)
		}
		return "string"
	case ir.KindOptional:
		if ft.Optional != nil && ft.Optional.Value != nil {
			return "optional " + typeLabel(ft.Optional.Value)
		}
		return "optional"
	case ir.KindBackReference:
		if ft.BackRef != nil {
			return fmt.Sprintf("back_reference<%s>", ft.BackRef.TargetType)
		}
		return "back_reference"
	case ir.KindVarlength:
		return "varlength " + string(ft.Varlength)
	case ir.KindBit:
		return fmt.Sprintf("bit:%d", ft.BitWidth)
	case ir.KindInlineUnion:
		return "choice"
	default:
		return string(ft.Kind)
	}
}

func offsetLabel(o *ir.InstanceOffset) string {
	switch o.Kind {
	case ir.OffsetAbsolute:
		return fmt.Sprintf("%d", o.Value)
	case ir.OffsetNegativeFromEnd:
		return fmt.Sprintf("end-%d", o.Value)
	default:
		return "field " + o.Field
	}
}
