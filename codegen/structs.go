package codegen

import (
	"fmt"

	"github.com/binschema/binschema/ir"
)

// structField is one rendered struct member.
type structField struct {
	Name string
	Type string
}

// inputViewFields lists the struct members of a composite's Input view:
// the sequence minus computed and const fields (and padding, which has no
// value at all).
func inputViewFields(tf *TypeFacts) []structField {
	var out []structField
	for _, ff := range tf.Fields {
		if ff.IsPadding() || ff.Computed != nil || ff.Const != nil {
			continue
		}
		out = append(out, structField{Name: ff.GoName, Type: ff.InputGoType})
	}
	return out
}

// outputViewFields lists the struct members of a composite's Output view:
// every sequence field plus the instance fields.
func outputViewFields(tf *TypeFacts) []structField {
	var out []structField
	for _, ff := range tf.Fields {
		if ff.IsPadding() {
			continue
		}
		out = append(out, structField{Name: ff.GoName, Type: ff.OutputGoType})
	}
	for _, ff := range tf.Instances {
		out = append(out, structField{Name: ff.GoName, Type: ff.OutputGoType})
	}
	return out
}

// emitCompositeDecls renders a composite's struct declarations: bitfield
// structs, inline-union interfaces, the Input/Output (or unified) structs,
// and the Output→Input conversion.
func (g *generator) emitCompositeDecls(tf *TypeFacts) error {
	for _, ff := range bitfieldFields(tf) {
		var fields []structField
		for _, sub := range ff.BitSubFields {
			if sub.Const != nil {
				// const sub-fields still appear so decode can surface them
				fields = append(fields, structField{Name: sub.GoName, Type: sub.OutputGoType})
				continue
			}
			fields = append(fields, structField{Name: sub.GoName, Type: sub.OutputGoType})
		}
		g.emitStruct(ff.IfaceName, fmt.Sprintf("%s is the %s bitfield of %s.", ff.IfaceName, ff.SchemaName, tf.GoName), fields)
	}

	for _, ff := range inlineUnionFields(tf) {
		g.emitIface(ff.IfaceName, fmt.Sprintf("%s is the union carried by %s.%s; its concrete type names the matched variant.", ff.IfaceName, tf.GoName, ff.GoName), ff.InlineUnion)
		g.emitUnionToInput(ff.IfaceName, ff.InlineUnion)
	}

	if !tf.Split() {
		g.emitStruct(tf.GoName, fmt.Sprintf("%s is the decoded form of the %s type; the same shape is accepted by Encode%s.", tf.GoName, tf.SchemaName, tf.GoName), outputViewFields(tf))
		return nil
	}

	g.emitStruct(tf.InputGoName, fmt.Sprintf("%s is the caller-supplied view of %s: computed and const fields are derived at encode time and omitted here.", tf.InputGoName, tf.SchemaName), inputViewFields(tf))
	g.emitStruct(tf.OutputGoName, fmt.Sprintf("%s is the decoded view of %s, carrying every on-wire field.", tf.OutputGoName, tf.SchemaName), outputViewFields(tf))
	return g.emitConversion(tf)
}

func (g *generator) emitStruct(name, doc string, fields []structField) {
	w := newBody(0)
	w.pf("// %s", doc)
	w.pf("type %s struct {", name)
	w.in()
	for _, f := range fields {
		w.pf("%s %s", f.Name, f.Type)
	}
	w.out()
	w.pf("}")
	w.pf("")
	g.decls.WriteString(w.String())
}

func (g *generator) emitIface(name, doc string, uf *UnionFacts) {
	w := newBody(0)
	w.pf("// %s", doc)
	w.pf("type %s interface {", name)
	w.in()
	w.pf("is%s()", name)
	w.out()
	w.pf("}")
	w.pf("")
	seen := map[string]bool{}
	for _, v := range uf.Variants {
		for _, impl := range []string{v.InputGoType, v.OutputGoType} {
			if seen[impl] {
				continue
			}
			seen[impl] = true
			w2 := newBody(0)
			w2.pf("func (%s) is%s() {}", impl, name)
			w.sb.WriteString(w2.String())
		}
	}
	w.pf("")
	g.decls.WriteString(w.String())
}

// emitUnionToInput renders the helper converting a union value's Output
// variants back to their Input views, used by enclosing conversions. Skipped
// when no variant splits.
func (g *generator) emitUnionToInput(name string, uf *UnionFacts) {
	any := false
	for _, v := range uf.Variants {
		if v.InputGoType != v.OutputGoType {
			any = true
		}
	}
	if !any {
		return
	}
	w := newBody(0)
	w.pf("// toInput%s maps decoded %s variants back to their encode-side views.", name, name)
	w.pf("func toInput%s(v %s) %s {", name, name, name)
	w.in()
	w.pf("switch u := v.(type) {")
	for _, v := range uf.Variants {
		if v.InputGoType == v.OutputGoType {
			continue
		}
		w.pf("case %s:", v.OutputGoType)
		w.in()
		w.pf("return u.Input()")
		w.out()
	}
	w.pf("default:")
	w.in()
	w.pf("return v")
	w.out()
	w.pf("}")
	w.out()
	w.pf("}")
	w.pf("")
	g.decls.WriteString(w.String())
}

// emitConversion renders the total Output→Input conversion for a split
// composite.
func (g *generator) emitConversion(tf *TypeFacts) error {
	w := newBody(0)
	w.pf("// Input drops %s's derived fields, yielding the value that would", tf.OutputGoName)
	w.pf("// re-encode to the same bytes.")
	w.pf("func (o %s) Input() %s {", tf.OutputGoName, tf.InputGoName)
	w.in()
	defer func() {
		w.out()
		w.pf("}")
		w.pf("")
		g.decls.WriteString(w.String())
	}()
	w.pf("var r %s", tf.InputGoName)
	for _, ff := range tf.Fields {
		if ff.IsPadding() || ff.Computed != nil || ff.Const != nil {
			continue
		}
		if err := g.emitFieldConversion(w, tf, ff, "r."+ff.GoName, "o."+ff.GoName); err != nil {
			return err
		}
	}
	w.pf("return r")
	return nil
}

func (g *generator) emitFieldConversion(w *body, tf *TypeFacts, ff *FieldFacts, dst, src string) error {
	// Union-valued fields share one interface type across views, but the
	// decoded value holds Output variants; route through the toInput helper
	// when any variant splits.
	if helper := g.unionConversionHelper(ff); helper != "" {
		if ff.Type.Kind == ir.KindArray {
			w.pf("%s = make(%s, 0, len(%s))", dst, ff.InputGoType, src)
			w.pf("for _, e := range %s {", src)
			w.in()
			w.pf("%s = append(%s, %s(e))", dst, dst, helper)
			w.out()
			w.pf("}")
		} else {
			w.pf("%s = %s(%s)", dst, helper, src)
		}
		return nil
	}

	if ff.InputGoType == ff.OutputGoType {
		w.pf("%s = %s", dst, src)
		return nil
	}

	switch ff.Type.Kind {
	case ir.KindRef, ir.KindBackReference:
		w.pf("%s = %s.Input()", dst, src)
	case ir.KindArray:
		w.pf("%s = make(%s, 0, len(%s))", dst, ff.InputGoType, src)
		w.pf("for _, e := range %s {", src)
		w.in()
		w.pf("%s = append(%s, e.Input())", dst, dst)
		w.out()
		w.pf("}")
	case ir.KindOptional:
		w.pf("if %s != nil {", src)
		w.in()
		w.pf("t := %s.Input()", src)
		w.pf("%s = &t", dst)
		w.out()
		w.pf("}")
	default:
		return fmt.Errorf("codegen: no conversion strategy for field %q (%s -> %s)", ff.SchemaName, ff.OutputGoType, ff.InputGoType)
	}
	return nil
}

// unionConversionHelper names the toInput helper a field's conversion must
// route through, or "" when none applies.
func (g *generator) unionConversionHelper(ff *FieldFacts) string {
	target := ff
	if ff.Type.Kind == ir.KindArray {
		target = ff.Items
	}
	if target == nil {
		return ""
	}
	var name string
	var uf *UnionFacts
	switch target.Type.Kind {
	case ir.KindInlineUnion:
		name, uf = target.IfaceName, target.InlineUnion
	case ir.KindRef:
		def := g.ann.Schema.Types[target.Type.RefName]
		if def == nil || def.Kind != ir.TypeUnion {
			return ""
		}
		utf, err := g.factsOf(target.Type.RefName)
		if err != nil {
			return ""
		}
		name, uf = utf.GoName, utf.Union
	default:
		return ""
	}
	for _, v := range uf.Variants {
		if v.InputGoType != v.OutputGoType {
			return "toInput" + name
		}
	}
	return ""
}

func bitfieldFields(tf *TypeFacts) []*FieldFacts {
	var out []*FieldFacts
	for _, ff := range tf.Fields {
		if ff.Type.Kind == ir.KindBitfield {
			out = append(out, ff)
		}
	}
	return out
}

// emitAliasDecl renders the type alias declaration(s) for an alias type.
func (g *generator) emitAliasDecl(tf *TypeFacts) {
	w := newBody(0)
	if tf.Alias.InputGoType != tf.Alias.OutputGoType {
		w.pf("// %sInput and %sOutput are the two views of the %s alias.", tf.GoName, tf.GoName, tf.SchemaName)
		w.pf("type %sInput = %s", tf.GoName, tf.Alias.InputGoType)
		w.pf("")
		w.pf("type %sOutput = %s", tf.GoName, tf.Alias.OutputGoType)
	} else {
		w.pf("// %s is the %s alias.", tf.GoName, tf.SchemaName)
		w.pf("type %s = %s", tf.GoName, tf.Alias.OutputGoType)
	}
	w.pf("")
	g.decls.WriteString(w.String())
}
