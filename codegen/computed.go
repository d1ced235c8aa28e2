package codegen

import (
	"fmt"

	"github.com/binschema/binschema/ir"
)

// computedValue emits statements deriving a computed field's value at
// encode time and returns the name of the uint64 variable holding it. The
// caller writes that value at the field's declared width. Content-first
// (`from_after_field`) length fields never reach here; the sequence
// renderer intercepts them.
func (g *generator) computedValue(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts) (string, error) {
	c := ff.Computed
	dest := g.tmp("cv")

	switch c.Kind {
	case ir.ComputedSumOfSizes:
		return dest, g.sumOfSizes(w, env, tf, c, dest)
	case ir.ComputedSumOfTypeSizes:
		return dest, g.sumOfTypeSizes(w, env, tf, c, dest)
	}

	tgt, err := ir.ParseTarget(c.Target)
	if err != nil {
		return "", err
	}

	switch tgt.Kind {
	case ir.TargetLocal:
		return dest, g.computedLocal(w, env, tf, ff, tgt.FieldName, dest)
	case ir.TargetAncestor:
		return dest, g.computedAncestor(w, env, tf, ff, tgt, dest)
	default:
		return dest, g.computedSelector(w, env, tf, ff, tgt, dest)
	}
}

func (g *generator) computedLocal(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, target, dest string) error {
	sibling := tf.fieldByName(target)
	if sibling == nil {
		return fmt.Errorf("codegen: %s.%s: computed target %q not in sequence", tf.SchemaName, ff.SchemaName, target)
	}
	val := "v." + sibling.GoName

	switch ff.Computed.Kind {
	case ir.ComputedLengthOf:
		switch {
		case sibling.Type.Kind == ir.KindString:
			w.pf("%s := uint64(len(%s))", dest, val)
		case isByteArray(sibling.Type):
			w.pf("%s := uint64(len(%s))", dest, val)
		case sibling.Type.Kind.IsIntegerPrimitive() || sibling.Type.Kind == ir.KindVarlength:
			w.pf("%s := uint64(%s)", dest, val)
		default:
			mb, err := g.measureField(w, env, tf, sibling, val)
			if err != nil {
				return err
			}
			w.pf("%s := uint64(len(%s))", dest, mb)
		}
	case ir.ComputedCountOf:
		w.pf("%s := uint64(len(%s))", dest, val)
	case ir.ComputedCRC32Of:
		switch {
		case sibling.Type.Kind == ir.KindString:
			w.pf("%s := uint64(runtime.CRC32([]byte(%s)))", dest, val)
		case isByteArray(sibling.Type):
			w.pf("%s := uint64(runtime.CRC32(%s))", dest, val)
		default:
			mb, err := g.measureField(w, env, tf, sibling, val)
			if err != nil {
				return err
			}
			w.pf("%s := uint64(runtime.CRC32(%s))", dest, mb)
		}
	case ir.ComputedPositionOf:
		pos, ok := g.curPosCaptures[target]
		if !ok {
			return fmt.Errorf("codegen: %s.%s: position_of %q requires the target to precede the computed field", tf.SchemaName, ff.SchemaName, target)
		}
		w.pf("%s := uint64(%s)", dest, pos)
	default:
		return fmt.Errorf("codegen: %s.%s: unsupported computed kind %q for local target", tf.SchemaName, ff.SchemaName, ff.Computed.Kind)
	}
	return nil
}

func (g *generator) computedAncestor(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, tgt ir.Target, dest string) error {
	if env.ctx == "" {
		return fmt.Errorf("codegen: %s.%s: ancestor target without encoding context", tf.SchemaName, ff.SchemaName)
	}
	fv, err := g.ancestorField(w, env, tgt.AncestorDepth, tgt.FieldName, "")
	if err != nil {
		return err
	}
	switch ff.Computed.Kind {
	case ir.ComputedLengthOf:
		w.pf("%s := uint64(%s.LengthOfValue())", dest, fv)
	case ir.ComputedCountOf:
		w.pf("%s := uint64(%s.Len())", dest, fv)
	case ir.ComputedCRC32Of:
		w.pf("%s := uint64(runtime.CRC32(%s.ToBytes()))", dest, fv)
	default:
		return fmt.Errorf("codegen: %s.%s: unsupported computed kind %q for ancestor target", tf.SchemaName, ff.SchemaName, ff.Computed.Kind)
	}
	return nil
}

func (g *generator) computedSelector(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, tgt ir.Target, dest string) error {
	if env.ctx == "" {
		return fmt.Errorf("codegen: %s.%s: selector target without encoding context", tf.SchemaName, ff.SchemaName)
	}
	sel := tgt.Selector
	key := sel.ArrayField + "__" + sel.TypeName
	idx := g.tmp("idx")

	switch sel.Kind {
	case ir.SelectorFirst:
		w.pf("%s := 0", idx)
	case ir.SelectorLast:
		w.pf("%s := %s.PositionCount(%q) - 1", idx, env.ctx, key)
	default: // corresponding
		iter := g.tmp("iter")
		w.pf("%s := %s.CurrentArrayIter()", iter, env.ctx)
		w.pf("if %s == nil {", iter)
		w.in()
		w.pf(`return runtime.New(runtime.InvalidValue, "corresponding selector outside array iteration")`)
		w.out()
		w.pf("}")
		if g.sameArrayCorrelation(tf.SchemaName, sel) {
			w.pf("%s := %s.TypeIndices[%q] - 1", idx, iter, tf.SchemaName)
		} else {
			w.pf("%s := %s.Index", idx, iter)
		}
	}

	pos := g.tmp("pos")
	ok := g.tmp("ok")
	w.pf("%s, %s := %s.Position(%q, %s)", pos, ok, env.ctx, key, idx)
	w.pf("if !%s {", ok)
	w.in()
	w.pf(`return runtime.New(runtime.InvalidValue, "element %%d of %s not position-tracked", %s)`, sel.ArrayField, idx)
	w.out()
	w.pf("}")

	switch ff.Computed.Kind {
	case ir.ComputedPositionOf:
		w.pf("%s := uint64(%s)", dest, pos)
	default:
		return fmt.Errorf("codegen: %s.%s: computed kind %q does not support selector targets", tf.SchemaName, ff.SchemaName, ff.Computed.Kind)
	}
	return nil
}

func (g *generator) sumOfSizes(w *body, env encEnv, tf *TypeFacts, c *ir.Computed, dest string) error {
	w.pf("var %s uint64", dest)
	for _, target := range c.Targets {
		sibling := tf.fieldByName(target)
		if sibling == nil {
			return fmt.Errorf("codegen: %s: sum_of_sizes target %q not in sequence", tf.SchemaName, target)
		}
		val := "v." + sibling.GoName
		switch {
		case sibling.Type.Kind == ir.KindString || isByteArray(sibling.Type):
			w.pf("%s += uint64(len(%s))", dest, val)
		case sibling.Type.Kind.IsIntegerPrimitive():
			w.pf("%s += %d", dest, byteWidth(sibling.Type.Kind))
		default:
			mb, err := g.measureField(w, env, tf, sibling, val)
			if err != nil {
				return err
			}
			w.pf("%s += uint64(len(%s))", dest, mb)
		}
	}
	return nil
}

func (g *generator) sumOfTypeSizes(w *body, env encEnv, tf *TypeFacts, c *ir.Computed, dest string) error {
	arr := tf.fieldByName(c.ArrayField)
	if arr == nil || arr.Items == nil {
		return fmt.Errorf("codegen: %s: sum_of_type_sizes array %q not in sequence", tf.SchemaName, c.ArrayField)
	}
	variant := g.variantInputGoType(arr, c.VariantType)
	w.pf("var %s uint64", dest)
	i := g.tmp("i")
	w.pf("for %s := range v.%s {", i, arr.GoName)
	w.in()
	item := g.tmp("it")
	w.pf("%s, %s := v.%s[%s].(%s)", item, item+"Ok", arr.GoName, i, variant)
	w.pf("if !%s {", item+"Ok")
	w.in()
	w.pf("continue")
	w.out()
	w.pf("}")
	mb, err := g.measureEncodeCall(w, env, c.VariantType, item)
	if err != nil {
		return err
	}
	w.pf("%s += uint64(len(%s))", dest, mb)
	w.out()
	w.pf("}")
	return nil
}

// ancestorField emits the two-step parent-frame lookup and returns the
// FieldValue variable name. retZero prefixes the error returns for decode
// positions; encode bodies pass "".
func (g *generator) ancestorField(w *body, env encEnv, depth int, name, retZero string) (string, error) {
	p := g.tmp("parent")
	ok := g.tmp("ok")
	w.pf("%s, %s := %s.Ancestor(%d)", p, ok, env.ctx, depth)
	w.pf("if !%s {", ok)
	w.in()
	w.pf(`return %sruntime.New(runtime.MissingContext, "no ancestor frame at depth %d")`, retZero, depth)
	w.out()
	w.pf("}")
	fv := g.tmp("fv")
	ok2 := g.tmp("ok")
	w.pf("%s, %s := %s[%q]", fv, ok2, p, name)
	w.pf("if !%s {", ok2)
	w.in()
	w.pf(`return %sruntime.New(runtime.MissingContext, "missing parent field %s")`, retZero, name)
	w.out()
	w.pf("}")
	return fv, nil
}

// measureField temp-encodes one field and returns the variable holding its
// bytes.
func (g *generator) measureField(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, val string) (string, error) {
	sub := g.tmp("m")
	w.pf("%s := runtime.NewBitStreamEncoder(%s.Order())", sub, env.enc)
	if err := g.renderEncodeField(w, env.withEnc(sub), tf, ff, val); err != nil {
		return "", err
	}
	mb := g.tmp("mb")
	w.pf("%s := %s.Finish()", mb, sub)
	return mb, nil
}

// measureEncodeCall temp-encodes one value of a named type and returns the
// variable holding its bytes.
func (g *generator) measureEncodeCall(w *body, env encEnv, typeName, val string) (string, error) {
	sub := g.tmp("m")
	w.pf("%s := runtime.NewBitStreamEncoder(%s.Order())", sub, env.enc)
	if err := g.renderEncodeRefCall(w, env.withEnc(sub), typeName, val); err != nil {
		return "", err
	}
	mb := g.tmp("mb")
	w.pf("%s := %s.Finish()", mb, sub)
	return mb, nil
}

// sameArrayCorrelation reports whether a corresponding<T> selector inside
// typeName correlates within the same array (type-occurrence indexing)
// rather than across arrays (plain index): true when some composite's array
// field of the selector's name can carry both the current type and the
// selected type as variants.
func (g *generator) sameArrayCorrelation(typeName string, sel ir.Selector) bool {
	for _, def := range g.ann.Schema.Types {
		if def.Kind != ir.TypeComposite || def.Composite == nil {
			continue
		}
		for _, f := range def.Composite.Sequence {
			if f.Name != sel.ArrayField || f.Type.Kind != ir.KindArray || f.Type.Array == nil || f.Type.Array.Items == nil {
				continue
			}
			variants := g.itemVariantNames(f.Type.Array.Items)
			var hasSelf, hasTarget bool
			for _, vn := range variants {
				if vn == typeName {
					hasSelf = true
				}
				if vn == sel.TypeName {
					hasTarget = true
				}
			}
			if hasSelf && hasTarget {
				return true
			}
		}
	}
	return false
}

// itemVariantNames lists the concrete type names an array item position can
// carry: the ref target itself, or a union's variants.
func (g *generator) itemVariantNames(items *ir.FieldType) []string {
	switch items.Kind {
	case ir.KindRef:
		def := g.ann.Schema.Types[items.RefName]
		if def != nil && def.Kind == ir.TypeUnion && def.Union != nil {
			names := make([]string, 0, len(def.Union.Variants))
			for _, v := range def.Union.Variants {
				names = append(names, v.TypeName)
			}
			return names
		}
		return []string{items.RefName}
	case ir.KindInlineUnion:
		if items.Union != nil {
			names := make([]string, 0, len(items.Union.Variants))
			for _, v := range items.Union.Variants {
				names = append(names, v.TypeName)
			}
			return names
		}
	}
	return nil
}

// variantInputGoType resolves the Input-view Go type asserted for one
// variant of an array's item union.
func (g *generator) variantInputGoType(arr *FieldFacts, typeName string) string {
	fb := &factsBuilder{ann: g.ann, defaultEndian: g.defaultEndian}
	return fb.refGoType(typeName, true)
}

func isByteArray(ft *ir.FieldType) bool {
	return ft.Kind == ir.KindArray && ft.Array != nil && ft.Array.Items != nil && ft.Array.Items.Kind == ir.KindUint8
}

func (tf *TypeFacts) fieldByName(name string) *FieldFacts {
	for _, f := range tf.Fields {
		if f.SchemaName == name {
			return f
		}
	}
	return nil
}
