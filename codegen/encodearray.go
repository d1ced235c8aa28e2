package codegen

import (
	"fmt"

	"github.com/binschema/binschema/ir"
)

func (g *generator) renderEncodeArray(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, val string) error {
	sp := ff.Type.Array
	if sp == nil {
		return fmt.Errorf("codegen: array field %q missing spec", ff.SchemaName)
	}

	if tracked := g.trackedTypesFor(tf, ff.SchemaName); len(tracked) > 0 && env.ctx != "" && env.root {
		if err := g.renderEncodePrePass(w, env, tf, ff, val, tracked); err != nil {
			return err
		}
	}

	if isByteArray(ff.Type) {
		return g.renderEncodeByteArray(w, env, ff, val)
	}

	switch sp.Kind {
	case ir.ArrayLengthPrefixed:
		w.pf("%s", writeUintCall(env.enc, prefixKind(sp.LengthPrefixKind), ff.Endianness, fmt.Sprintf("uint64(len(%s))", val)))
		return g.encodeItemsLoop(w, env, tf, ff, val)
	case ir.ArrayByteLengthPrefixed:
		sub := g.tmp("sub")
		w.pf("%s := runtime.NewBitStreamEncoder(%s.Order())", sub, env.enc)
		if err := g.encodeItemsLoop(w, env.withEnc(sub), tf, ff, val); err != nil {
			return err
		}
		sb := g.tmp("sb")
		w.pf("%s := %s.Finish()", sb, sub)
		w.pf("%s", writeUintCall(env.enc, prefixKind(sp.LengthPrefixKind), ff.Endianness, fmt.Sprintf("uint64(len(%s))", sb)))
		w.pf("%s.WriteBytes(%s)", env.enc, sb)
		return nil
	case ir.ArrayLengthPrefixedItems:
		w.pf("%s", writeUintCall(env.enc, prefixKind(sp.LengthPrefixKind), ff.Endianness, fmt.Sprintf("uint64(len(%s))", val)))
		return g.encodeItemsLoopWith(w, env, tf, ff, val, func(w *body, itemEnv encEnv, item, iter string) error {
			isub := g.tmp("isub")
			w.pf("%s := runtime.NewBitStreamEncoder(%s.Order())", isub, env.enc)
			if err := g.renderEncodeItem(w, itemEnv.withEnc(isub), tf, ff.Items, item, iter); err != nil {
				return err
			}
			ib := g.tmp("ib")
			w.pf("%s := %s.Finish()", ib, isub)
			w.pf("%s", writeUintCall(env.enc, prefixKind(sp.ItemLengthPrefixKind), ff.Endianness, fmt.Sprintf("uint64(len(%s))", ib)))
			w.pf("%s.WriteBytes(%s)", env.enc, ib)
			return nil
		})
	case ir.ArrayFixed:
		w.pf("if len(%s) != %d {", val, sp.FixedLength)
		w.in()
		w.pf(`return runtime.New(runtime.InvalidValue, "array %s must have exactly %d elements, got %%d", len(%s))`, ff.SchemaName, sp.FixedLength, val)
		w.out()
		w.pf("}")
		return g.encodeItemsLoop(w, env, tf, ff, val)
	case ir.ArrayNullTerminated:
		if err := g.encodeItemsLoop(w, env, tf, ff, val); err != nil {
			return err
		}
		w.pf("%s.WriteUint8(0)", env.enc)
		return nil
	default:
		// field_referenced, eof_terminated, byte_budgeted,
		// variant_terminated, signature_terminated, computed_count: the
		// framing lives elsewhere (a sibling field, the terminator item,
		// or the enclosing stream), so the encoder writes the items bare.
		return g.encodeItemsLoop(w, env, tf, ff, val)
	}
}

func (g *generator) renderEncodeByteArray(w *body, env encEnv, ff *FieldFacts, val string) error {
	sp := ff.Type.Array
	switch sp.Kind {
	case ir.ArrayLengthPrefixed, ir.ArrayByteLengthPrefixed:
		w.pf("%s", writeUintCall(env.enc, prefixKind(sp.LengthPrefixKind), ff.Endianness, fmt.Sprintf("uint64(len(%s))", val)))
		w.pf("%s.WriteBytes(%s)", env.enc, val)
	case ir.ArrayFixed:
		w.pf("if len(%s) != %d {", val, sp.FixedLength)
		w.in()
		w.pf(`return runtime.New(runtime.InvalidValue, "array %s must have exactly %d bytes, got %%d", len(%s))`, ff.SchemaName, sp.FixedLength, val)
		w.out()
		w.pf("}")
		w.pf("%s.WriteBytes(%s)", env.enc, val)
	case ir.ArrayNullTerminated:
		w.pf("%s.WriteBytes(%s)", env.enc, val)
		w.pf("%s.WriteUint8(0)", env.enc)
	default:
		w.pf("%s.WriteBytes(%s)", env.enc, val)
	}
	return nil
}

// encodeItemsLoop iterates an array's items, maintaining context iteration
// state when the items are union-typed so corresponding-selector code
// inside item encodes can resolve its occurrence index.
func (g *generator) encodeItemsLoop(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, val string) error {
	return g.encodeItemsLoopWith(w, env, tf, ff, val, func(w *body, itemEnv encEnv, item, iter string) error {
		return g.renderEncodeItem(w, itemEnv, tf, ff.Items, item, iter)
	})
}

func (g *generator) encodeItemsLoopWith(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, val string, perItem func(w *body, itemEnv encEnv, item, iter string) error) error {
	maintain := env.ctx != "" && g.isUnionItems(ff.Items)
	ctxVar := g.loopCtx(env)
	if maintain {
		w.pf("%s.PushArrayIter()", ctxVar)
	}
	i := g.tmp("i")
	w.pf("for %s := range %s {", i, val)
	w.in()
	iter := ""
	if maintain {
		iter = g.tmp("iter")
		w.pf("%s := %s.CurrentArrayIter()", iter, ctxVar)
		w.pf("%s.Index = %s", iter, i)
	}
	if err := perItem(w, env, fmt.Sprintf("%s[%s]", val, i), iter); err != nil {
		return err
	}
	w.out()
	w.pf("}")
	if maintain {
		w.pf("%s.PopArrayIter()", ctxVar)
	}
	return nil
}

// renderEncodeItem writes one array element. Union-typed items dispatch on
// the concrete variant, bumping the type-occurrence counter when iteration
// state is live.
func (g *generator) renderEncodeItem(w *body, env encEnv, tf *TypeFacts, items *FieldFacts, val, iter string) error {
	if uf := g.unionFactsForItems(items); uf != nil {
		return g.renderUnionSwitch(w, env, uf, val, func(w *body, v VariantFacts) {
			if iter != "" {
				w.pf("%s.TypeIndices[%q]++", iter, v.TypeName)
			}
		})
	}
	if items.Type.Kind == ir.KindRef {
		if iter != "" {
			w.pf("%s.TypeIndices[%q]++", iter, items.Type.RefName)
		}
		return g.renderEncodeRefCall(w, env, items.Type.RefName, val)
	}
	return g.renderEncodeField(w, env, tf, items, val)
}

// renderUnionSwitch emits the encode-side dispatch over a union value's
// concrete variant. pre runs at the top of each matched case, before the
// variant encode call. Split variants get a second case accepting the
// decoded (Output) view, so re-encoding a decoded message needs no manual
// conversion.
func (g *generator) renderUnionSwitch(w *body, env encEnv, uf *UnionFacts, val string, pre func(w *body, v VariantFacts)) error {
	savedView := g.curInputView
	w.pf("switch u := %s.(type) {", val)
	for _, v := range uf.Variants {
		w.pf("case %s:", v.InputGoType)
		w.in()
		if pre != nil {
			pre(w, v)
		}
		g.curInputView = true
		if err := g.renderEncodeRefCall(w, env, v.TypeName, "u"); err != nil {
			g.curInputView = savedView
			return err
		}
		w.out()
		if v.OutputGoType != v.InputGoType {
			w.pf("case %s:", v.OutputGoType)
			w.in()
			if pre != nil {
				pre(w, v)
			}
			if err := g.renderEncodeRefCall(w, env, v.TypeName, "u.Input()"); err != nil {
				g.curInputView = savedView
				return err
			}
			w.out()
		}
	}
	g.curInputView = savedView
	w.pf("default:")
	w.in()
	w.pf(`return runtime.New(runtime.InvalidValue, "unsupported union variant %%T", %s)`, val)
	w.out()
	w.pf("}")
	return nil
}

// renderEncodePrePass projects every item's start offset before the array
// is written, so first/last/corresponding selectors elsewhere can read
// them. It mirrors the real pass's iteration state but emits nothing to
// the output stream.
func (g *generator) renderEncodePrePass(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, val string, tracked []string) error {
	sp := ff.Type.Array
	ctxVar := g.loopCtx(env)

	w.pf("{")
	w.in()
	pos := g.tmp("prePos")
	if pw := encodePrefixWidth(sp); pw > 0 {
		w.pf("%s := %s + %d", pos, env.posExpr(), pw)
	} else {
		w.pf("%s := %s", pos, env.posExpr())
	}
	w.pf("%s.PushArrayIter()", ctxVar)
	i := g.tmp("i")
	w.pf("for %s := range %s {", i, val)
	w.in()
	iter := g.tmp("iter")
	w.pf("%s := %s.CurrentArrayIter()", iter, ctxVar)
	w.pf("%s.Index = %s", iter, i)
	sub := g.tmp("psub")
	w.pf("%s := runtime.NewBitStreamEncoder(%s.Order())", sub, env.enc)
	subEnv := env.withEnc(sub)

	item := fmt.Sprintf("%s[%s]", val, i)
	if uf := g.unionFactsForItems(ff.Items); uf != nil {
		err := g.renderUnionSwitch(w, subEnv, uf, item, func(w *body, v VariantFacts) {
			w.pf("%s.TypeIndices[%q]++", iter, v.TypeName)
			if containsString(tracked, v.TypeName) {
				w.pf("%s.RecordPosition(%q, %s)", env.ctx, ff.SchemaName+"__"+v.TypeName, pos)
			}
		})
		if err != nil {
			return err
		}
	} else if ff.Items.Type.Kind == ir.KindRef {
		name := ff.Items.Type.RefName
		w.pf("%s.TypeIndices[%q]++", iter, name)
		if containsString(tracked, name) {
			w.pf("%s.RecordPosition(%q, %s)", env.ctx, ff.SchemaName+"__"+name, pos)
		}
		if err := g.renderEncodeRefCall(w, subEnv, name, item); err != nil {
			return err
		}
	} else {
		return fmt.Errorf("codegen: %s.%s: position-tracked array items must be named types", tf.SchemaName, ff.SchemaName)
	}

	pb := g.tmp("pb")
	w.pf("%s := %s.Finish()", pb, sub)
	if iw := itemPrefixWidth(sp); iw > 0 {
		w.pf("%s += %d + len(%s)", pos, iw, pb)
	} else {
		w.pf("%s += len(%s)", pos, pb)
	}
	w.out()
	w.pf("}")
	w.pf("%s.PopArrayIter()", ctxVar)
	w.out()
	w.pf("}")
	return nil
}

// buildSnapshot emits the parent-frame snapshot a composite hands to
// nested encodes that need context, and binds the extended child context
// variable. Position-tracked arrays are left out: their items' data flows
// through the position map, and materializing them would run item encodes
// before the pre-pass has recorded anything.
func (g *generator) buildSnapshot(w *body, env encEnv, tf *TypeFacts) error {
	snap := g.tmp("snap")
	w.pf("%s := map[string]runtime.FieldValue{}", snap)

	for _, ff := range tf.Fields {
		if ff.IsPadding() || ff.Computed != nil || ff.Conditional != "" {
			continue
		}
		val := "v." + ff.GoName
		k := ff.Type.Kind
		switch {
		case ff.Const != nil:
			if k.IsIntegerPrimitive() || k == ir.KindVarlength {
				w.pf("%s[%q] = runtime.NewIntField(%s)", snap, ff.SchemaName, constIntExpr(ff.Const.Int))
			}
		case k.IsIntegerPrimitive() || k == ir.KindVarlength || (k == ir.KindBit && ff.Type.BitWidth > 1):
			w.pf("%s[%q] = runtime.NewIntField(int64(%s))", snap, ff.SchemaName, val)
		case k == ir.KindString:
			w.pf("%s[%q] = runtime.NewStringField(%s)", snap, ff.SchemaName, val)
		case isByteArray(ff.Type):
			w.pf("%s[%q] = runtime.NewBytesField(%s)", snap, ff.SchemaName, val)
		case k == ir.KindArray && len(g.trackedTypesFor(tf, ff.SchemaName)) == 0 && g.itemsMaterializable(ff.Items):
			if err := g.snapshotItems(w, env, tf, ff, val, snap); err != nil {
				return err
			}
		case k == ir.KindRef && !g.typeContainsBackRef(ff.Type.RefName):
			mb, err := g.measureRefWithScratchDict(w, env, ff.Type.RefName, val)
			if err != nil {
				return err
			}
			w.pf("%s[%q] = runtime.NewBytesField(%s)", snap, ff.SchemaName, mb)
		}
	}

	cctx := g.tmp("cctx")
	w.pf("%s := %s.ExtendWithParent(%s)", cctx, env.ctx, snap)
	g.curChildCtx = cctx
	return nil
}

func (g *generator) snapshotItems(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, val, snap string) error {
	items := g.tmp("items")
	w.pf("%s := make([]runtime.Item, 0, len(%s))", items, val)
	i := g.tmp("i")
	w.pf("for %s := range %s {", i, val)
	w.in()
	sub := g.tmp("isub")
	w.pf("%s := runtime.NewBitStreamEncoder(%s.Order())", sub, env.enc)
	subEnv := env.withEnc(sub)
	tn := g.tmp("tn")
	item := fmt.Sprintf("%s[%s]", val, i)

	if uf := g.unionFactsForItems(ff.Items); uf != nil {
		w.pf("var %s string", tn)
		err := g.renderUnionSwitch(w, subEnv, uf, item, func(w *body, v VariantFacts) {
			w.pf("%s = %q", tn, v.TypeName)
		})
		if err != nil {
			return err
		}
	} else {
		w.pf("%s := %q", tn, ff.Items.Type.RefName)
		if err := g.renderEncodeRefCall(w, subEnv, ff.Items.Type.RefName, item); err != nil {
			return err
		}
	}
	w.pf("%s = append(%s, runtime.Item{TypeName: %s, Bytes: %s.Finish()})", items, items, tn, sub)
	w.out()
	w.pf("}")
	w.pf("%s[%q] = runtime.NewItemsField(%s)", snap, ff.SchemaName, items)
	return nil
}

// itemsMaterializable reports whether snapshot materialization can safely
// encode each element: named item types that carry no back-reference (a
// back-reference encode would record scratch offsets into the shared
// dictionary).
func (g *generator) itemsMaterializable(items *FieldFacts) bool {
	if items == nil {
		return false
	}
	for _, name := range g.itemVariantNames(items.Type) {
		if g.typeContainsBackRef(name) {
			return false
		}
	}
	return items.Type.Kind == ir.KindRef || items.Type.Kind == ir.KindInlineUnion
}

func (g *generator) typeContainsBackRef(name string) bool {
	info := g.ann.Types[name]
	return info != nil && info.ContainsBackReference
}

// measureRefWithScratchDict temp-encodes one named-type value for snapshot
// purposes, routing any context use through a measurement clone.
func (g *generator) measureRefWithScratchDict(w *body, env encEnv, typeName, val string) (string, error) {
	info := g.ann.Types[typeName]
	sub := g.tmp("m")
	w.pf("%s := runtime.NewBitStreamEncoder(%s.Order())", sub, env.enc)
	subEnv := env.withEnc(sub)
	if info != nil && info.NeedsEncodeContext && env.ctx != "" {
		saved := g.curChildCtx
		m := g.tmp("mctx")
		base := saved
		if base == "" {
			base = env.ctx
		}
		w.pf("%s := %s.CloneForMeasurement()", m, base)
		g.curChildCtx = m
		err := g.renderEncodeRefCall(w, subEnv, typeName, val)
		g.curChildCtx = saved
		if err != nil {
			return "", err
		}
	} else if err := g.renderEncodeRefCall(w, subEnv, typeName, val); err != nil {
		return "", err
	}
	mb := g.tmp("mb")
	w.pf("%s := %s.Finish()", mb, sub)
	return mb, nil
}

func (g *generator) trackedTypesFor(tf *TypeFacts, arrayField string) []string {
	var out []string
	prefix := arrayField + "__"
	for _, key := range tf.Info.PositionTracked {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, key[len(prefix):])
		}
	}
	return out
}

func (g *generator) isUnionItems(items *FieldFacts) bool {
	if items == nil {
		return false
	}
	return g.unionFactsForItems(items) != nil
}

// unionFactsForItems resolves an array item type to union facts when the
// items are union-valued (inline, or a ref to a named union).
func (g *generator) unionFactsForItems(items *FieldFacts) *UnionFacts {
	if items == nil {
		return nil
	}
	switch items.Type.Kind {
	case ir.KindInlineUnion:
		return items.InlineUnion
	case ir.KindRef:
		def := g.ann.Schema.Types[items.Type.RefName]
		if def != nil && def.Kind == ir.TypeUnion {
			tf, err := g.factsOf(items.Type.RefName)
			if err == nil {
				return tf.Union
			}
		}
	}
	return nil
}

// loopCtx is the context variable nested item encodes receive: the
// extended child context when the frame built one, else the function's own
// parameter.
func (g *generator) loopCtx(env encEnv) string {
	if g.curChildCtx != "" {
		return g.curChildCtx
	}
	return env.ctx
}

func (g *generator) anyNestedNeedsEncodeCtx(tf *TypeFacts) bool {
	for _, ff := range tf.Fields {
		if g.fieldUsesEncodeCtx(ff) {
			return true
		}
	}
	return false
}

func (g *generator) fieldUsesEncodeCtx(ff *FieldFacts) bool {
	if ff == nil {
		return false
	}
	switch ff.Type.Kind {
	case ir.KindRef:
		info := g.ann.Types[ff.Type.RefName]
		return info != nil && info.NeedsEncodeContext
	case ir.KindBackReference:
		return true
	case ir.KindArray:
		return g.fieldUsesEncodeCtx(ff.Items)
	case ir.KindOptional:
		return g.fieldUsesEncodeCtx(ff.OptionalValue)
	case ir.KindInlineUnion:
		return g.unionNeedsEncodeCtx(ff.InlineUnion)
	}
	return false
}

func encodePrefixWidth(sp *ir.ArraySpec) int {
	switch sp.Kind {
	case ir.ArrayLengthPrefixed, ir.ArrayByteLengthPrefixed, ir.ArrayLengthPrefixedItems:
		return byteWidth(prefixKind(sp.LengthPrefixKind))
	}
	return 0
}

func itemPrefixWidth(sp *ir.ArraySpec) int {
	if sp.Kind == ir.ArrayLengthPrefixedItems {
		return byteWidth(prefixKind(sp.ItemLengthPrefixKind))
	}
	return 0
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
