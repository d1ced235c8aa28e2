package codegen

import (
	"fmt"

	"github.com/binschema/binschema/ir"
)

// unionEncodeBody renders the body of encode<T> for a named union type:
// a dispatch on the value's concrete variant.
func (g *generator) unionEncodeBody(tf *TypeFacts) (string, error) {
	g.tmpN = 0
	g.curChildCtx = ""
	g.curPosCaptures = map[string]string{}
	g.curInputView = true
	env := encEnv{enc: "enc", root: true}
	if tf.Info.NeedsEncodeContext {
		env.ctx = "ctx"
	}
	w := newBody(1)
	if err := g.renderUnionSwitch(w, env, tf.Union, "v", nil); err != nil {
		return "", err
	}
	return w.String(), nil
}

// unionDecodeBody renders the self-terminating body of decode<T> for a
// named union type.
func (g *generator) unionDecodeBody(tf *TypeFacts) (string, error) {
	g.tmpN = 0
	env := decEnv{dec: "dec", zero: "nil, "}
	if tf.Info.NeedsDecodeContext {
		env.ctx = "ctx"
	}
	w := newBody(1)
	if err := g.unionDecodeDispatch(w, env, tf.Union, tf.SchemaName); err != nil {
		return "", err
	}
	return w.String(), nil
}

// unionDecodeDispatch emits the variant-selection logic shared by named
// unions and inline Choice fields: byte-budget sub-streams, then peek-based,
// field-based, or try-each dispatch.
func (g *generator) unionDecodeDispatch(w *body, env decEnv, uf *UnionFacts, label string) error {
	if uf.ByteBudget != "" {
		n, err := g.lengthValueExpr(w, env, uf.ByteBudget, nil)
		if err != nil {
			return err
		}
		raw := g.tmp("raw")
		w.pf("%s, %s := %s.ReadBytes(%s)", raw, raw+"Err", env.dec, n)
		g.errCheck(w, env, raw+"Err")
		sub := g.tmp("sub")
		w.pf("%s := runtime.NewBitStreamDecoder(%s, %s)", sub, raw, g.bitOrder)
		env = env.withDec(sub)
	}

	d := uf.Discriminator
	switch {
	case d == nil:
		return g.unionTryEach(w, env, uf, label)
	case d.Kind == ir.DiscriminatorPeek:
		pv := g.tmp("pv")
		w.pf("%s, %s := %s", pv, pv+"Err", peekUintCall(env.dec, ir.Kind(d.IntegerKind), g.defaultEndian))
		g.errCheck(w, env, pv+"Err")
		return g.unionValueSwitch(w, env, uf, pv, label)
	default: // field-based
		if env.ctx == "" {
			return fmt.Errorf("codegen: union %s has a field discriminator but no decoding context", label)
		}
		tag := g.tmp("tag")
		ok := g.tmp("ok")
		w.pf("%s, %s := %s.Get(%q)", tag, ok, env.ctx, d.FieldName)
		w.pf("if !%s {", ok)
		w.in()
		w.pf(`return %sruntime.New(runtime.MissingContext, "missing discriminator field %s")`, env.zero, d.FieldName)
		w.out()
		w.pf("}")
		return g.unionValueSwitch(w, env, uf, tag, label)
	}
}

// unionValueSwitch emits the if/else-if chain over variants' `when`
// predicates against an already-read discriminator value. A variant with no
// predicate is the fallback arm.
func (g *generator) unionValueSwitch(w *body, env decEnv, uf *UnionFacts, valueVar, label string) error {
	var fallback *VariantFacts
	w.pf("switch {")
	for i := range uf.Variants {
		v := &uf.Variants[i]
		if v.When == "" {
			if fallback == nil {
				fallback = v
			}
			continue
		}
		expr, err := translatePredicate(w, v.When, predicateEnv{valueVar: valueVar})
		if err != nil {
			return err
		}
		w.pf("case %s:", expr)
		w.in()
		if err := g.unionVariantReturn(w, env, v.TypeName); err != nil {
			return err
		}
		w.out()
	}
	w.pf("default:")
	w.in()
	if fallback != nil {
		if err := g.unionVariantReturn(w, env, fallback.TypeName); err != nil {
			return err
		}
	} else {
		w.pf(`return %sruntime.New(runtime.NoVariantMatched, "no variant of %s matched discriminator 0x%%x", %s)`, env.zero, label, valueVar)
	}
	w.out()
	w.pf("}")
	return nil
}

// unionTryEach emits the Choice protocol: save the position, attempt each
// variant in order, rewind on a recoverable rejection, and surface
// NoVariantMatched when the list is exhausted.
func (g *generator) unionTryEach(w *body, env decEnv, uf *UnionFacts, label string) error {
	saved := g.tmp("saved")
	w.pf("%s := %s.Position()", saved, env.dec)
	for _, v := range uf.Variants {
		rv := g.tmp("rv")
		errv := rv + "Err"
		g.emitVariantDecodeCall(w, env, v.TypeName, rv, errv)
		w.pf("if %s == nil {", errv)
		w.in()
		w.pf("return %s, nil", rv)
		w.out()
		w.pf("}")
		w.pf("if !runtime.IsRecoverable(%s) {", errv)
		w.in()
		w.pf("return %s%s", env.zero, errv)
		w.out()
		w.pf("}")
		w.pf("if err := %s.Seek(%s); err != nil {", env.dec, saved)
		w.in()
		w.pf("return %serr", env.zero)
		w.out()
		w.pf("}")
	}
	w.pf(`return %sruntime.New(runtime.NoVariantMatched, "no variant of %s matched")`, env.zero, label)
	return nil
}

func (g *generator) unionVariantReturn(w *body, env decEnv, typeName string) error {
	rv := g.tmp("rv")
	errv := rv + "Err"
	g.emitVariantDecodeCall(w, env, typeName, rv, errv)
	g.errCheck(w, env, errv)
	w.pf("return %s, nil", rv)
	return nil
}

func (g *generator) emitVariantDecodeCall(w *body, env decEnv, typeName, rv, errv string) {
	callee := "decode" + toGoName(typeName)
	info := g.ann.Types[typeName]
	if info != nil && info.NeedsDecodeContext {
		ctxArg := g.childDecodeCtx(w, env, nil)
		w.pf("%s, %s := %s(%s, %s)", rv, errv, callee, env.dec, ctxArg)
	} else {
		w.pf("%s, %s := %s(%s)", rv, errv, callee, env.dec)
	}
}

// inlineUnionFields collects every inline (Choice) union field reachable
// from a composite's sequence and instance fields, so their interface and
// helper functions can be emitted alongside the owning type.
func inlineUnionFields(tf *TypeFacts) []*FieldFacts {
	var out []*FieldFacts
	var walk func(ff *FieldFacts)
	walk = func(ff *FieldFacts) {
		if ff == nil {
			return
		}
		if ff.Type.Kind == ir.KindInlineUnion {
			out = append(out, ff)
			return
		}
		walk(ff.Items)
		walk(ff.OptionalValue)
	}
	for _, ff := range tf.Fields {
		walk(ff)
	}
	for _, ff := range tf.Instances {
		walk(ff)
	}
	return out
}
