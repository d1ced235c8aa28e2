package codegen

import (
	"fmt"

	"github.com/binschema/binschema/ir"
)

// decEnv carries the stream/context variable names decode statements read
// against, plus the zero-value prefix for error returns ("v, " in composite
// bodies, "nil, " in union bodies).
type decEnv struct {
	dec  string
	ctx  string
	zero string
}

func (e decEnv) withDec(dec string) decEnv {
	e.dec = dec
	return e
}

// compositeDecodeBody renders the statement body of decode<T> for a
// composite type: the forward sequence in declaration order, then the
// position-addressed instance fields.
func (g *generator) compositeDecodeBody(tf *TypeFacts) (string, error) {
	g.tmpN = 0
	env := decEnv{dec: "dec", zero: "v, "}
	if tf.Info.NeedsDecodeContext {
		env.ctx = "ctx"
	}

	w := newBody(1)
	for i, ff := range tf.Fields {
		if err := g.renderDecodeField(w, env, tf, ff, "v."+ff.GoName, tf.Fields[:i]); err != nil {
			return "", err
		}
	}
	for _, inst := range tf.Instances {
		if err := g.renderDecodeInstance(w, env, tf, inst); err != nil {
			return "", err
		}
	}
	return w.String(), nil
}

func (g *generator) renderDecodeField(w *body, env decEnv, tf *TypeFacts, ff *FieldFacts, dest string, bound []*FieldFacts) error {
	if ff.IsPadding() {
		w.pf("for %s.Position()%%%d != 0 {", env.dec, ff.Type.PaddingAlignment)
		w.in()
		w.pf("if _, err := %s.ReadUint8(); err != nil {", env.dec)
		w.in()
		w.pf("return %serr", env.zero)
		w.out()
		w.pf("}")
		w.out()
		w.pf("}")
		return nil
	}

	if ff.Conditional != "" {
		expr, err := g.decodePredicate(w, env, ff.Conditional)
		if err != nil {
			return err
		}
		w.pf("if %s {", expr)
		w.in()
		defer func() {
			w.out()
			w.pf("}")
		}()
	}

	if ff.Const != nil {
		return g.renderConstDecode(w, env, ff, dest)
	}
	return g.renderDecodePlain(w, env, tf, ff, dest, bound)
}

func (g *generator) renderConstDecode(w *body, env decEnv, ff *FieldFacts, dest string) error {
	lit := ff.Const
	k := ff.Type.Kind
	switch {
	case k.IsIntegerPrimitive():
		f := g.tmp("c")
		g.renderIntRead(w, env, ff, f)
		w.pf("if %s != %s {", f, constIntExpr(lit.Int))
		w.in()
		w.pf(`return %sruntime.New(runtime.ConstMismatch, "%s: got 0x%%x, want %s", %s)`, env.zero, ff.SchemaName, constIntExpr(lit.Int), f)
		w.out()
		w.pf("}")
		w.pf("%s = %s", dest, f)
	case k == ir.KindVarlength:
		f := g.tmp("c")
		errv := f + "Err"
		w.pf("%s, %s := %s.ReadVarlength(%s)", f, errv, env.dec, varlengthExpr(ff.Type.Varlength))
		g.errCheck(w, env, errv)
		w.pf("if %s != %s {", f, constIntExpr(lit.Int))
		w.in()
		w.pf(`return %sruntime.New(runtime.ConstMismatch, "%s: got %%d, want %s", %s)`, env.zero, ff.SchemaName, constIntExpr(lit.Int), f)
		w.out()
		w.pf("}")
		w.pf("%s = %s", dest, f)
	case k == ir.KindBit:
		f := g.tmp("c")
		errv := f + "Err"
		w.pf("%s, %s := %s.ReadBits(%d)", f, errv, env.dec, ff.Type.BitWidth)
		g.errCheck(w, env, errv)
		w.pf("if %s != %s {", f, constIntExpr(lit.Int))
		w.in()
		w.pf(`return %sruntime.New(runtime.ConstMismatch, "%s: got %%d, want %s", %s)`, env.zero, ff.SchemaName, constIntExpr(lit.Int), f)
		w.out()
		w.pf("}")
		w.pf("%s = %s(%s)", dest, ff.OutputGoType, f)
	case k == ir.KindString:
		f := g.tmp("c")
		errv := f + "Err"
		w.pf("%s, %s := %s.ReadBytes(%d)", f, errv, env.dec, len(lit.Str))
		g.errCheck(w, env, errv)
		w.pf("if string(%s) != %q {", f, lit.Str)
		w.in()
		w.pf(`return %sruntime.New(runtime.ConstMismatch, "%s: got %%q, want %%q", string(%s), %q)`, env.zero, ff.SchemaName, f, lit.Str)
		w.out()
		w.pf("}")
		w.pf("%s = string(%s)", dest, f)
	case isByteArray(ff.Type):
		g.needBytes = true
		f := g.tmp("c")
		errv := f + "Err"
		w.pf("%s, %s := %s.ReadBytes(%d)", f, errv, env.dec, len(lit.Bytes))
		g.errCheck(w, env, errv)
		w.pf("if !bytes.Equal(%s, %s) {", f, byteLiteral(lit.Bytes))
		w.in()
		w.pf(`return %sruntime.New(runtime.ConstMismatch, "%s: got %%x", %s)`, env.zero, ff.SchemaName, f)
		w.out()
		w.pf("}")
		w.pf("%s = %s", dest, f)
	default:
		return fmt.Errorf("codegen: const field %q has unsupported type %q", ff.SchemaName, k)
	}
	return nil
}

func (g *generator) renderDecodePlain(w *body, env decEnv, tf *TypeFacts, ff *FieldFacts, dest string, bound []*FieldFacts) error {
	k := ff.Type.Kind
	switch {
	case k.IsIntegerPrimitive():
		f := g.tmp("f")
		g.renderIntRead(w, env, ff, f)
		w.pf("%s = %s", dest, f)
	case k.IsFloatPrimitive():
		f := g.tmp("f")
		errv := f + "Err"
		w.pf("%s, %s := %s.ReadFloat%d(%s)", f, errv, env.dec, k.BitWidth(), endianExpr(ff.Endianness))
		g.errCheck(w, env, errv)
		w.pf("%s = %s", dest, f)
	case k == ir.KindBit:
		f := g.tmp("f")
		errv := f + "Err"
		w.pf("%s, %s := %s.ReadBits(%d)", f, errv, env.dec, ff.Type.BitWidth)
		g.errCheck(w, env, errv)
		if ff.Type.BitWidth == 1 && ff.OutputGoType == "bool" {
			w.pf("%s = runtime.Bit(%s)", dest, f)
		} else {
			w.pf("%s = %s(%s)", dest, ff.OutputGoType, f)
		}
	case k == ir.KindBitfield:
		for _, sub := range ff.BitSubFields {
			if sub.Const != nil {
				if err := g.renderConstDecode(w, env, sub, dest+"."+sub.GoName); err != nil {
					return err
				}
				continue
			}
			if err := g.renderDecodePlain(w, env, tf, sub, dest+"."+sub.GoName, bound); err != nil {
				return err
			}
		}
	case k == ir.KindVarlength:
		f := g.tmp("f")
		errv := f + "Err"
		w.pf("%s, %s := %s.ReadVarlength(%s)", f, errv, env.dec, varlengthExpr(ff.Type.Varlength))
		g.errCheck(w, env, errv)
		w.pf("%s = %s", dest, f)
	case k == ir.KindString:
		return g.renderDecodeString(w, env, tf, ff, dest, bound)
	case k == ir.KindArray:
		return g.renderDecodeArray(w, env, tf, ff, dest, bound)
	case k == ir.KindOptional:
		return g.renderDecodeOptional(w, env, tf, ff, dest, bound)
	case k == ir.KindRef:
		return g.renderDecodeRefCall(w, env, ff.Type.RefName, dest, bound)
	case k == ir.KindBackReference:
		return g.renderDecodeBackRef(w, env, ff, dest, bound)
	case k == ir.KindInlineUnion:
		return g.renderInlineUnionDecodeCall(w, env, ff, dest, bound)
	default:
		return fmt.Errorf("codegen: unsupported decode kind %q for field %q", k, ff.SchemaName)
	}
	return nil
}

func (g *generator) renderIntRead(w *body, env decEnv, ff *FieldFacts, dest string) {
	k := ff.Type.Kind
	width := k.BitWidth()
	signed := k == ir.KindInt8 || k == ir.KindInt16 || k == ir.KindInt32 || k == ir.KindInt64
	errv := dest + "Err"
	switch {
	case width == 8 && signed:
		w.pf("%s, %s := %s.ReadInt8()", dest, errv, env.dec)
	case width == 8:
		w.pf("%s, %s := %s.ReadUint8()", dest, errv, env.dec)
	case signed:
		w.pf("%s, %s := %s.ReadInt%d(%s)", dest, errv, env.dec, width, endianExpr(ff.Endianness))
	default:
		w.pf("%s, %s := %s.ReadUint%d(%s)", dest, errv, env.dec, width, endianExpr(ff.Endianness))
	}
	g.errCheck(w, env, errv)
}

func (g *generator) errCheck(w *body, env decEnv, errv string) {
	w.pf("if %s != nil {", errv)
	w.in()
	w.pf("return %s%s", env.zero, errv)
	w.out()
	w.pf("}")
}

func (g *generator) renderDecodeString(w *body, env decEnv, tf *TypeFacts, ff *FieldFacts, dest string, bound []*FieldFacts) error {
	sp := ff.Type.String
	if sp == nil {
		return fmt.Errorf("codegen: string field %q missing spec", ff.SchemaName)
	}
	raw := g.tmp("sb")
	errv := raw + "Err"

	switch sp.Kind {
	case ir.StringLengthPrefixed:
		n := g.tmp("n")
		w.pf("%s, %s := %s", n, n+"Err", readUintCall(env.dec, prefixKind(sp.LengthPrefixKind), ff.Endianness))
		g.errCheck(w, env, n+"Err")
		w.pf("%s, %s := %s.ReadBytes(int(%s))", raw, errv, env.dec, n)
		g.errCheck(w, env, errv)
	case ir.StringNullTerminated:
		w.pf("var %s []byte", raw)
		w.pf("for {")
		w.in()
		b := g.tmp("b")
		w.pf("%s, %s := %s.ReadUint8()", b, b+"Err", env.dec)
		g.errCheck(w, env, b+"Err")
		w.pf("if %s == 0 {", b)
		w.in()
		w.pf("break")
		w.out()
		w.pf("}")
		w.pf("%s = append(%s, %s)", raw, raw, b)
		w.out()
		w.pf("}")
	case ir.StringFixed:
		w.pf("%s, %s := %s.ReadBytes(%d)", raw, errv, env.dec, sp.FixedLength)
		g.errCheck(w, env, errv)
	case ir.StringFieldReferenced:
		n, err := g.lengthValueExpr(w, env, sp.LengthField, bound)
		if err != nil {
			return err
		}
		w.pf("%s, %s := %s.ReadBytes(%s)", raw, errv, env.dec, n)
		g.errCheck(w, env, errv)
	default:
		return fmt.Errorf("codegen: unsupported string kind %q", sp.Kind)
	}

	s := g.tmp("s")
	w.pf("%s, %s := runtime.DecodeText(%s, %s)", s, s+"Err", raw, textEncodingExpr(sp.Encoding))
	g.errCheck(w, env, s+"Err")
	w.pf("%s = %s", dest, s)
	return nil
}

func (g *generator) renderDecodeOptional(w *body, env decEnv, tf *TypeFacts, ff *FieldFacts, dest string, bound []*FieldFacts) error {
	marker := "byte"
	if ff.Type.Optional != nil && ff.Type.Optional.PresenceMarker != "" {
		marker = ff.Type.Optional.PresenceMarker
	}
	p := g.tmp("p")
	if marker == "bit" {
		w.pf("%s, %s := %s.ReadBits(1)", p, p+"Err", env.dec)
	} else {
		w.pf("%s, %s := %s.ReadUint8()", p, p+"Err", env.dec)
	}
	g.errCheck(w, env, p+"Err")
	w.pf("if %s == 1 {", p)
	w.in()
	ov := g.tmp("ov")
	w.pf("var %s %s", ov, ff.OptionalValue.OutputGoType)
	if err := g.renderDecodePlain(w, env, tf, ff.OptionalValue, ov, bound); err != nil {
		return err
	}
	w.pf("%s = &%s", dest, ov)
	w.out()
	w.pf("}")
	return nil
}

// renderDecodeRefCall emits the nested decode call for a named type,
// deriving a child decoding context bound with the frame's integer fields
// when the callee needs one.
func (g *generator) renderDecodeRefCall(w *body, env decEnv, typeName, dest string, bound []*FieldFacts) error {
	info := g.ann.Types[typeName]
	if info == nil {
		return fmt.Errorf("codegen: reference to unknown type %q", typeName)
	}
	callee := "decode" + toGoName(typeName)
	f := g.tmp("f")
	errv := f + "Err"
	if info.NeedsDecodeContext {
		ctxArg := g.childDecodeCtx(w, env, bound)
		w.pf("%s, %s := %s(%s, %s)", f, errv, callee, env.dec, ctxArg)
	} else {
		w.pf("%s, %s := %s(%s)", f, errv, callee, env.dec)
	}
	g.errCheck(w, env, errv)
	w.pf("%s = %s", dest, f)
	return nil
}

// childDecodeCtx builds the context a nested decode receives: the current
// context (or a fresh one) with every integer field decoded so far in this
// frame bound by its schema name.
func (g *generator) childDecodeCtx(w *body, env decEnv, bound []*FieldFacts) string {
	d := g.tmp("dctx")
	if env.ctx != "" {
		w.pf("%s := %s", d, env.ctx)
	} else {
		w.pf("%s := runtime.NewDecodingContext()", d)
	}
	for _, f := range bound {
		k := f.Type.Kind
		if k.IsIntegerPrimitive() || k == ir.KindVarlength || (k == ir.KindBit && !(f.Type.BitWidth == 1 && f.OutputGoType == "bool")) {
			w.pf("%s = %s.With(%q, uint64(v.%s))", d, d, f.SchemaName, f.GoName)
		}
	}
	return d
}

func (g *generator) renderInlineUnionDecodeCall(w *body, env decEnv, ff *FieldFacts, dest string, bound []*FieldFacts) error {
	callee := "decode" + ff.IfaceName
	f := g.tmp("f")
	errv := f + "Err"
	if g.unionNeedsDecodeCtx(ff.InlineUnion) {
		ctxArg := g.childDecodeCtx(w, env, bound)
		w.pf("%s, %s := %s(%s, %s)", f, errv, callee, env.dec, ctxArg)
	} else {
		w.pf("%s, %s := %s(%s)", f, errv, callee, env.dec)
	}
	g.errCheck(w, env, errv)
	w.pf("%s = %s", dest, f)
	return nil
}

func (g *generator) unionNeedsDecodeCtx(uf *UnionFacts) bool {
	if uf == nil {
		return false
	}
	if uf.ByteBudget != "" {
		return true
	}
	if uf.Discriminator != nil && uf.Discriminator.Kind == ir.DiscriminatorField {
		return true
	}
	for _, v := range uf.Variants {
		if info := g.ann.Types[v.TypeName]; info != nil && info.NeedsDecodeContext {
			return true
		}
	}
	return false
}

func (g *generator) renderDecodeBackRef(w *body, env decEnv, ff *FieldFacts, dest string, bound []*FieldFacts) error {
	br := ff.Type.BackRef
	if br == nil {
		return fmt.Errorf("codegen: back_reference field %q missing spec", ff.SchemaName)
	}

	ptr := g.tmp("ptrPos")
	w.pf("%s := %s.Position()", ptr, env.dec)
	raw := g.tmp("raw")
	w.pf("%s, %s := %s", raw, raw+"Err", peekUintCall(env.dec, br.StorageKind, ff.Endianness))
	g.errCheck(w, env, raw+"Err")
	w.pf("if uint64(%s)&0x%x == 0x%x {", raw, br.MarkerBits, br.MarkerBits)
	w.in()
	w.pf("if _, err := %s; err != nil {", readUintCall(env.dec, br.StorageKind, ff.Endianness))
	w.in()
	w.pf("return %serr", env.zero)
	w.out()
	w.pf("}")
	off := g.tmp("off")
	w.pf("%s := int(uint64(%s) & 0x%x)", off, raw, br.OffsetMask)
	if br.Origin == ir.OriginCurrentPosition {
		w.pf("%s = %s - %s", off, ptr, off)
	}
	w.pf("if %s < 0 || %s >= %s {", off, off, ptr)
	w.in()
	w.pf(`return %sruntime.New(runtime.InvalidBackReference, "offset %%d does not precede pointer at %%d", %s, %s)`, env.zero, off, ptr)
	w.out()
	w.pf("}")
	saved := g.tmp("saved")
	w.pf("%s := %s.Position()", saved, env.dec)
	w.pf("if err := %s.Seek(%s); err != nil {", env.dec, off)
	w.in()
	w.pf("return %serr", env.zero)
	w.out()
	w.pf("}")
	if err := g.renderDecodeRefCall(w, env, br.TargetType, dest, bound); err != nil {
		return err
	}
	w.pf("if err := %s.Seek(%s); err != nil {", env.dec, saved)
	w.in()
	w.pf("return %serr", env.zero)
	w.out()
	w.pf("}")
	w.out()
	w.pf("} else {")
	w.in()
	if err := g.renderDecodeRefCall(w, env, br.TargetType, dest, bound); err != nil {
		return err
	}
	w.out()
	w.pf("}")
	return nil
}

func (g *generator) renderDecodeInstance(w *body, env decEnv, tf *TypeFacts, ff *FieldFacts) error {
	w.pf("{")
	w.in()
	saved := g.tmp("saved")
	w.pf("%s := %s.Position()", saved, env.dec)
	var posExpr string
	switch ff.Offset.Kind {
	case ir.OffsetAbsolute:
		posExpr = fmt.Sprintf("%d", ff.Offset.Value)
	case ir.OffsetNegativeFromEnd:
		posExpr = fmt.Sprintf("%s.BytesLen() - %d", env.dec, ff.Offset.Value)
	case ir.OffsetFieldReferenced:
		n, err := g.lengthValueExpr(w, env, ff.Offset.Field, tf.Fields)
		if err != nil {
			return err
		}
		posExpr = n
	default:
		return fmt.Errorf("codegen: instance field %q has unknown offset kind %q", ff.SchemaName, ff.Offset.Kind)
	}
	w.pf("if err := %s.Seek(%s); err != nil {", env.dec, posExpr)
	w.in()
	w.pf("return %serr", env.zero)
	w.out()
	w.pf("}")
	if err := g.renderDecodePlain(w, env, tf, ff, "v."+ff.GoName, tf.Fields); err != nil {
		return err
	}
	w.pf("if err := %s.Seek(%s); err != nil {", env.dec, saved)
	w.in()
	w.pf("return %serr", env.zero)
	w.out()
	w.pf("}")
	w.out()
	w.pf("}")
	return nil
}

// lengthValueExpr resolves a length/offset field reference to an int
// expression: a sibling decoded earlier in the same frame, else a decode
// context lookup.
func (g *generator) lengthValueExpr(w *body, env decEnv, name string, bound []*FieldFacts) (string, error) {
	for _, f := range bound {
		if f.SchemaName == name {
			return fmt.Sprintf("int(v.%s)", f.GoName), nil
		}
	}
	if env.ctx == "" {
		return "", fmt.Errorf("codegen: length field %q is not local and no decoding context is in scope", name)
	}
	lv := g.tmp("lv")
	ok := g.tmp("ok")
	w.pf("%s, %s := %s.Get(%q)", lv, ok, env.ctx, name)
	w.pf("if !%s {", ok)
	w.in()
	w.pf(`return %sruntime.New(runtime.MissingContext, "missing length field %s")`, env.zero, name)
	w.out()
	w.pf("}")
	return fmt.Sprintf("int(%s)", lv), nil
}

// decodePredicate translates a conditional predicate in a decode body.
func (g *generator) decodePredicate(w *body, env decEnv, pred string) (string, error) {
	return translatePredicate(w, pred, predicateEnv{
		fieldExpr: func(name string) string { return "v." + toGoName(name) },
		ancestor: func(w *body, depth int, name string) (string, error) {
			if env.ctx == "" {
				return "", fmt.Errorf("codegen: ancestor predicate reference %q without decoding context", name)
			}
			av := g.tmp("av")
			ok := g.tmp("ok")
			w.pf("%s, %s := %s.Get(%q)", av, ok, env.ctx, name)
			w.pf("if !%s {", ok)
			w.in()
			w.pf(`return %sruntime.New(runtime.MissingContext, "missing parent field %s")`, env.zero, name)
			w.out()
			w.pf("}")
			return av, nil
		},
	})
}
