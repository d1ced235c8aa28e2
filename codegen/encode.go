package codegen

import (
	"fmt"

	"github.com/binschema/binschema/ir"
)

// encEnv carries the stream/context variable names a rendered statement
// writes against. Sub-streams (content-first buffers, measurement passes)
// get a derived env whose offsets no longer correspond to message offsets.
type encEnv struct {
	enc  string
	ctx  string // "" when the enclosing function has no context parameter
	root bool   // stream offsets equal message offsets
}

func (e encEnv) withEnc(enc string) encEnv {
	e.enc = enc
	e.root = false
	return e
}

// posExpr is the current byte offset relative to the message start.
func (e encEnv) posExpr() string {
	if e.ctx != "" {
		return fmt.Sprintf("%s.BaseOffset() + %s.ByteOffset()", e.ctx, e.enc)
	}
	return e.enc + ".ByteOffset()"
}

// compositeEncodeBody renders the statement body of encode<T> for a
// composite type.
func (g *generator) compositeEncodeBody(tf *TypeFacts) (string, error) {
	g.tmpN = 0
	g.curPosCaptures = map[string]string{}
	g.curChildCtx = ""
	g.curInputView = tf.Split()

	env := encEnv{enc: "enc", root: true}
	if tf.Info.NeedsEncodeContext {
		env.ctx = "ctx"
	}

	w := newBody(1)
	if env.ctx != "" && g.anyNestedNeedsEncodeCtx(tf) {
		if err := g.buildSnapshot(w, env, tf); err != nil {
			return "", err
		}
	}
	if err := g.renderEncodeSeq(w, env, tf, tf.Fields); err != nil {
		return "", err
	}
	return w.String(), nil
}

// renderEncodeSeq renders a run of sequence fields, intercepting
// content-first (`from_after_field`) length fields: everything after the
// named field is encoded to a temporary stream first, the length is written
// from the accumulated size, and the buffered bytes are appended. Nested
// occurrences compose through the recursive call.
func (g *generator) renderEncodeSeq(w *body, env encEnv, tf *TypeFacts, fields []*FieldFacts) error {
	for i := 0; i < len(fields); i++ {
		ff := fields[i]

		if ff.Computed != nil && ff.Computed.FromAfterField != "" {
			idxX := i
			for j, other := range fields {
				if other.SchemaName == ff.Computed.FromAfterField {
					idxX = j
					break
				}
			}
			if idxX < i {
				return fmt.Errorf("codegen: %s.%s: from_after_field %q precedes the length field", tf.SchemaName, ff.SchemaName, ff.Computed.FromAfterField)
			}
			sub := g.tmp("sub")
			w.pf("%s := runtime.NewBitStreamEncoder(%s.Order())", sub, env.enc)
			if err := g.renderEncodeSeq(w, env.withEnc(sub), tf, fields[idxX+1:]); err != nil {
				return err
			}
			sb := g.tmp("sb")
			w.pf("%s := %s.Finish()", sb, sub)
			if err := g.writeComputedWidth(w, env, ff, fmt.Sprintf("uint64(len(%s))", sb)); err != nil {
				return err
			}
			if err := g.renderEncodeSeq(w, env, tf, fields[i+1:idxX+1]); err != nil {
				return err
			}
			w.pf("%s.WriteBytes(%s)", env.enc, sb)
			return nil
		}

		if err := g.renderEncodeField(w, env, tf, ff, "v."+ff.GoName); err != nil {
			return err
		}
	}
	return nil
}

// renderEncodeField renders one field: padding, conditional wrapping,
// position capture, const emission, computed resolution, or the plain
// write.
func (g *generator) renderEncodeField(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, val string) error {
	if ff.IsPadding() {
		g.renderPaddingEncode(w, env, ff)
		return nil
	}

	if ff.Conditional != "" {
		expr, err := g.encodePredicate(w, env, ff.Conditional)
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

	if env.root && g.typePositionTargets(tf)[ff.SchemaName] {
		pos := "pos" + ff.GoName
		w.pf("%s := %s", pos, env.posExpr())
		g.curPosCaptures[ff.SchemaName] = pos
	}

	switch {
	case ff.Const != nil:
		return g.renderConstEncode(w, env, ff)
	case ff.Computed != nil:
		cv, err := g.computedValue(w, env, tf, ff)
		if err != nil {
			return err
		}
		return g.writeComputedWidth(w, env, ff, cv)
	default:
		return g.renderEncodePlain(w, env, tf, ff, val)
	}
}

// typePositionTargets collects the local field names referenced by
// position_of computed fields of the same sequence, so their write offsets
// are captured during the forward pass.
func (g *generator) typePositionTargets(tf *TypeFacts) map[string]bool {
	out := map[string]bool{}
	for _, f := range tf.Fields {
		if f.Computed == nil || f.Computed.Kind != ir.ComputedPositionOf {
			continue
		}
		tgt, err := ir.ParseTarget(f.Computed.Target)
		if err == nil && tgt.Kind == ir.TargetLocal {
			out[tgt.FieldName] = true
		}
	}
	return out
}

// writeComputedWidth writes an already-derived uint64 value at the computed
// field's declared width/encoding.
func (g *generator) writeComputedWidth(w *body, env encEnv, ff *FieldFacts, value string) error {
	switch {
	case ff.Type.Kind.IsIntegerPrimitive():
		w.pf("%s", writeUintCall(env.enc, ff.Type.Kind, ff.Endianness, value))
	case ff.Type.Kind == ir.KindVarlength:
		w.pf("%s.WriteVarlength(%s, %s)", env.enc, value, varlengthExpr(ff.Type.Varlength))
	case ff.Type.Kind == ir.KindBit:
		w.pf("%s.WriteBits(%s, %d)", env.enc, value, ff.Type.BitWidth)
	default:
		return fmt.Errorf("codegen: computed field %q has non-integer type %q", ff.SchemaName, ff.Type.Kind)
	}
	return nil
}

func (g *generator) renderConstEncode(w *body, env encEnv, ff *FieldFacts) error {
	lit := ff.Const
	switch {
	case ff.Type.Kind.IsIntegerPrimitive():
		w.pf("%s", writeUintCall(env.enc, ff.Type.Kind, ff.Endianness, constIntExpr(lit.Int)))
	case ff.Type.Kind == ir.KindVarlength:
		w.pf("%s.WriteVarlength(%s, %s)", env.enc, constIntExpr(lit.Int), varlengthExpr(ff.Type.Varlength))
	case ff.Type.Kind == ir.KindBit:
		w.pf("%s.WriteBits(%s, %d)", env.enc, constIntExpr(lit.Int), ff.Type.BitWidth)
	case ff.Type.Kind == ir.KindString:
		w.pf("%s.WriteBytes([]byte(%q))", env.enc, lit.Str)
	case isByteArray(ff.Type):
		w.pf("%s.WriteBytes(%s)", env.enc, byteLiteral(lit.Bytes))
	default:
		return fmt.Errorf("codegen: const field %q has unsupported type %q", ff.SchemaName, ff.Type.Kind)
	}
	return nil
}

func constIntExpr(v int64) string {
	if v > 9 {
		return fmt.Sprintf("0x%x", v)
	}
	return fmt.Sprintf("%d", v)
}

func (g *generator) renderPaddingEncode(w *body, env encEnv, ff *FieldFacts) {
	w.pf("for %s.ByteOffset()%%%d != 0 {", env.enc, ff.Type.PaddingAlignment)
	w.in()
	w.pf("%s.WriteUint8(0)", env.enc)
	w.out()
	w.pf("}")
}

// renderEncodePlain writes a caller-supplied field value by kind.
func (g *generator) renderEncodePlain(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, val string) error {
	k := ff.Type.Kind
	switch {
	case k.IsIntegerPrimitive():
		g.renderIntEncode(w, env, ff, val)
	case k.IsFloatPrimitive():
		w.pf("%s.WriteFloat%d(%s, %s)", env.enc, k.BitWidth(), val, endianExpr(ff.Endianness))
	case k == ir.KindBit:
		if ff.Type.BitWidth == 1 {
			w.pf("%s.WriteBits(runtime.BoolBit(%s), 1)", env.enc, val)
		} else {
			w.pf("%s.WriteBits(uint64(%s), %d)", env.enc, val, ff.Type.BitWidth)
		}
	case k == ir.KindBitfield:
		for _, sub := range ff.BitSubFields {
			if sub.Const != nil {
				w.pf("%s.WriteBits(%s, %d)", env.enc, constIntExpr(sub.Const.Int), sub.Type.BitWidth)
				continue
			}
			if err := g.renderEncodePlain(w, env, tf, sub, val+"."+sub.GoName); err != nil {
				return err
			}
		}
	case k == ir.KindVarlength:
		w.pf("%s.WriteVarlength(uint64(%s), %s)", env.enc, val, varlengthExpr(ff.Type.Varlength))
	case k == ir.KindString:
		return g.renderEncodeString(w, env, ff, val)
	case k == ir.KindArray:
		return g.renderEncodeArray(w, env, tf, ff, val)
	case k == ir.KindOptional:
		return g.renderEncodeOptional(w, env, tf, ff, val)
	case k == ir.KindRef:
		return g.renderEncodeRefCall(w, env, ff.Type.RefName, val)
	case k == ir.KindBackReference:
		return g.renderEncodeBackRef(w, env, ff, val)
	case k == ir.KindInlineUnion:
		return g.renderInlineUnionEncodeCall(w, env, ff, val)
	default:
		return fmt.Errorf("codegen: unsupported encode kind %q for field %q", k, ff.SchemaName)
	}
	return nil
}

func (g *generator) renderIntEncode(w *body, env encEnv, ff *FieldFacts, val string) {
	k := ff.Type.Kind
	width := k.BitWidth()
	signed := k == ir.KindInt8 || k == ir.KindInt16 || k == ir.KindInt32 || k == ir.KindInt64
	switch {
	case width == 8 && signed:
		w.pf("%s.WriteInt8(%s)", env.enc, val)
	case width == 8:
		w.pf("%s.WriteUint8(%s)", env.enc, val)
	case signed:
		w.pf("%s.WriteInt%d(%s, %s)", env.enc, width, val, endianExpr(ff.Endianness))
	default:
		w.pf("%s.WriteUint%d(%s, %s)", env.enc, width, val, endianExpr(ff.Endianness))
	}
}

func (g *generator) renderEncodeString(w *body, env encEnv, ff *FieldFacts, val string) error {
	sp := ff.Type.String
	if sp == nil {
		return fmt.Errorf("codegen: string field %q missing spec", ff.SchemaName)
	}
	sb := g.tmp("sb")
	errv := sb + "Err"
	w.pf("%s, %s := runtime.EncodeText(%s, %s)", sb, errv, val, textEncodingExpr(sp.Encoding))
	w.pf("if %s != nil {", errv)
	w.in()
	w.pf("return %s", errv)
	w.out()
	w.pf("}")

	switch sp.Kind {
	case ir.StringLengthPrefixed:
		w.pf("%s", writeUintCall(env.enc, prefixKind(sp.LengthPrefixKind), ff.Endianness, fmt.Sprintf("uint64(len(%s))", sb)))
		w.pf("%s.WriteBytes(%s)", env.enc, sb)
	case ir.StringNullTerminated:
		w.pf("%s.WriteBytes(%s)", env.enc, sb)
		w.pf("%s.WriteUint8(0)", env.enc)
	case ir.StringFixed:
		w.pf("if len(%s) != %d {", sb, sp.FixedLength)
		w.in()
		w.pf(`return runtime.New(runtime.InvalidValue, "fixed string %s must encode to %d bytes, got %%d", len(%s))`, ff.SchemaName, sp.FixedLength, sb)
		w.out()
		w.pf("}")
		w.pf("%s.WriteBytes(%s)", env.enc, sb)
	case ir.StringFieldReferenced:
		w.pf("%s.WriteBytes(%s)", env.enc, sb)
	default:
		return fmt.Errorf("codegen: unsupported string kind %q", sp.Kind)
	}
	return nil
}

func (g *generator) renderEncodeOptional(w *body, env encEnv, tf *TypeFacts, ff *FieldFacts, val string) error {
	marker := "byte"
	if ff.Type.Optional != nil {
		if m := ff.Type.Optional.PresenceMarker; m != "" {
			marker = m
		}
	}
	w.pf("if %s != nil {", val)
	w.in()
	if marker == "bit" {
		w.pf("%s.WriteBits(1, 1)", env.enc)
	} else {
		w.pf("%s.WriteUint8(1)", env.enc)
	}
	if err := g.renderEncodePlain(w, env, tf, ff.OptionalValue, "(*"+val+")"); err != nil {
		return err
	}
	w.out()
	w.pf("} else {")
	w.in()
	if marker == "bit" {
		w.pf("%s.WriteBits(0, 1)", env.enc)
	} else {
		w.pf("%s.WriteUint8(0)", env.enc)
	}
	w.out()
	w.pf("}")
	return nil
}

// renderEncodeRefCall emits the nested encode call for a named type,
// passing the extended child context when the callee needs one. Unified
// owners hold Output-view nested values, so the call converts them to the
// callee's Input view first.
func (g *generator) renderEncodeRefCall(w *body, env encEnv, typeName, val string) error {
	info := g.ann.Types[typeName]
	if info == nil {
		return fmt.Errorf("codegen: reference to unknown type %q", typeName)
	}
	if !g.curInputView && g.typeSplits(typeName) {
		val = "(" + val + ").Input()"
	}
	callee := "encode" + toGoName(typeName)
	if info.NeedsEncodeContext {
		ctxArg := g.curChildCtx
		if ctxArg == "" {
			ctxArg = env.ctx
		}
		if ctxArg == "" {
			return fmt.Errorf("codegen: %q needs an encoding context but none is in scope", typeName)
		}
		w.pf("if err := %s(%s, %s, %s); err != nil {", callee, env.enc, ctxArg, val)
	} else {
		w.pf("if err := %s(%s, %s); err != nil {", callee, env.enc, val)
	}
	w.in()
	w.pf("return err")
	w.out()
	w.pf("}")
	return nil
}

func (g *generator) renderInlineUnionEncodeCall(w *body, env encEnv, ff *FieldFacts, val string) error {
	callee := "encode" + ff.IfaceName
	if g.unionNeedsEncodeCtx(ff.InlineUnion) {
		ctxArg := g.curChildCtx
		if ctxArg == "" {
			ctxArg = env.ctx
		}
		w.pf("if err := %s(%s, %s, %s); err != nil {", callee, env.enc, ctxArg, val)
	} else {
		w.pf("if err := %s(%s, %s); err != nil {", callee, env.enc, val)
	}
	w.in()
	w.pf("return err")
	w.out()
	w.pf("}")
	return nil
}

func (g *generator) unionNeedsEncodeCtx(uf *UnionFacts) bool {
	if uf == nil {
		return false
	}
	for _, v := range uf.Variants {
		if info := g.ann.Types[v.TypeName]; info != nil && info.NeedsEncodeContext {
			return true
		}
	}
	return false
}

func (g *generator) renderEncodeBackRef(w *body, env encEnv, ff *FieldFacts, val string) error {
	br := ff.Type.BackRef
	if br == nil {
		return fmt.Errorf("codegen: back_reference field %q missing spec", ff.SchemaName)
	}
	if env.ctx == "" {
		return fmt.Errorf("codegen: back_reference field %q without encoding context", ff.SchemaName)
	}

	sub := g.tmp("br")
	w.pf("%s := runtime.NewBitStreamEncoder(%s.Order())", sub, env.enc)
	if err := g.renderEncodeRefCall(w, env.withEnc(sub), br.TargetType, val); err != nil {
		return err
	}
	bb := g.tmp("bb")
	w.pf("%s := %s.Finish()", bb, sub)

	off := g.tmp("off")
	ok := g.tmp("ok")
	w.pf("if %s, %s := %s.Dictionary().Lookup(%s); %s {", off, ok, env.ctx, bb, ok)
	w.in()
	w.pf("if uint64(%s) &^ 0x%x != 0 {", off, br.OffsetMask)
	w.in()
	w.pf(`return runtime.New(runtime.InvalidValue, "back-reference offset %%d exceeds pointer range", %s)`, off)
	w.out()
	w.pf("}")
	w.pf("%s", writeUintCall(env.enc, br.StorageKind, ff.Endianness, fmt.Sprintf("0x%x|uint64(%s)&0x%x", br.MarkerBits, off, br.OffsetMask)))
	w.out()
	w.pf("} else {")
	w.in()
	w.pf("%s.Dictionary().Record(%s, %s)", env.ctx, bb, env.posExpr())
	w.pf("%s.WriteBytes(%s)", env.enc, bb)
	w.out()
	w.pf("}")
	return nil
}

// encodePredicate translates a conditional predicate in an encode body.
func (g *generator) encodePredicate(w *body, env encEnv, pred string) (string, error) {
	return translatePredicate(w, pred, predicateEnv{
		fieldExpr: func(name string) string { return "v." + toGoName(name) },
		ancestor: func(w *body, depth int, name string) (string, error) {
			if env.ctx == "" {
				return "", fmt.Errorf("codegen: ancestor predicate reference %q without encoding context", name)
			}
			fv, err := g.ancestorField(w, env, depth, name, "")
			if err != nil {
				return "", err
			}
			return fv + ".Int", nil
		},
	})
}
