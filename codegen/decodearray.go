package codegen

import (
	"fmt"

	"github.com/binschema/binschema/ir"
)

func (g *generator) renderDecodeArray(w *body, env decEnv, tf *TypeFacts, ff *FieldFacts, dest string, bound []*FieldFacts) error {
	sp := ff.Type.Array
	if sp == nil {
		return fmt.Errorf("codegen: array field %q missing spec", ff.SchemaName)
	}

	if isByteArray(ff.Type) {
		if done, err := g.renderDecodeByteArray(w, env, ff, dest, bound); done || err != nil {
			return err
		}
	}

	itemType := ff.Items.OutputGoType

	switch sp.Kind {
	case ir.ArrayLengthPrefixed:
		n := g.tmp("n")
		w.pf("%s, %s := %s", n, n+"Err", readUintCall(env.dec, prefixKind(sp.LengthPrefixKind), ff.Endianness))
		g.errCheck(w, env, n+"Err")
		w.pf("%s = make([]%s, 0, int(%s))", dest, itemType, n)
		i := g.tmp("i")
		w.pf("for %s := 0; %s < int(%s); %s++ {", i, i, n, i)
		w.in()
		if err := g.decodeAppendItem(w, env, tf, ff, dest, bound); err != nil {
			return err
		}
		w.out()
		w.pf("}")
	case ir.ArrayByteLengthPrefixed:
		n := g.tmp("n")
		w.pf("%s, %s := %s", n, n+"Err", readUintCall(env.dec, prefixKind(sp.LengthPrefixKind), ff.Endianness))
		g.errCheck(w, env, n+"Err")
		end := g.tmp("end")
		w.pf("%s := %s.Position() + int(%s)", end, env.dec, n)
		w.pf("for %s.Position() < %s {", env.dec, end)
		w.in()
		if err := g.decodeAppendItem(w, env, tf, ff, dest, bound); err != nil {
			return err
		}
		w.out()
		w.pf("}")
	case ir.ArrayLengthPrefixedItems:
		n := g.tmp("n")
		w.pf("%s, %s := %s", n, n+"Err", readUintCall(env.dec, prefixKind(sp.LengthPrefixKind), ff.Endianness))
		g.errCheck(w, env, n+"Err")
		i := g.tmp("i")
		w.pf("for %s := 0; %s < int(%s); %s++ {", i, i, n, i)
		w.in()
		il := g.tmp("il")
		w.pf("%s, %s := %s", il, il+"Err", readUintCall(env.dec, prefixKind(sp.ItemLengthPrefixKind), ff.Endianness))
		g.errCheck(w, env, il+"Err")
		ib := g.tmp("ib")
		w.pf("%s, %s := %s.ReadBytes(int(%s))", ib, ib+"Err", env.dec, il)
		g.errCheck(w, env, ib+"Err")
		isub := g.tmp("isub")
		w.pf("%s := runtime.NewBitStreamDecoder(%s, %s)", isub, ib, g.bitOrder)
		if err := g.decodeAppendItem(w, env.withDec(isub), tf, ff, dest, bound); err != nil {
			return err
		}
		w.out()
		w.pf("}")
	case ir.ArrayFixed:
		i := g.tmp("i")
		w.pf("for %s := 0; %s < %d; %s++ {", i, i, sp.FixedLength, i)
		w.in()
		if err := g.decodeAppendItem(w, env, tf, ff, dest, bound); err != nil {
			return err
		}
		w.out()
		w.pf("}")
	case ir.ArrayFieldReferenced, ir.ArrayComputedCount:
		name := sp.LengthField
		if sp.Kind == ir.ArrayComputedCount {
			if sp.ComputedCount == nil {
				return fmt.Errorf("codegen: computed_count array %q missing spec", ff.SchemaName)
			}
			tgt, err := ir.ParseTarget(sp.ComputedCount.Target)
			if err != nil {
				return err
			}
			name = tgt.FieldName
		}
		n, err := g.lengthValueExpr(w, env, name, bound)
		if err != nil {
			return err
		}
		i := g.tmp("i")
		w.pf("for %s := 0; %s < %s; %s++ {", i, i, n, i)
		w.in()
		if err := g.decodeAppendItem(w, env, tf, ff, dest, bound); err != nil {
			return err
		}
		w.out()
		w.pf("}")
	case ir.ArrayNullTerminated:
		w.pf("for {")
		w.in()
		t := g.tmp("t")
		w.pf("%s, %s := %s.PeekUint8()", t, t+"Err", env.dec)
		g.errCheck(w, env, t+"Err")
		w.pf("if %s == 0 {", t)
		w.in()
		w.pf("if _, err := %s.ReadUint8(); err != nil {", env.dec)
		w.in()
		w.pf("return %serr", env.zero)
		w.out()
		w.pf("}")
		w.pf("break")
		w.out()
		w.pf("}")
		if err := g.decodeAppendItem(w, env, tf, ff, dest, bound); err != nil {
			return err
		}
		w.out()
		w.pf("}")
	case ir.ArrayEOFTerminated:
		w.pf("for %s.Position() < %s.BytesLen() {", env.dec, env.dec)
		w.in()
		if err := g.decodeAppendItem(w, env, tf, ff, dest, bound); err != nil {
			return err
		}
		w.out()
		w.pf("}")
	case ir.ArrayByteBudgeted:
		n, err := g.lengthValueExpr(w, env, sp.ByteBudgetField, bound)
		if err != nil {
			return err
		}
		end := g.tmp("end")
		w.pf("%s := %s.Position() + %s", end, env.dec, n)
		w.pf("for %s.Position() < %s {", env.dec, end)
		w.in()
		if err := g.decodeAppendItem(w, env, tf, ff, dest, bound); err != nil {
			return err
		}
		w.out()
		w.pf("}")
	case ir.ArrayVariantTerminated:
		fb := &factsBuilder{ann: g.ann, defaultEndian: g.defaultEndian}
		term := fb.refGoType(sp.VariantTerminator, false)
		w.pf("for {")
		w.in()
		it := g.tmp("it")
		w.pf("var %s %s", it, itemType)
		if err := g.renderDecodeItem(w, env, tf, ff.Items, it, bound); err != nil {
			return err
		}
		w.pf("%s = append(%s, %s)", dest, dest, it)
		w.pf("if _, ok := %s.(%s); ok {", it, term)
		w.in()
		w.pf("break")
		w.out()
		w.pf("}")
		w.out()
		w.pf("}")
	case ir.ArraySignatureTerminated:
		g.needBytes = true
		w.pf("for %s.Position() < %s.BytesLen() {", env.dec, env.dec)
		w.in()
		sg := g.tmp("sg")
		w.pf("if %s, %s := %s.PeekBytes(%d); %s == nil && bytes.Equal(%s, %s) {", sg, sg+"Err", env.dec, len(sp.Signature), sg+"Err", sg, byteLiteral(sp.Signature))
		w.in()
		w.pf("break")
		w.out()
		w.pf("}")
		if err := g.decodeAppendItem(w, env, tf, ff, dest, bound); err != nil {
			return err
		}
		w.out()
		w.pf("}")
	default:
		return fmt.Errorf("codegen: unsupported array kind %q for field %q", sp.Kind, ff.SchemaName)
	}
	return nil
}

// renderDecodeByteArray handles the []byte fast paths; it reports whether
// the kind was handled (signature/variant-terminated byte arrays fall back
// to the element loop).
func (g *generator) renderDecodeByteArray(w *body, env decEnv, ff *FieldFacts, dest string, bound []*FieldFacts) (bool, error) {
	sp := ff.Type.Array
	read := func(n string) {
		rb := g.tmp("rb")
		w.pf("%s, %s := %s.ReadBytes(%s)", rb, rb+"Err", env.dec, n)
		g.errCheck(w, env, rb+"Err")
		w.pf("%s = %s", dest, rb)
	}
	switch sp.Kind {
	case ir.ArrayLengthPrefixed, ir.ArrayByteLengthPrefixed:
		n := g.tmp("n")
		w.pf("%s, %s := %s", n, n+"Err", readUintCall(env.dec, prefixKind(sp.LengthPrefixKind), ff.Endianness))
		g.errCheck(w, env, n+"Err")
		read("int(" + n + ")")
	case ir.ArrayFixed:
		read(fmt.Sprintf("%d", sp.FixedLength))
	case ir.ArrayFieldReferenced:
		n, err := g.lengthValueExpr(w, env, sp.LengthField, bound)
		if err != nil {
			return false, err
		}
		read(n)
	case ir.ArrayComputedCount:
		if sp.ComputedCount == nil {
			return false, fmt.Errorf("codegen: computed_count array %q missing spec", ff.SchemaName)
		}
		tgt, err := ir.ParseTarget(sp.ComputedCount.Target)
		if err != nil {
			return false, err
		}
		n, err := g.lengthValueExpr(w, env, tgt.FieldName, bound)
		if err != nil {
			return false, err
		}
		read(n)
	case ir.ArrayEOFTerminated:
		read(fmt.Sprintf("%s.BytesLen() - %s.Position()", env.dec, env.dec))
	case ir.ArrayByteBudgeted:
		n, err := g.lengthValueExpr(w, env, sp.ByteBudgetField, bound)
		if err != nil {
			return false, err
		}
		read(n)
	case ir.ArrayNullTerminated:
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
		w.pf("%s = append(%s, %s)", dest, dest, b)
		w.out()
		w.pf("}")
	default:
		return false, nil
	}
	return true, nil
}

func (g *generator) decodeAppendItem(w *body, env decEnv, tf *TypeFacts, ff *FieldFacts, dest string, bound []*FieldFacts) error {
	it := g.tmp("it")
	w.pf("var %s %s", it, ff.Items.OutputGoType)
	if err := g.renderDecodeItem(w, env, tf, ff.Items, it, bound); err != nil {
		return err
	}
	w.pf("%s = append(%s, %s)", dest, dest, it)
	return nil
}

func (g *generator) renderDecodeItem(w *body, env decEnv, tf *TypeFacts, items *FieldFacts, dest string, bound []*FieldFacts) error {
	switch items.Type.Kind {
	case ir.KindRef:
		return g.renderDecodeRefCall(w, env, items.Type.RefName, dest, bound)
	case ir.KindInlineUnion:
		return g.renderInlineUnionDecodeCall(w, env, items, dest, bound)
	default:
		return g.renderDecodePlain(w, env, tf, items, dest, bound)
	}
}
