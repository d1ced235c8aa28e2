// Package codegen lowers an analyzed schema into Go source: per-type
// structs, encode/decode routines, and the public entry points, all linked
// against the runtime package. The emitted code is monomorphic per type;
// nothing in it walks schema data at runtime.
package codegen

import (
	"fmt"
	"strings"

	"github.com/binschema/binschema/analyzer"
	"github.com/binschema/binschema/ir"
)

// Options configures one Generate call.
type Options struct {
	// PackageName of the emitted file; defaults to "wire".
	PackageName string
	// RuntimeImport is the import path of the bit-stream runtime; defaults
	// to the in-repo runtime package.
	RuntimeImport string
	// RunID, when non-empty, is stamped into the file header so an emitted
	// file can be traced back to the generator invocation that produced it.
	RunID string
}

// generator holds the state of one Generate call.
type generator struct {
	ann  *analyzer.Annotated
	opts Options

	facts map[string]*TypeFacts

	decls strings.Builder // type declarations and conversions
	funcs strings.Builder // encode/decode functions and entry points

	defaultEndian ir.Endianness
	bitOrder      string // runtime bit-order expression for the schema

	needBytes bool

	// per-function rendering state
	tmpN           int
	curPosCaptures map[string]string
	curChildCtx    string
	// curInputView is true while the encode body being rendered reads
	// Input-view values; unified owners store Output-view nested values and
	// their call sites convert through Input().
	curInputView bool
}

// typeSplits reports whether a named type's Input and Output Go types
// differ, following alias chains.
func (g *generator) typeSplits(name string) bool {
	fb := &factsBuilder{ann: g.ann, defaultEndian: g.defaultEndian}
	return fb.refGoType(name, true) != fb.refGoType(name, false)
}

func (g *generator) tmp(prefix string) string {
	g.tmpN++
	return fmt.Sprintf("%s%d", prefix, g.tmpN)
}

func (g *generator) factsOf(name string) (*TypeFacts, error) {
	if tf, ok := g.facts[name]; ok {
		return tf, nil
	}
	tf, err := BuildTypeFacts(g.ann, name)
	if err != nil {
		return nil, err
	}
	g.facts[name] = tf
	return tf, nil
}

// Generate renders the complete Go source file for an analyzed schema.
func Generate(a *analyzer.Annotated, opts Options) (string, error) {
	if opts.PackageName == "" {
		opts.PackageName = "wire"
	}
	if opts.RuntimeImport == "" {
		opts.RuntimeImport = "github.com/binschema/binschema/runtime"
	}

	g := &generator{
		ann:           a,
		opts:          opts,
		facts:         make(map[string]*TypeFacts),
		defaultEndian: a.Schema.Config.Endianness,
		bitOrder:      "runtime.MSBFirst",
	}
	if g.defaultEndian == "" {
		g.defaultEndian = ir.BigEndian
	}
	if a.Schema.Config.BitOrder == ir.LSBFirst {
		g.bitOrder = "runtime.LSBFirst"
	}

	for _, name := range a.TopoOrder {
		if err := g.renderType(name); err != nil {
			return "", err
		}
	}

	var out strings.Builder
	out.WriteString("// Code generated by binschema. DO NOT EDIT.\n")
	if opts.RunID != "" {
		fmt.Fprintf(&out, "// generator-run: %s\n", opts.RunID)
	}
	fmt.Fprintf(&out, "\npackage %s\n\nimport (\n", opts.PackageName)
	if g.needBytes {
		out.WriteString("\t\"bytes\"\n\n")
	}
	fmt.Fprintf(&out, "\t\"%s\"\n)\n\n", opts.RuntimeImport)
	out.WriteString(g.decls.String())
	out.WriteString(g.funcs.String())
	return out.String(), nil
}

func (g *generator) renderType(name string) error {
	tf, err := g.factsOf(name)
	if err != nil {
		return err
	}
	switch tf.Def.Kind {
	case ir.TypeComposite:
		return g.renderComposite(tf)
	case ir.TypeAlias:
		return g.renderAlias(tf)
	case ir.TypeUnion:
		return g.renderUnion(tf)
	default:
		return fmt.Errorf("codegen: type %q has unknown kind %q", name, tf.Def.Kind)
	}
}

func (g *generator) renderComposite(tf *TypeFacts) error {
	if err := g.emitCompositeDecls(tf); err != nil {
		return err
	}

	encBody, err := g.compositeEncodeBody(tf)
	if err != nil {
		return err
	}
	s, err := execTmpl("encodeFunc", funcData{
		GoName: tf.GoName,
		Param:  tf.InputGoName,
		Ctx:    tf.Info.NeedsEncodeContext,
		Body:   encBody,
	})
	if err != nil {
		return err
	}
	g.funcs.WriteString(s)

	decBody, err := g.compositeDecodeBody(tf)
	if err != nil {
		return err
	}
	s, err = execTmpl("decodeFunc", funcData{
		GoName: tf.GoName,
		Ret:    tf.OutputGoName,
		Ctx:    tf.Info.NeedsDecodeContext,
		Body:   decBody,
	})
	if err != nil {
		return err
	}
	g.funcs.WriteString(s)

	if err := g.renderInlineUnionHelpers(tf); err != nil {
		return err
	}
	return g.renderEntries(tf)
}

// renderInlineUnionHelpers emits the encode/decode functions backing each
// inline Choice field of a composite.
func (g *generator) renderInlineUnionHelpers(tf *TypeFacts) error {
	for _, ff := range inlineUnionFields(tf) {
		encCtx := g.unionNeedsEncodeCtx(ff.InlineUnion)
		g.tmpN = 0
		g.curChildCtx = ""
		g.curPosCaptures = map[string]string{}
		g.curInputView = true
		env := encEnv{enc: "enc"}
		if encCtx {
			env.ctx = "ctx"
		}
		w := newBody(1)
		if err := g.renderUnionSwitch(w, env, ff.InlineUnion, "v", nil); err != nil {
			return err
		}
		s, err := execTmpl("encodeFunc", funcData{
			GoName: ff.IfaceName,
			Param:  ff.IfaceName,
			Ctx:    encCtx,
			Body:   w.String(),
		})
		if err != nil {
			return err
		}
		g.funcs.WriteString(s)

		decCtx := g.unionNeedsDecodeCtx(ff.InlineUnion)
		g.tmpN = 0
		denv := decEnv{dec: "dec", zero: "nil, "}
		if decCtx {
			denv.ctx = "ctx"
		}
		dw := newBody(1)
		if err := g.unionDecodeDispatch(dw, denv, ff.InlineUnion, ff.IfaceName); err != nil {
			return err
		}
		s, err = execTmpl("decodeFunc", funcData{
			GoName: ff.IfaceName,
			Ret:    ff.IfaceName,
			Ctx:    decCtx,
			Body:   dw.String(),
			Bare:   true,
		})
		if err != nil {
			return err
		}
		g.funcs.WriteString(s)
	}
	return nil
}

func (g *generator) renderAlias(tf *TypeFacts) error {
	g.emitAliasDecl(tf)

	split := tf.Alias.InputGoType != tf.Alias.OutputGoType
	inputName := tf.GoName
	outputName := tf.GoName
	if split {
		inputName = tf.GoName + "Input"
		outputName = tf.GoName + "Output"
	}

	if tf.Alias.Type.Kind == ir.KindRef {
		target := toGoName(tf.Alias.Type.RefName)
		info := g.ann.Types[tf.Alias.Type.RefName]

		w := newBody(1)
		env := encEnv{enc: "enc", root: true}
		if tf.Info.NeedsEncodeContext {
			env.ctx = "ctx"
		}
		g.tmpN = 0
		g.curChildCtx = ""
		g.curPosCaptures = map[string]string{}
		g.curInputView = true
		if err := g.renderEncodeRefCall(w, env, tf.Alias.Type.RefName, "v"); err != nil {
			return err
		}
		s, err := execTmpl("encodeFunc", funcData{GoName: tf.GoName, Param: inputName, Ctx: tf.Info.NeedsEncodeContext, Body: w.String()})
		if err != nil {
			return err
		}
		g.funcs.WriteString(s)

		dw := newBody(1)
		if info != nil && info.NeedsDecodeContext && !tf.Info.NeedsDecodeContext {
			dw.pf("return decode%s(dec, runtime.NewDecodingContext())", target)
		} else if info != nil && info.NeedsDecodeContext {
			dw.pf("return decode%s(dec, ctx)", target)
		} else {
			dw.pf("return decode%s(dec)", target)
		}
		s, err = execTmpl("decodeFunc", funcData{GoName: tf.GoName, Ret: outputName, Ctx: tf.Info.NeedsDecodeContext, Body: dw.String(), Bare: true})
		if err != nil {
			return err
		}
		g.funcs.WriteString(s)
		return g.renderEntries(tf)
	}

	// Non-ref aliases: encode/decode the wrapped field shape directly.
	g.tmpN = 0
	g.curChildCtx = ""
	g.curPosCaptures = map[string]string{}
	g.curInputView = true
	env := encEnv{enc: "enc", root: true}
	if tf.Info.NeedsEncodeContext {
		env.ctx = "ctx"
	}
	w := newBody(1)
	if err := g.renderEncodePlain(w, env, tf, tf.Alias, "v"); err != nil {
		return err
	}
	s, err := execTmpl("encodeFunc", funcData{GoName: tf.GoName, Param: inputName, Ctx: tf.Info.NeedsEncodeContext, Body: w.String()})
	if err != nil {
		return err
	}
	g.funcs.WriteString(s)

	g.tmpN = 0
	denv := decEnv{dec: "dec", zero: "v, "}
	if tf.Info.NeedsDecodeContext {
		denv.ctx = "ctx"
	}
	dw := newBody(1)
	if err := g.renderDecodePlain(dw, denv, tf, tf.Alias, "v", nil); err != nil {
		return err
	}
	s, err = execTmpl("decodeFunc", funcData{GoName: tf.GoName, Ret: outputName, Ctx: tf.Info.NeedsDecodeContext, Body: dw.String()})
	if err != nil {
		return err
	}
	g.funcs.WriteString(s)
	return g.renderEntries(tf)
}

func (g *generator) renderUnion(tf *TypeFacts) error {
	g.emitIface(tf.GoName, fmt.Sprintf("%s is the %s union; the value's concrete type names the matched variant.", tf.GoName, tf.SchemaName), tf.Union)
	g.emitUnionToInput(tf.GoName, tf.Union)

	encBody, err := g.unionEncodeBody(tf)
	if err != nil {
		return err
	}
	s, err := execTmpl("encodeFunc", funcData{
		GoName: tf.GoName,
		Param:  tf.GoName,
		Ctx:    tf.Info.NeedsEncodeContext,
		Body:   encBody,
	})
	if err != nil {
		return err
	}
	g.funcs.WriteString(s)

	decBody, err := g.unionDecodeBody(tf)
	if err != nil {
		return err
	}
	s, err = execTmpl("decodeFunc", funcData{
		GoName: tf.GoName,
		Ret:    tf.GoName,
		Ctx:    tf.Info.NeedsDecodeContext,
		Body:   decBody,
		Bare:   true,
	})
	if err != nil {
		return err
	}
	g.funcs.WriteString(s)
	return g.renderEntries(tf)
}

func (g *generator) renderEntries(tf *TypeFacts) error {
	input := tf.InputGoName
	output := tf.OutputGoName
	switch tf.Def.Kind {
	case ir.TypeUnion:
		input, output = tf.GoName, tf.GoName
	case ir.TypeAlias:
		input, output = tf.GoName, tf.GoName
		if tf.Alias.InputGoType != tf.Alias.OutputGoType {
			input, output = tf.GoName+"Input", tf.GoName+"Output"
		}
	}
	s, err := execTmpl("entries", entryData{
		GoName:     tf.GoName,
		SchemaName: tf.SchemaName,
		Input:      input,
		Output:     output,
		BitOrder:   g.bitOrder,
		EncodeCtx:  tf.Info.NeedsEncodeContext,
		DecodeCtx:  tf.Info.NeedsDecodeContext,
	})
	if err != nil {
		return err
	}
	g.funcs.WriteString(s)
	return nil
}
