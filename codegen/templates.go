package codegen

import (
	"bytes"
	"fmt"
	"text/template"
)

// tmpl is the single template set the generator renders declarations
// through: the per-type encode/decode function scaffolding and the public
// entry points. Statement bodies are pre-rendered by the emitters in
// encode.go/decode.go and inserted as text.
var tmpl = template.Must(template.New("codegen").Parse(rootTemplateSrc))

func execTmpl(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("codegen: template %q: %w", name, err)
	}
	return buf.String(), nil
}

// funcData parameterizes the encodeFunc/decodeFunc templates.
type funcData struct {
	GoName string
	Param  string // encode: the value parameter's type
	Ret    string // decode: the result type
	Ctx    bool
	Body   string
	Bare   bool // decode only: the body performs its own returns
}

// entryData parameterizes the public entry-point templates for one type.
type entryData struct {
	GoName     string
	SchemaName string
	Input      string
	Output     string
	BitOrder   string
	EncodeCtx  bool
	DecodeCtx  bool
}

const rootTemplateSrc = `
{{define "encodeFunc"}}func encode{{.GoName}}(enc *runtime.BitStreamEncoder{{if .Ctx}}, ctx *runtime.EncodingContext{{end}}, v {{.Param}}) error {
{{.Body}}	return nil
}

{{end}}

{{define "decodeFunc"}}func decode{{.GoName}}(dec *runtime.BitStreamDecoder{{if .Ctx}}, ctx *runtime.DecodingContext{{end}}) ({{.Ret}}, error) {
{{if .Bare}}{{.Body}}{{else}}	var v {{.Ret}}
{{.Body}}	return v, nil
{{end}}}

{{end}}

{{define "entries"}}// Encode{{.GoName}} serializes one {{.SchemaName}} value to its wire bytes.
func Encode{{.GoName}}(v {{.Input}}) ([]byte, error) {
	enc := runtime.NewBitStreamEncoder({{.BitOrder}})
	if err := Encode{{.GoName}}Into(enc, v); err != nil {
		return nil, err
	}
	return enc.Finish(), nil
}

// Encode{{.GoName}}Into appends v's wire bytes to an existing stream.
func Encode{{.GoName}}Into(enc *runtime.BitStreamEncoder, v {{.Input}}) error {
{{if .EncodeCtx}}	ctx := runtime.NewEncodingContext()
	return encode{{.GoName}}(enc, ctx, v)
{{else}}	return encode{{.GoName}}(enc, v)
{{end}}}
{{if .EncodeCtx}}
// Encode{{.GoName}}WithContext writes v into the stream under an existing
// encoding context, for callers composing larger messages by hand.
func Encode{{.GoName}}WithContext(enc *runtime.BitStreamEncoder, ctx *runtime.EncodingContext, v {{.Input}}) error {
	return encode{{.GoName}}(enc, ctx, v)
}
{{end}}
// Decode{{.GoName}} decodes one {{.SchemaName}} from the start of b.
func Decode{{.GoName}}(b []byte) ({{.Output}}, error) {
	dec := runtime.NewBitStreamDecoder(b, {{.BitOrder}})
	return Decode{{.GoName}}FromStream(dec)
}

// Decode{{.GoName}}FromStream decodes one {{.SchemaName}} at the stream's
// current position.
func Decode{{.GoName}}FromStream(dec *runtime.BitStreamDecoder) ({{.Output}}, error) {
{{if .DecodeCtx}}	ctx := runtime.NewDecodingContext()
	return decode{{.GoName}}(dec, ctx)
{{else}}	return decode{{.GoName}}(dec)
{{end}}}
{{if .DecodeCtx}}
// Decode{{.GoName}}FromStreamWithContext decodes one {{.SchemaName}} under
// an existing decoding context carrying parent-frame values.
func Decode{{.GoName}}FromStreamWithContext(dec *runtime.BitStreamDecoder, ctx *runtime.DecodingContext) ({{.Output}}, error) {
	return decode{{.GoName}}(dec, ctx)
}
{{end}}
{{end}}`
