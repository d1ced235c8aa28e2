package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/binschema/binschema/analyzer"
	"github.com/binschema/binschema/codegen"
	"github.com/binschema/binschema/internal/docfmt"
	"github.com/binschema/binschema/internal/iohelp"
	"github.com/binschema/binschema/ir"
)

// schemaArg extracts the single schema-path argument every command takes
// after its flags.
func schemaArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		fs.Usage()
		return "", fmt.Errorf("expected exactly one schema file, got %d arguments", fs.NArg())
	}
	return fs.Arg(0), nil
}

// loadAnalyzed runs the shared front half of every command: load,
// validate, analyze.
func loadAnalyzed(path string) (*analyzer.Annotated, error) {
	s, err := iohelp.LoadSchema(path)
	if err != nil {
		return nil, err
	}
	if err := ir.Validate(s); err != nil {
		return nil, err
	}
	return analyzer.Analyze(s)
}

func runGenerate(fs *flag.FlagSet, args []string) error {
	out := fs.String("o", "", "output file (default stdout)")
	pkg := fs.String("pkg", "wire", "package name for the emitted file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := schemaArg(fs)
	if err != nil {
		return err
	}

	a, err := loadAnalyzed(path)
	if err != nil {
		return err
	}
	src, err := codegen.Generate(a, codegen.Options{
		PackageName: *pkg,
		RunID:       uuid.NewString(),
	})
	if err != nil {
		return err
	}
	if *out == "" {
		fmt.Print(src)
		return nil
	}
	if err := os.WriteFile(*out, []byte(src), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%s)\n", *out, humanize.Bytes(uint64(len(src))))
	return nil
}

func runValidate(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := schemaArg(fs)
	if err != nil {
		return err
	}

	a, err := loadAnalyzed(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "ok: %s types\n", humanize.Comma(int64(len(a.Schema.Types))))
	return nil
}

func runStats(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := schemaArg(fs)
	if err != nil {
		return err
	}

	a, err := loadAnalyzed(path)
	if err != nil {
		return err
	}
	src, err := codegen.Generate(a, codegen.Options{PackageName: "wire"})
	if err != nil {
		return err
	}

	fmt.Printf("%-24s %-10s %7s %6s %6s %6s\n", "TYPE", "KIND", "FIELDS", "SPLIT", "ECTX", "DCTX")
	for _, name := range a.TopoOrder {
		def := a.Schema.Types[name]
		info := a.Types[name]
		fields := 0
		if def.Kind == ir.TypeComposite && def.Composite != nil {
			fields = len(def.Composite.Sequence) + len(def.Composite.Instances)
		}
		fmt.Printf("%-24s %-10s %7d %6v %6v %6v\n",
			name, def.Kind, fields, info.NeedsInputOutputSplit, info.NeedsEncodeContext, info.NeedsDecodeContext)
	}
	fmt.Printf("\n%s types, emitted source %s\n",
		humanize.Comma(int64(len(a.Schema.Types))), humanize.Bytes(uint64(len(src))))
	return nil
}

func runDoc(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := schemaArg(fs)
	if err != nil {
		return err
	}

	s, err := iohelp.LoadSchema(path)
	if err != nil {
		return err
	}
	if err := ir.Validate(s); err != nil {
		return err
	}
	fmt.Print(docfmt.Render(s))
	return nil
}
