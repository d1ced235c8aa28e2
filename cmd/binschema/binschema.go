// Command binschema compiles declarative binary-format schemas into Go
// encode/decode source.
package main

import (
	"flag"
	"fmt"
	"os"
)

// command is one binschema subcommand. Each command owns its flag parsing:
// run receives a FlagSet already named after the command, declares its
// flags, parses, and executes, so the usage text lives next to the flags
// it describes.
type command struct {
	name    string
	usage   string // argument synopsis shown after the command name
	summary string
	run     func(fs *flag.FlagSet, args []string) error
}

// commands is the subcommand table; printGlobalHelp renders itself from it
// so help text never drifts from what is dispatchable.
var commands = []command{
	{
		name:    "generate",
		usage:   "[-o file] [-pkg name] <schema.json|schema.yaml>",
		summary: "emit Go encode/decode source for every type in a schema",
		run:     runGenerate,
	},
	{
		name:    "validate",
		usage:   "<schema.json|schema.yaml>",
		summary: "check a schema for errors without generating anything",
		run:     runValidate,
	},
	{
		name:    "stats",
		usage:   "<schema.json|schema.yaml>",
		summary: "report per-type field counts, view splits, and context needs",
		run:     runStats,
	},
	{
		name:    "doc",
		usage:   "<schema.json|schema.yaml>",
		summary: "render the schema's types as Markdown tables",
		run:     runDoc,
	},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func dispatch(name string, args []string) error {
	c, ok := lookupCommand(name)
	if !ok {
		return fmt.Errorf("unknown command %q; run 'binschema --help'", name)
	}
	fs := flag.NewFlagSet("binschema "+c.name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: binschema %s %s\n\n%s\n", c.name, c.usage, c.summary)
		fs.PrintDefaults()
	}
	return c.run(fs, args)
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "--help" || os.Args[1] == "-h" {
		printGlobalHelp()
		if len(os.Args) < 2 {
			os.Exit(1)
		}
		return
	}

	if err := dispatch(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printGlobalHelp() {
	fmt.Fprintf(os.Stderr, "binschema compiles declarative binary-format schemas (ZIP, DNS, DER,\nPNG style) into Go encode/decode source.\n\nUsage: binschema <command> [flags] <schema>\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(os.Stderr, "\nSchemas are JSON or YAML documents; the file extension picks the codec.\nRun 'binschema <command>' with no arguments for that command's flags.\n")
}
