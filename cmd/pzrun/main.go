// Command pzrun is the Plasma bytecode interpreter's command-line entry
// point (spec.md §6.2): pzrun [-v] <file.pz> [args...], with -h/-V exiting
// before any file is touched.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/jimbxb/plasma/gc"
	"github.com/jimbxb/plasma/interp"
	"github.com/jimbxb/plasma/loader"
	"github.com/jimbxb/plasma/logging/commonlogadapter"
)

const version = "pzrun 0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: pzrun [-v] <file.pz> [args...]\n\n")
	fmt.Fprintf(w, "Options:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// run implements pzrun's CLI contract (SPEC_FULL.md §3.1): -V/--version and
// -h/--help print to stdout and exit 0 without requiring a file argument;
// an unknown flag or a missing file argument prints usage to stderr and
// exits 2; a runtime error prints to stderr and exits 1.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pzrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "verbose logging")

	fs.Usage = func() { printUsage(stderr, fs) }

	// -V/-h are checked before flag.Parse's usual error handling since they
	// must short-circuit without requiring a file argument (SPEC_FULL.md
	// §3.1), and -h must print to stdout, distinct from the stderr the
	// unknown-flag/missing-argument cases use.
	for _, a := range args {
		if a == "-V" || a == "--version" {
			fmt.Fprintln(stdout, version)
			return 0
		}
		if a == "-h" || a == "--help" {
			printUsage(stdout, fs)
			return 0
		}
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) < 1 {
		fs.Usage()
		return 2
	}
	filename, argv := rest[0], rest[1:]

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlogadapter.Configure(verbosity)
	log := commonlogadapter.New("plasma.pzrun")

	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(stderr, "pzrun: %v\n", err)
		return 1
	}
	defer f.Close()

	sessionID := uuid.New()
	log.Info("pzrun: session start", "session", sessionID.String(), "file", filename)

	heap := gc.NewHeap(gc.WithLogger(log))
	root := gc.NewRootCapability("pzrun")
	reg := loader.NewRegistry()

	lib, err := loader.Load(reg, heap, root, f, filename, loader.WithLogger(log))
	if err != nil {
		fmt.Fprintf(stderr, "pzrun: %v\n", err)
		return 1
	}

	m := interp.NewMachine(heap, root,
		interp.WithLogger(log),
		interp.WithOutput(func(s string) { fmt.Fprint(stdout, s) }),
	)

	code, err := m.RunEntry(lib, argv)
	if err != nil {
		fmt.Fprintf(stderr, "pzrun: %v\n", err)
		return 1
	}
	return code
}
