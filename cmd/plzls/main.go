// Command plzls is the Plasma language server (SPEC_FULL.md §1), speaking
// LSP over stdio via github.com/tliron/glsp.
package main

import (
	"fmt"
	"os"

	"github.com/jimbxb/plasma/logging/commonlogadapter"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	verbosity := 0
	for _, a := range args {
		if a == "-v" || a == "--verbose" {
			verbosity = 1
		}
		if a == "-h" || a == "--help" {
			fmt.Fprintln(os.Stderr, "Usage: plzls [-v]")
			return 0
		}
	}
	commonlogadapter.Configure(verbosity)

	s := NewServer()
	if err := s.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "plzls: %v\n", err)
		return 1
	}
	return 0
}
