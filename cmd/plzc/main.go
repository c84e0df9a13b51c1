// Command plzc is the Plasma compiler's command-line entry point (spec.md
// §6.3). Source-to-PZ codegen is documented (spec.md §9, SPEC_FULL.md §2)
// as an external collaborator's responsibility; this binary owns the
// surrounding compile pipeline a real toolchain needs around that
// collaborator's output — quick validity checking and the compile cache —
// accepting an already-produced PZ file as its input rather than source
// text. It does not write stage dumps (package dump).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jimbxb/plasma/cache"
	"github.com/jimbxb/plasma/config"
	"github.com/jimbxb/plasma/gc"
	"github.com/jimbxb/plasma/loader"
	"github.com/jimbxb/plasma/logging/commonlogadapter"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("plzc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "verbose logging")
	output := fs.String("o", "", "write the verified module to this path (write_output)")
	noCache := fs.Bool("no-cache", false, "skip the compile cache")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: plzc [-v] [-o out.pz] [--no-cache] <input.pz>\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	for _, a := range args {
		if a == "-h" || a == "--help" {
			fmt.Fprintf(stdout, "Usage: plzc [-v] [-o out.pz] [--no-cache] <input.pz>\n\n")
			fmt.Fprintf(stdout, "Options:\n")
			fs.SetOutput(stdout)
			fs.PrintDefaults()
			return 0
		}
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fs.Usage()
		return 2
	}
	input := rest[0]

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlogadapter.Configure(verbosity)
	log := commonlogadapter.New("plasma.plzc")

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(stderr, "plzc: %v\n", err)
		return 1
	}

	raw, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(stderr, "plzc: %v\n", err)
		return 1
	}

	var c *cache.Cache
	if !*noCache && cfg != nil {
		c, err = cache.Open(cfg.CacheDBPath())
		if err != nil {
			fmt.Fprintf(stderr, "plzc: opening compile cache: %v\n", err)
			return 1
		}
		defer c.Close()

		if e, ok, err := c.Lookup(raw); err == nil && ok {
			log.Info("plzc: cache hit", "key", e.Key, "pz_path", e.PZPath)
			if *output != "" {
				if err := copyFile(e.PZPath, *output); err != nil {
					fmt.Fprintf(stderr, "plzc: %v\n", err)
					return 1
				}
			}
			return 0
		}
	}

	info, err := loader.Peek(newSeekable(raw), input)
	if err != nil {
		fmt.Fprintf(stderr, "plzc: %v\n", err)
		return 1
	}
	log.Info("plzc: header ok", "variant", info.Variant.String(), "version", info.Version)

	heap := gc.NewHeap(gc.WithLogger(log))
	root := gc.NewRootCapability("plzc")
	reg := loader.NewRegistry()
	lib, err := loader.Load(reg, heap, root, newSeekable(raw), input, loader.WithLogger(log))
	if err != nil {
		fmt.Fprintf(stderr, "plzc: %v\n", err)
		return 1
	}
	log.Info("plzc: module verified", "module", lib.Name, "variant", lib.Variant.String())

	outPath := *output
	if outPath == "" {
		outPath = input
	}
	if outPath != input {
		if err := copyFile(input, outPath); err != nil {
			fmt.Fprintf(stderr, "plzc: %v\n", err)
			return 1
		}
	}

	if c != nil {
		key := cache.SourceHash(raw)
		if err := c.Put(key, outPath, key, heap.Stats()); err != nil {
			fmt.Fprintf(stderr, "plzc: writing cache entry: %v\n", err)
			return 1
		}
	}

	return 0
}

func copyFile(src, dst string) error {
	if src == dst {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return nil
}
