// Command plzstat is a thin cache/GC-stats inspector (SPEC_FULL.md §3.3):
// it either reports a PZ file's header via loader.Peek without a full
// load, or lists the project's compile-cache entries.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jimbxb/plasma/cache"
	"github.com/jimbxb/plasma/config"
	"github.com/jimbxb/plasma/loader"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("plzstat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	peekFile := fs.String("peek", "", "print the header of a PZ file without loading it")
	sqlQuery := fs.String("sql", "", "run an ad-hoc SQL query against the compile cache database")

	usage := func(w io.Writer) {
		fmt.Fprintf(w, "Usage: plzstat [--peek file.pz] [--sql query] [cache]\n\n")
		fmt.Fprintf(w, "With no flags and \"cache\" as the sole argument, lists all cache entries.\n\n")
		fmt.Fprintf(w, "Options:\n")
		fs.SetOutput(w)
		fs.PrintDefaults()
		fs.SetOutput(stderr)
	}
	fs.Usage = func() { usage(stderr) }

	for _, a := range args {
		if a == "-h" || a == "--help" {
			usage(stdout)
			return 0
		}
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *peekFile != "" {
		return runPeek(*peekFile, stdout, stderr)
	}

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(stderr, "plzstat: %v\n", err)
		return 1
	}
	if cfg == nil {
		fmt.Fprintln(stderr, "plzstat: no plasma.toml found")
		return 1
	}

	c, err := cache.Open(cfg.CacheDBPath())
	if err != nil {
		fmt.Fprintf(stderr, "plzstat: %v\n", err)
		return 1
	}
	defer c.Close()

	if *sqlQuery != "" {
		return runSQL(c.DB(), *sqlQuery, stdout, stderr)
	}
	return runList(c, stdout, stderr)
}

func runPeek(path string, stdout, stderr io.Writer) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(stderr, "plzstat: %v\n", err)
		return 1
	}
	defer f.Close()

	info, err := loader.Peek(f, path)
	if err != nil {
		fmt.Fprintf(stderr, "plzstat: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s: variant=%s desc=%q version=%d\n", path, info.Variant.String(), info.Desc, info.Version)
	return 0
}

func runList(c *cache.Cache, stdout, stderr io.Writer) int {
	entries, err := c.All()
	if err != nil {
		fmt.Fprintf(stderr, "plzstat: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "plzstat: cache is empty")
		return 0
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "%s  %s  collections=%d live_words=%d blocks=%d  cached_at=%s\n",
			e.Key[:12], e.PZPath, e.Stats.Collections, e.Stats.LiveWords, e.Stats.Blocks,
			e.CachedAt.Format("2006-01-02T15:04:05Z"))
	}
	return 0
}

func runSQL(db *sql.DB, query string, stdout, stderr io.Writer) int {
	rows, err := db.Query(query)
	if err != nil {
		fmt.Fprintf(stderr, "plzstat: %v\n", err)
		return 1
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		fmt.Fprintf(stderr, "plzstat: %v\n", err)
		return 1
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	fmt.Fprintln(stdout, joinTab(cols))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			fmt.Fprintf(stderr, "plzstat: %v\n", err)
			return 1
		}
		strs := make([]string, len(vals))
		for i, v := range vals {
			strs[i] = fmt.Sprintf("%v", v)
		}
		fmt.Fprintln(stdout, joinTab(strs))
	}
	return 0
}

func joinTab(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += "\t"
		}
		out += f
	}
	return out
}
