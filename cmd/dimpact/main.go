package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/dusk-indust/dimpact/internal/cache"
	"github.com/dusk-indust/dimpact/internal/config"
	"github.com/dusk-indust/dimpact/internal/engine"
	"github.com/dusk-indust/dimpact/internal/errs"
	"github.com/dusk-indust/dimpact/internal/impact"
	"github.com/dusk-indust/dimpact/internal/lang"
	"github.com/dusk-indust/dimpact/internal/symbol"
)

// cliFlags mirrors the configuration table: each flag overrides the
// corresponding impact.yml value when given a non-zero value.
type cliFlags struct {
	RepoRoot   string
	Seeds      string
	Direction  string
	MaxDepth   int
	WithEdges  bool
	PerSeed    bool
	IgnoreDirs string
	CacheScope string
	CacheDir   string
	Version    bool
	Verify     bool
}

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes a user-fixable input problem (bad diff, bad
// seeds, mixed-language seed set, a refused terminal read) from an
// internal or environmental failure, so scripts can tell the two apart
// without parsing stderr.
func exitCode(err error) int {
	var e *errs.Error
	if errors.As(err, &e) && e.Kind.Abort() {
		return 1
	}
	return 2
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var flags cliFlags

	fs := flag.NewFlagSet("dimpact", flag.ContinueOnError)
	fs.StringVar(&flags.RepoRoot, "repo-root", ".", "path to the workspace root")
	fs.StringVar(&flags.Seeds, "seeds", "", "seed symbols (canonical strings or JSON array); reads a diff from stdin if empty")
	fs.StringVar(&flags.Direction, "direction", "", "callers | callees | both")
	fs.IntVar(&flags.MaxDepth, "max-depth", 0, "max BFS depth; 0 means unbounded")
	fs.BoolVar(&flags.WithEdges, "with-edges", false, "include edges among seeds and impacted symbols")
	fs.BoolVar(&flags.PerSeed, "per-seed", false, "partition output by seed")
	fs.StringVar(&flags.IgnoreDirs, "ignore-dir", "", "comma-separated path-prefix exclusions")
	fs.StringVar(&flags.CacheScope, "cache-scope", "", "local | global")
	fs.StringVar(&flags.CacheDir, "cache-dir", "", "override cache directory")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")
	fs.BoolVar(&flags.Verify, "verify", false, "report stale/missing cache entries without analyzing and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}

	cfg, err := config.Load(flags.RepoRoot)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts := mergeOptions(cfg, flags)

	reg := lang.NewRegistry()

	scope := cache.Local
	if opts.cacheScope == "global" {
		scope = cache.Global
	}
	paths := cache.ResolvePaths(scope, opts.cacheDir, flags.RepoRoot)
	c, err := cache.Open(paths, version)
	if err != nil {
		return err
	}
	defer c.Close()

	eng := engine.New(flags.RepoRoot, reg, c)

	if flags.Verify {
		stale, missing, verr := eng.Verify(opts.ignoreDirs)
		if verr != nil {
			return verr
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Stale   []string `json:"stale"`
			Missing []string `json:"missing"`
		}{Stale: stale, Missing: missing})
	}

	ctx := context.Background()
	if err := eng.Refresh(ctx, opts.ignoreDirs); err != nil {
		return err
	}

	seeds, err := resolveSeeds(flags.Seeds, stdin, eng)
	if err != nil {
		return err
	}

	result, err := eng.Impact(ctx, seeds, impact.Options{
		Direction: impact.Direction(opts.direction),
		MaxDepth:  opts.maxDepth,
		WithEdges: opts.withEdges,
		PerSeed:   opts.perSeed,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// resolveSeeds honors an explicit --seeds flag first; otherwise it reads
// a unified diff from stdin and derives seeds from the changed set. A
// TTY stdin with no explicit seeds is refused outright rather than
// hanging on a read that will never complete.
func resolveSeeds(seedFlag string, stdin io.Reader, eng *engine.Engine) ([]symbol.ID, error) {
	if strings.TrimSpace(seedFlag) != "" {
		return symbol.ParseSeeds(seedFlag)
	}
	if f, ok := stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return nil, errs.New(errs.TerminalInputRefused, "main.resolveSeeds",
			fmt.Errorf("stdin is a terminal; pipe a unified diff or pass --seeds"))
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, errs.New(errs.IO, "main.resolveSeeds", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, errs.New(errs.TerminalInputRefused, "main.resolveSeeds",
			fmt.Errorf("no diff on stdin and no --seeds given"))
	}
	return eng.SeedsFromDiff(string(data))
}

type resolvedOptions struct {
	direction  string
	maxDepth   int
	withEdges  bool
	perSeed    bool
	ignoreDirs []string
	cacheScope string
	cacheDir   string
}

// mergeOptions layers explicit flags over impact.yml defaults; a flag
// left at its zero value never overrides a configured one.
func mergeOptions(cfg *config.Options, flags cliFlags) resolvedOptions {
	out := resolvedOptions{
		direction:  cfg.Direction,
		maxDepth:   cfg.MaxDepth,
		withEdges:  cfg.WithEdges,
		perSeed:    cfg.PerSeed,
		ignoreDirs: cfg.IgnoreDirs,
		cacheScope: cfg.CacheScope,
		cacheDir:   cfg.CacheDir,
	}
	if flags.Direction != "" {
		out.direction = flags.Direction
	}
	if out.direction == "" {
		out.direction = "callees"
	}
	if flags.MaxDepth != 0 {
		out.maxDepth = flags.MaxDepth
	}
	if flags.WithEdges {
		out.withEdges = true
	}
	if flags.PerSeed {
		out.perSeed = true
	}
	if flags.IgnoreDirs != "" {
		out.ignoreDirs = strings.Split(flags.IgnoreDirs, ",")
	}
	if flags.CacheScope != "" {
		out.cacheScope = flags.CacheScope
	}
	if flags.CacheDir != "" {
		out.cacheDir = flags.CacheDir
	}
	return out
}
