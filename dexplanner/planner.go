// Package dexplanner implements the fan-out caching planner described as
// the "smart runner": given a multimap from output path to input paths, it
// skips outputs whose recorded input hash is already current, emits a
// pipeline of steps for the rest, runs them under a bounded thread budget,
// and performs cross-output post-processing (solid compression, stale
// sibling pruning). The name and shape follow the parallel dexing engine
// this behavior was originally illustrated by, but nothing here is
// specific to dex files beyond the pipeline dispatch in pipeline.go.
package dexplanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/forgebuild/forgecore/steprunner"
	"github.com/forgebuild/forgecore/util/fspath"
)

// Options configures a Planner; they are fixed when NewPlanner is called.
// The planner keeps the pseudo-rules of its most recent Run, so one Planner
// does not support concurrent calls to Run.
type Options struct {
	// SuccessDir holds one hash sidecar per output file name.
	SuccessDir string
	// SecondaryOutputDir, if set, is pruned after a run of any file not
	// in the produced set and not ending in ".meta".
	SecondaryOutputDir string
	// DexTool is the external dexer binary name or path.
	DexTool string
	// XZCompressionLevel is passed through to XZCompress steps; 0 means
	// "let the tool pick its default".
	XZCompressionLevel int
	// ThreadBudget bounds concurrent output pipelines. Zero means use
	// RecommendedThreadBudget().
	ThreadBudget int
	// AdditionalDesugarDeps are extra classpath entries visible to every
	// output's desugar pass, regardless of which dex inputs it owns.
	AdditionalDesugarDeps []string
	MinSdkVersion         int
	DesugarInterfaceMethods bool
	// ExtraDexArgs are appended verbatim to every dexer invocation, after
	// the flags this package derives itself. Already tokenized -- see
	// config.DexConfig.GetExtraDexArgs, which splits the shell-style
	// string config form.
	ExtraDexArgs []string
}

// Planner runs the fan-out algorithm over one multimap per call to Run.
type Planner struct {
	opts  Options
	rules []*pseudoRule
}

// NewPlanner constructs a planner with the given options, defaulting
// ThreadBudget to RecommendedThreadBudget() if unset.
func NewPlanner(opts Options) *Planner {
	if opts.ThreadBudget <= 0 {
		opts.ThreadBudget = RecommendedThreadBudget()
	}
	return &Planner{opts: opts}
}

// Result summarizes one planner run.
type Result struct {
	// Produced lists outputs whose pipeline actually ran.
	Produced []string
	// Cached lists outputs that were already up to date and skipped.
	Cached []string
	// Pruned lists stale sibling files removed from SecondaryOutputDir.
	Pruned []string
}

// Run materializes multimap's pseudo-rules, skips up-to-date outputs,
// executes the rest in parallel bounded by the thread budget, then runs
// the solid-compression and stale-pruning post-processing phases. It
// returns the first classified failure, if any, after every in-flight
// pipeline that was already submitted has finished -- per the decided
// cancellation policy, new pipelines simply stop being submitted once a
// failure is observed.
func (pl *Planner) Run(ctx context.Context, multimap map[string][]string, hashes InputHashes) (*Result, error) {
	outputs := make([]string, 0, len(multimap))
	for out := range multimap {
		outputs = append(outputs, out)
	}
	sort.Strings(outputs)

	pl.rules = make([]*pseudoRule, 0, len(outputs))
	for _, out := range outputs {
		pl.rules = append(pl.rules, &pseudoRule{
			outputPath:     out,
			inputs:         multimap[out],
			successDirPath: successDirPathFor(pl.opts.SuccessDir, out),
		})
	}

	res := &Result{}
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(pl.opts.ThreadBudget)

	for _, p := range pl.rules {
		if egCtx.Err() != nil {
			break
		}
		p := p
		newHash, err := p.hashInputs(hashes)
		if err != nil {
			return res, err
		}
		if p.checkIsCached(newHash) {
			mu.Lock()
			res.Cached = append(res.Cached, p.outputPath)
			mu.Unlock()
			continue
		}
		eg.Go(func() error {
			steps, err := pl.buildPipeline(p, newHash)
			if err != nil {
				return err
			}
			if err := steprunner.Run(egCtx, outputOwner(p.outputPath), steps); err != nil {
				return classifyFailure(p.outputPath, err)
			}
			mu.Lock()
			res.Produced = append(res.Produced, p.outputPath)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return res, err
	}

	if err := pl.runSolidCompression(ctx, res); err != nil {
		return res, err
	}

	if pl.opts.SecondaryOutputDir != "" {
		finalSet := make(map[string]bool, len(res.Produced)+len(res.Cached))
		for _, p := range res.Produced {
			finalSet[p] = true
		}
		for _, p := range res.Cached {
			if strings.HasSuffix(p, ".jar.xzs") {
				finalSet[xzsGroupKey(p)] = true
				continue
			}
			finalSet[p] = true
		}
		pruned, err := pruneStaleSiblings(pl.opts.SecondaryOutputDir, finalSet)
		if err != nil {
			return res, err
		}
		res.Pruned = pruned
	}

	return res, nil
}

// pruneStaleSiblings removes any file directly under dir that is not in
// produced and does not end in ".meta".
func pruneStaleSiblings(dir string, produced map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var pruned []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		full := filepath.Join(dir, e.Name())
		if !fspath.IsParent(dir, full) {
			// Can't happen for a plain e.Name() from ReadDir, but pruning
			// is destructive enough to be worth the explicit check.
			continue
		}
		if produced[full] || strings.HasSuffix(e.Name(), ".meta") {
			continue
		}
		if err := os.Remove(full); err != nil {
			return pruned, err
		}
		pruned = append(pruned, full)
	}
	sort.Strings(pruned)
	return pruned, nil
}

// outputOwner adapts a plain output path into a steprunner.Owner, since
// one fan-out pipeline isn't a rule with a real BuildTarget of its own.
type outputOwner string

func (o outputOwner) String() string { return string(o) }
