package dexplanner

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forgebuild/forgecore/step"
	"github.com/forgebuild/forgecore/steprunner"
)

// xzsGroupKey derives the solid-blob name a per-output xzs path belongs
// to: the first dash-separated token of its file name, with the "-N"
// counter dropped, joined to ".dex.jar.xzs". "secondary-1.dex.jar.xzs"
// and "secondary-2.dex.jar.xzs" both belong to group "secondary.dex.jar.xzs".
func xzsGroupKey(outputPath string) string {
	name := filepath.Base(outputPath)
	token := strings.SplitN(name, "-", 2)[0]
	return filepath.Join(filepath.Dir(outputPath), token+".dex.jar.xzs")
}

// runSolidCompression implements §4.4 step 6: partition the xzs pseudo-
// rules that were actually produced this run by group key, then for each
// group concatenate its repacked jars and xz-compress the concatenation
// as one unit. Groups run sequentially, one at a time, under the same
// planner -- the spec places no parallelism requirement on this phase and
// each group's concat+xz pair must stay strictly ordered.
func (pl *Planner) runSolidCompression(ctx context.Context, res *Result) error {
	produced := make(map[string]bool, len(res.Produced))
	for _, p := range res.Produced {
		produced[p] = true
	}

	groups := make(map[string][]string)
	var groupOrder []string
	for _, r := range pl.rules {
		if !strings.HasSuffix(r.outputPath, ".jar.xzs") {
			continue
		}
		if !produced[r.outputPath] {
			continue
		}
		key := xzsGroupKey(r.outputPath)
		if _, ok := groups[key]; !ok {
			groupOrder = append(groupOrder, key)
		}
		repackedJar := strings.TrimSuffix(r.outputPath, ".xzs")
		groups[key] = append(groups[key], repackedJar)
	}
	sort.Strings(groupOrder)

	var finalBlobs []string
	for _, key := range groupOrder {
		inputs := append([]string(nil), groups[key]...)
		sort.Strings(inputs)
		solidJar := strings.TrimSuffix(key, ".xzs")
		steps := []step.Step{
			step.ConcatFiles{Srcs: inputs, Dst: solidJar},
			step.XZCompress{Src: solidJar, Dst: key, Level: pl.opts.XZCompressionLevel},
			step.Remove{Path: solidJar},
		}
		for _, in := range inputs {
			steps = append(steps, step.Remove{Path: in})
		}
		if err := steprunner.Run(ctx, outputOwner(key), steps); err != nil {
			return err
		}
		finalBlobs = append(finalBlobs, key)
	}

	// Reconcile res.Produced so it reflects the files actually left on
	// disk: the grouped blobs, not the per-entry logical xzs names that
	// were only ever intermediate bookkeeping.
	var reconciled []string
	for _, p := range res.Produced {
		if strings.HasSuffix(p, ".jar.xzs") {
			continue
		}
		reconciled = append(reconciled, p)
	}
	reconciled = append(reconciled, finalBlobs...)
	res.Produced = reconciled
	return nil
}
