package dexplanner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forgebuild/forgecore/step"
	"github.com/forgebuild/forgecore/util/status"
)

// buildPipeline returns the ordered step list for one output, dispatched
// on its filename suffix, per §4.4. The success-marker write is always
// appended last, satisfying the "success-hash write is the last step"
// ordering invariant; callers never need to add it themselves.
func (pl *Planner) buildPipeline(p *pseudoRule, newHash string) ([]step.Step, error) {
	name := filepath.Base(p.outputPath)

	var steps []step.Step
	switch {
	case strings.HasSuffix(name, ".jar.xzs"):
		steps = pl.xzsPipeline(p)
	case strings.HasSuffix(name, ".jar.xz"):
		steps = pl.xzJarPipeline(p)
	case strings.HasSuffix(name, ".jar"):
		steps = pl.plainJarPipeline(p)
	case strings.HasSuffix(name, ".dex"), name == "classes.dex", name == "raw":
		steps = pl.plainDexPipeline(p)
	default:
		return nil, status.InvalidArgumentErrorf("dexplanner: output %q has an unrecognized suffix (want .dex, .jar, .jar.xz, or .jar.xzs)", p.outputPath)
	}

	steps = append(steps, step.WriteFile{
		Path:    p.successDirPath,
		Content: []byte(newHash),
	})
	return steps, nil
}

func (pl *Planner) dexStep(p *pseudoRule, dst string) step.Step {
	args := []string{"--output", dst, "--bucket-id", bucketID(p.outputPath)}
	if pl.opts.MinSdkVersion > 0 {
		args = append(args, "--min-sdk-version", fmt.Sprintf("%d", pl.opts.MinSdkVersion))
	}
	if pl.opts.DesugarInterfaceMethods {
		for _, cp := range pl.desugarClasspath(p) {
			args = append(args, "--desugar-classpath", cp)
		}
	}
	args = append(args, pl.opts.ExtraDexArgs...)
	sorted := append([]string(nil), p.inputs...)
	args = append(args, sorted...)
	return step.RunExternalProgram{
		Name:       pl.opts.DexTool,
		Args:       args,
		OutputPath: dst,
	}
}

// plainDexPipeline dexes straight to the final output: a bare .dex file,
// not a jar, so there's nothing to repack or scrub.
func (pl *Planner) plainDexPipeline(p *pseudoRule) []step.Step {
	return []step.Step{
		step.Mkdir{Path: filepath.Dir(p.outputPath)},
		pl.dexStep(p, p.outputPath),
	}
}

// plainJarPipeline dexes to the final .jar output, then runs the
// jar-specific post-processing the plain-dex case skips: recording the
// classes.dex size for downstream multi-dex splitting, and scrubbing
// nondeterministic zip metadata so the jar is reproducible.
func (pl *Planner) plainJarPipeline(p *pseudoRule) []step.Step {
	scrubbed := p.outputPath + ".scrubtmp"
	return []step.Step{
		step.Mkdir{Path: filepath.Dir(p.outputPath)},
		pl.dexStep(p, p.outputPath),
		step.DexJarAnalysis{Jar: p.outputPath, MetaPath: p.outputPath + ".meta"},
		step.ZipScrub{SrcZip: p.outputPath, DstZip: scrubbed},
		step.Remove{Path: p.outputPath},
		step.CopyFile{From: scrubbed, To: p.outputPath},
		step.Remove{Path: scrubbed},
	}
}

// xzJarPipeline dexes to a temp jar, repacks it with the dex entry forced
// to STORE so the outer xz pass does the only real compressing, then
// compresses the repacked jar in place.
func (pl *Planner) xzJarPipeline(p *pseudoRule) []step.Step {
	finalJar := strings.TrimSuffix(p.outputPath, ".xz")
	tmpJar := finalJar + ".tmp.jar"
	return []step.Step{
		step.Mkdir{Path: filepath.Dir(tmpJar)},
		pl.dexStep(p, tmpJar),
		step.RepackZipEntriesStore{SrcZip: tmpJar, DstZip: finalJar, StoreEntries: map[string]bool{"classes.dex": true}},
		step.Remove{Path: tmpJar},
		step.DexJarAnalysis{Jar: finalJar, MetaPath: finalJar + ".meta"},
		step.XZCompress{Src: finalJar, Dst: p.outputPath, Level: pl.opts.XZCompressionLevel},
	}
}

// xzsPipeline is identical to xzJarPipeline through the repacked jar, but
// defers xz compression: the solid-compression phase (step 5 of §4.4)
// concatenates several such jars and compresses the concatenation as one
// unit, so this pipeline must not compress its own jar individually.
func (pl *Planner) xzsPipeline(p *pseudoRule) []step.Step {
	finalJar := strings.TrimSuffix(p.outputPath, ".xzs")
	tmpJar := finalJar + ".tmp.jar"
	return []step.Step{
		step.Mkdir{Path: filepath.Dir(tmpJar)},
		pl.dexStep(p, tmpJar),
		step.RepackZipEntriesStore{SrcZip: tmpJar, DstZip: finalJar, StoreEntries: map[string]bool{"classes.dex": true}},
		step.Remove{Path: tmpJar},
		step.DexJarAnalysis{Jar: finalJar, MetaPath: finalJar + ".meta"},
	}
}

// desugarClasspath computes the union of every other output's inputs,
// minus this output's own inputs, plus any additional desugar deps the
// caller configured -- the classpath closure the desugar tool needs to
// resolve interface-default-method call sites that cross dex outputs.
func (pl *Planner) desugarClasspath(p *pseudoRule) []string {
	own := make(map[string]bool, len(p.inputs))
	for _, in := range p.inputs {
		own[in] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, dep := range pl.opts.AdditionalDesugarDeps {
		if !seen[dep] {
			seen[dep] = true
			out = append(out, dep)
		}
	}
	for _, other := range pl.rules {
		if other == p {
			continue
		}
		for _, in := range other.inputs {
			if own[in] || seen[in] {
				continue
			}
			seen[in] = true
			out = append(out, in)
		}
	}
	return out
}
