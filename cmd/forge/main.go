// Command forge is a small demo CLI that wires the core packages
// together: assembling requested targets' DAG via the description
// registry and resolver, computing rule keys, consulting an action cache,
// and running whatever isn't cached through the step runner. With no
// -target it runs a self-check of the fan-out planner instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/logrusorgru/aurora"

	"github.com/forgebuild/forgecore/actioncache"
	"github.com/forgebuild/forgecore/artifact"
	"github.com/forgebuild/forgecore/config"
	"github.com/forgebuild/forgecore/description"
	"github.com/forgebuild/forgecore/dexplanner"
	"github.com/forgebuild/forgecore/pythontest"
	"github.com/forgebuild/forgecore/rules"
	"github.com/forgebuild/forgecore/steprunner"
	"github.com/forgebuild/forgecore/util/log"
)

func init() {
	// A demo toolchain configuration: "true" stands in for both the PEX
	// builder and the dexer elsewhere in this command, since neither a
	// real pex tool nor a real dexer is assumed to be on PATH for the
	// demo to run. See runPlannerSmokeTest for the same convention.
	pythontest.Config{PexTool: "true", TestMain: "demo/__test_main__.py"}.Register()
}

var (
	configPath = flag.String("config", "", "Path to an engine config YAML file.")
	target     = flag.String("target", "", "Comma-separated fully-qualified targets to build, e.g. //app:main,//app:lib.")
	verbose    = flag.Bool("verbose", false, "Enable debug logging.")
)

func infof(format string, args ...interface{}) {
	fmt.Println(aurora.Green("INFO:"), fmt.Sprintf(format, args...))
}

func errorf(format string, args ...interface{}) {
	fmt.Println(aurora.Red("ERROR:"), fmt.Sprintf(format, args...))
}

func main() {
	flag.Parse()
	if *verbose {
		_ = log.SetLevel("debug")
	} else {
		_ = log.SetLevel("info")
	}

	cfg, err := loadConfig()
	if err != nil {
		errorf("loading config: %s", err)
		os.Exit(1)
	}

	cache, err := buildCache(cfg)
	if err != nil {
		errorf("constructing action cache: %s", err)
		os.Exit(1)
	}

	if *target == "" {
		infof("no -target given; running the dex fan-out planner's self-check instead")
		runPlannerSmokeTest(cfg)
		return
	}

	targets, err := parseTargets(*target)
	if err != nil {
		errorf("parsing -target %q: %s", *target, err)
		os.Exit(1)
	}

	infof("building %d target(s)", len(targets))
	start := time.Now()
	if err := buildTargets(context.Background(), targets, cache); err != nil {
		errorf("build failed after %s: %s", time.Since(start).Round(time.Millisecond), err)
		os.Exit(1)
	}
	infof("build succeeded in %s", time.Since(start).Round(time.Millisecond))
}

func loadConfig() (*config.EngineConfig, error) {
	if *configPath == "" {
		return &config.EngineConfig{}, nil
	}
	return config.Load(*configPath)
}

func buildCache(cfg *config.EngineConfig) (actioncache.Cache, error) {
	switch cfg.GetCacheBackend() {
	case "disk":
		return actioncache.NewDiskCache(cfg.Cache.DiskRootDir)
	default:
		return actioncache.NewMemoryCache(cfg.GetMemoryMaxEntries())
	}
}

// parseTargets splits s on commas and parses each fully-qualified target.
func parseTargets(s string) ([]artifact.BuildTarget, error) {
	var out []artifact.BuildTarget
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := artifact.ParseBuildTarget(part)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// demoTargetSource is the fixed, in-memory rules.TargetSource this demo
// uses in place of a real build-file parser (explicitly out of scope per
// the purpose & scope section): it knows about exactly one python_test
// target, enough to exercise the description registry, the resolver's
// push-based AddToIndex path, and the step runner end to end.
type demoTargetSource struct{}

func (demoTargetSource) Lookup(t artifact.BuildTarget) (string, description.RawArgs, error) {
	switch t.Base().String() {
	case "//demo:hello_test":
		return pythontest.RuleType, description.RawArgs{
			"srcs": map[string]string{"hello_test.py": "demo/hello_test.py"},
		}, nil
	default:
		return "", nil, fmt.Errorf("%s: no build-file source configured; this demo's TargetSource only knows //demo:hello_test", t.String())
	}
}

// buildTargets assembles every target's rule (and, via the resolver, any
// auxiliary rules a description registers alongside it), consults the
// action cache by rule key, and runs whatever isn't cached through the
// step runner.
func buildTargets(ctx context.Context, targets []artifact.BuildTarget, cache actioncache.Cache) error {
	assembler := rules.NewAssembler(demoTargetSource{})

	// AllRules materializes every target in declared order -- exercised
	// here even for a single target, since a real front-end would pass a
	// whole target pattern's worth of targets through the same call.
	if _, err := assembler.AllRules(targets); err != nil {
		return err
	}

	for _, r := range assembler.MaterializedRules() {
		key := r.RuleKey()
		if _, ok := cache.Fetch(ctx, key); ok {
			infof("%s: action cache hit for rule key %s, nothing to do", r.Target().String(), key)
			continue
		}
		plan, err := r.Plan()
		if err != nil {
			return fmt.Errorf("planning %s: %w", r.Target().String(), err)
		}
		if len(plan) == 0 {
			continue
		}
		if err := steprunner.RunRule(ctx, r.Target(), plan); err != nil {
			return err
		}
		if err := cache.Store(ctx, key, actioncache.ArtifactSet{}); err != nil {
			errorf("storing %s in action cache: %s", r.Target().String(), err)
		}
	}
	return nil
}

// runPlannerSmokeTest exercises the fan-out planner end to end against a
// synthetic multimap, so `forge` with no arguments demonstrates the
// module's centerpiece without needing a real Android toolchain on PATH.
func runPlannerSmokeTest(cfg *config.EngineConfig) {
	tmp, err := os.MkdirTemp("", "forge-smoketest-")
	if err != nil {
		errorf("creating temp dir: %s", err)
		return
	}
	defer os.RemoveAll(tmp)

	successDir := tmp + "/success"
	opts := dexplanner.Options{
		SuccessDir: successDir,
		DexTool:    "true", // POSIX `true`: a zero-arg, always-succeeding stand-in dexer.
	}
	if cfg.Dex.DexTool != "" {
		opts.DexTool = cfg.Dex.DexTool
	}
	extra, err := cfg.Dex.GetExtraDexArgs()
	if err != nil {
		errorf("parsing dex.extra_dex_args: %s", err)
		return
	}
	opts.ExtraDexArgs = extra
	planner := dexplanner.NewPlanner(opts)
	infof("thread budget: %d", dexplanner.RecommendedThreadBudget())

	multimap := map[string][]string{
		tmp + "/out/classes.dex": {tmp + "/in/a.jar"},
	}
	hashes := dexplanner.InputHashes{tmp + "/in/a.jar": "deadbeef"}

	res, err := planner.Run(context.Background(), multimap, hashes)
	if err != nil {
		errorf("planner run failed: %s", err)
		return
	}
	infof("produced=%v cached=%v pruned=%v", res.Produced, res.Cached, res.Pruned)
}
