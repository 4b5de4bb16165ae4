// Package pythontest implements the python_test description: a concrete,
// self-registering rule type grounded on Buck's PythonTestDescription. A
// python_test rule validates its own attribute schema, synthesizes two
// auxiliary rules it registers through the resolver's push-based
// AddToIndex path -- a generated test-modules-list source file and a
// binary-flavored PEX sibling -- and depends on the sibling for its own
// output.
package pythontest

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/forgebuild/forgecore/artifact"
	"github.com/forgebuild/forgecore/description"
	"github.com/forgebuild/forgecore/rulekey"
	"github.com/forgebuild/forgecore/step"
	"github.com/forgebuild/forgecore/util/status"
)

// RuleType is the registered name descriptions and build files use to refer
// to this rule kind.
const RuleType = "python_test"

const (
	testModuleFlavor = "test_module"
	binaryFlavor     = "binary"

	testModulesName = "__test_modules__.py"
	testMainName    = "__test_main__.py"
	pexOutputName   = "pex"
)

var schema = description.Schema{
	Required: []string{"srcs"},
	Optional: []string{"resources", "base_module", "deps", "contacts", "labels", "source_under_test"},
}

// Config carries the host build's Python toolchain knobs, the way a
// .buckconfig [python] section supplies pathToPex and
// path_to_python_test_main: these aren't attributes of any one rule, so
// they're threaded through at registration time instead of read per-target.
type Config struct {
	// PexTool is the external program invoked to assemble a PEX from a set
	// of named source/resource components.
	PexTool string
	// TestMain is the path, relative to a cell root, of the test harness
	// entry point packaged into every python_test's PEX.
	TestMain string
}

// Register installs the python_test description under cfg's toolchain
// configuration. Call once per process; registering twice panics (see
// description.Register).
func (cfg Config) Register() {
	description.Register(RuleType, schema, cfg.create)
}

func (cfg Config) create(target artifact.BuildTarget, args description.RawArgs, resolver description.Resolver) (description.Rule, error) {
	if cfg.TestMain == "" {
		return nil, status.InvalidArgumentErrorf(
			"%s: python_test requires a configured test main; set pythontest.Config.TestMain (the Go equivalent of .buckconfig's python.path_to_python_test_main)", target)
	}

	srcs, err := stringMap(args, "srcs")
	if err != nil {
		return nil, err
	}
	if len(srcs) == 0 {
		return nil, status.InvalidArgumentErrorf("%s: srcs must not be empty", target)
	}
	resources, err := stringMap(args, "resources")
	if err != nil {
		return nil, err
	}
	baseModule := args.OptString("base_module", defaultBaseModule(target))

	deps, err := resolveTargets(args, "deps", resolver)
	if err != nil {
		return nil, err
	}
	sourceUnderTest, err := resolveTargets(args, "source_under_test", resolver)
	if err != nil {
		return nil, err
	}
	contacts, err := args.StringList("contacts")
	if err != nil {
		return nil, err
	}
	labels, err := args.StringList("labels")
	if err != nil {
		return nil, err
	}

	moduleNames := make([]string, 0, len(srcs))
	for modPath := range srcs {
		moduleNames = append(moduleNames, moduleName(baseModule, modPath))
	}

	testModulesTarget := target.WithFlavors(testModuleFlavor)
	testModulesPath := genPath(testModulesTarget, testModulesName)
	testModulesRule, err := newTestModulesRule(testModulesTarget, testModulesPath, testModulesListContents(moduleNames))
	if err != nil {
		return nil, err
	}
	if err := resolver.AddToIndex(testModulesRule); err != nil {
		return nil, err
	}

	components := make([]pexComponent, 0, len(srcs)+len(resources)+2)
	components = append(components,
		pexComponent{name: testModulesName, source: artifact.NewBuildTargetSource(testModulesTarget, testModulesName)},
		pexComponent{name: testMainName, source: artifact.NewPathSource(cfg.TestMain)},
	)
	for modPath, srcPath := range srcs {
		components = append(components, pexComponent{name: modPath, source: artifact.NewPathSource(srcPath)})
	}
	for resPath, srcPath := range resources {
		components = append(components, pexComponent{name: resPath, source: artifact.NewPathSource(srcPath)})
	}
	sort.Slice(components, func(i, j int) bool { return components[i].name < components[j].name })

	binaryTarget := target.WithFlavors(binaryFlavor)
	binaryRule, err := newPexBinaryRule(binaryTarget, cfg.PexTool, genPath(binaryTarget, pexOutputName), components, deps)
	if err != nil {
		return nil, err
	}
	if err := resolver.AddToIndex(binaryRule); err != nil {
		return nil, err
	}

	pexArtifact := artifact.NewArtifact(pexOutputName)
	if err := pexArtifact.Bind(artifact.NewBuildTargetSource(binaryTarget, pexOutputName)); err != nil {
		return nil, err
	}

	return &rule{
		target:          target,
		deps:            append(append([]artifact.BuildTarget(nil), deps...), binaryTarget),
		binaryTarget:    binaryTarget,
		pex:             pexArtifact,
		contacts:        contacts,
		labels:          labels,
		sourceUnderTest: sourceUnderTest,
	}, nil
}

// rule is the materialized python_test rule itself. All of its actual
// output is produced by the binary sibling it registered during creation;
// its own plan is empty, the same way an aggregator rule with no steps of
// its own still has a well-defined RuleKey and dependency edges.
type rule struct {
	target          artifact.BuildTarget
	deps            []artifact.BuildTarget
	binaryTarget    artifact.BuildTarget
	pex             *artifact.Artifact
	contacts        []string
	labels          []string
	sourceUnderTest []artifact.BuildTarget
}

func (r *rule) Target() artifact.BuildTarget { return r.target }
func (r *rule) RuleType() string             { return RuleType }
func (r *rule) Deps() []artifact.BuildTarget { return r.deps }
func (r *rule) Outputs() map[string]*artifact.Artifact {
	return map[string]*artifact.Artifact{pexOutputName: r.pex}
}
func (r *rule) Plan() ([]step.Step, error) { return nil, nil }

func (r *rule) RuleKey() string {
	h := rulekey.NewHasher(nil)
	h.AddRuleType(RuleType).AddTarget(r.target)
	_ = h.AddAttribute("contacts", stringSetValue(r.contacts))
	_ = h.AddAttribute("labels", stringSetValue(r.labels))
	sut := make([]rulekey.Value, len(r.sourceUnderTest))
	for i, t := range r.sourceUnderTest {
		sut[i] = rulekey.TargetRefValue(t)
	}
	_ = h.AddAttribute("source_under_test", rulekey.ListValue(sut...))
	h.AddCommandLineArg(rulekey.TargetRefValue(r.binaryTarget))
	return h.Sum()
}

// SourceUnderTestTargets returns the targets named by this test's
// source_under_test attribute, in declared order.
func (r *rule) SourceUnderTestTargets() []artifact.BuildTarget { return r.sourceUnderTest }

func stringSetValue(ss []string) rulekey.Value {
	vs := make([]rulekey.Value, len(ss))
	for i, s := range ss {
		vs[i] = rulekey.String(s)
	}
	return rulekey.SetValue(vs...)
}

func resolveTargets(args description.RawArgs, key string, resolver description.Resolver) ([]artifact.BuildTarget, error) {
	raw, err := args.StringList(key)
	if err != nil {
		return nil, err
	}
	out := make([]artifact.BuildTarget, 0, len(raw))
	for _, s := range raw {
		t, err := artifact.ParseBuildTarget(s)
		if err != nil {
			return nil, status.InvalidArgumentErrorf("%s %q: %s", key, s, err)
		}
		if _, err := resolver.Require(t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// stringMap reads a path->source-path attribute, accepting either a
// map[string]string (how tests build RawArgs by hand) or a
// map[string]any of string values (how a build-file parser's generic
// decode would hand it in).
func stringMap(args description.RawArgs, key string) (map[string]string, error) {
	v, ok := args[key]
	if !ok {
		return nil, nil
	}
	switch m := v.(type) {
	case map[string]string:
		return m, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, raw := range m {
			s, ok := raw.(string)
			if !ok {
				return nil, status.InvalidArgumentErrorf("attribute %q: value for %q must be a string, got %T", key, k, raw)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, status.InvalidArgumentErrorf("attribute %q must be a path-to-source map, got %T", key, v)
	}
}

// defaultBaseModule derives a base module from the target's package path,
// mirroring PythonUtil.getBasePath's package-relative default.
func defaultBaseModule(t artifact.BuildTarget) string {
	return strings.ReplaceAll(strings.Trim(t.Pkg, "/"), "/", ".")
}

// moduleName converts a path->source map key into the dotted module name
// the test runner imports, e.g. "sub/a.py" under base module "app.tests"
// becomes "app.tests.sub.a".
func moduleName(baseModule, modulePath string) string {
	rel := strings.TrimSuffix(modulePath, ".py")
	rel = strings.ReplaceAll(rel, "/", ".")
	if baseModule == "" {
		return rel
	}
	return baseModule + "." + rel
}

// genPath mirrors BuildTargets.getGenPath: a generated-sources path scoped
// to one target, unique across flavors of the same base target.
func genPath(t artifact.BuildTarget, name string) string {
	parts := []string{"gen"}
	if t.Pkg != "" {
		parts = append(parts, t.Pkg)
	}
	parts = append(parts, t.Name)
	if flavors := t.SortedFlavors(); len(flavors) > 0 {
		parts = append(parts, strings.Join(flavors, ","))
	}
	parts = append(parts, name)
	return path.Join(parts...)
}

// testModulesListContents renders the exact byte format a python_test's
// generated test-modules source file must have: module names sorted
// ascending, four-space indent, one trailing comma per entry, the closing
// bracket alone on its own line, no trailing newline.
func testModulesListContents(modules []string) string {
	sorted := append([]string(nil), modules...)
	sort.Strings(sorted)
	var b strings.Builder
	b.WriteString("TEST_MODULES = [\n")
	for _, m := range sorted {
		fmt.Fprintf(&b, "    %q,\n", m)
	}
	b.WriteString("]")
	return b.String()
}

// testModulesRule is the synthesized auxiliary rule that writes the
// test-modules-list source file. Registered via AddToIndex rather than
// returned from a Factory, since it exists only as a side effect of
// materializing the python_test rule that needs it.
type testModulesRule struct {
	target     artifact.BuildTarget
	outputPath string
	contents   string
	output     *artifact.Artifact
}

func newTestModulesRule(target artifact.BuildTarget, outputPath, contents string) (*testModulesRule, error) {
	out := artifact.NewArtifact(testModulesName)
	if err := out.Bind(artifact.NewPathSource(outputPath)); err != nil {
		return nil, err
	}
	return &testModulesRule{target: target, outputPath: outputPath, contents: contents, output: out}, nil
}

func (r *testModulesRule) Target() artifact.BuildTarget { return r.target }
func (r *testModulesRule) RuleType() string             { return "create_test_modules_list" }
func (r *testModulesRule) Deps() []artifact.BuildTarget { return nil }
func (r *testModulesRule) Outputs() map[string]*artifact.Artifact {
	return map[string]*artifact.Artifact{testModulesName: r.output}
}
func (r *testModulesRule) Plan() ([]step.Step, error) {
	return []step.Step{
		step.Mkdir{Path: path.Dir(r.outputPath)},
		step.WriteFile{Path: r.outputPath, Content: []byte(r.contents)},
	}, nil
}
func (r *testModulesRule) RuleKey() string {
	h := rulekey.NewHasher(nil)
	h.AddRuleType(r.RuleType()).AddTarget(r.target)
	_ = h.AddAttribute("contents", rulekey.String(r.contents))
	_ = h.AddAttribute("output", rulekey.String(r.outputPath))
	return h.Sum()
}

// pexComponent is one named file packaged into a PEX: a test source, a
// resource, the generated test-modules list, or the test main entry point.
type pexComponent struct {
	name   string
	source artifact.SourcePath
}

// pexBinaryRule is the synthesized "#binary" sibling: the PEX that actually
// runs when the test executes. Built with the minimum deps its components
// pull in, per PythonTestDescription.createBuildRule.
type pexBinaryRule struct {
	target     artifact.BuildTarget
	pexTool    string
	outputPath string
	components []pexComponent
	deps       []artifact.BuildTarget
	output     *artifact.Artifact
}

func newPexBinaryRule(target artifact.BuildTarget, pexTool, outputPath string, components []pexComponent, deps []artifact.BuildTarget) (*pexBinaryRule, error) {
	out := artifact.NewArtifact(pexOutputName)
	if err := out.Bind(artifact.NewPathSource(outputPath)); err != nil {
		return nil, err
	}
	return &pexBinaryRule{
		target:     target,
		pexTool:    pexTool,
		outputPath: outputPath,
		components: components,
		deps:       deps,
		output:     out,
	}, nil
}

func (r *pexBinaryRule) Target() artifact.BuildTarget { return r.target }
func (r *pexBinaryRule) RuleType() string             { return "python_binary" }
func (r *pexBinaryRule) Deps() []artifact.BuildTarget { return r.deps }
func (r *pexBinaryRule) Outputs() map[string]*artifact.Artifact {
	return map[string]*artifact.Artifact{pexOutputName: r.output}
}

func (r *pexBinaryRule) Plan() ([]step.Step, error) {
	if r.pexTool == "" {
		return nil, status.InvalidArgumentErrorf("%s: no pex tool configured; set pythontest.Config.PexTool", r.target)
	}
	args := []string{"--output", r.outputPath, "--entry-point", testMainName}
	for _, c := range r.components {
		p, ok := c.source.Path()
		if !ok {
			continue
		}
		args = append(args, "--add", c.name+"="+p)
	}
	return []step.Step{
		step.Mkdir{Path: path.Dir(r.outputPath)},
		step.RunExternalProgram{Name: r.pexTool, Args: args, OutputPath: r.outputPath},
	}, nil
}

func (r *pexBinaryRule) RuleKey() string {
	h := rulekey.NewHasher(nil)
	h.AddRuleType(r.RuleType()).AddTarget(r.target)
	_ = h.AddAttribute("output", rulekey.String(r.outputPath))
	values := make([]rulekey.Value, len(r.components))
	for i, c := range r.components {
		values[i] = rulekey.String(c.name + "=" + c.source.Canonical())
	}
	_ = h.AddAttribute("components", rulekey.ListValue(values...))
	for _, d := range r.deps {
		h.AddCommandLineArg(rulekey.TargetRefValue(d))
	}
	return h.Sum()
}
