package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forgecore/artifact"
	"github.com/forgebuild/forgecore/description"
	"github.com/forgebuild/forgecore/step"
)

type stubRule struct {
	target artifact.BuildTarget
	deps   []artifact.BuildTarget
}

func (r *stubRule) Target() artifact.BuildTarget          { return r.target }
func (r *stubRule) RuleType() string                      { return "stub" }
func (r *stubRule) Deps() []artifact.BuildTarget           { return r.deps }
func (r *stubRule) Outputs() map[string]*artifact.Artifact { return nil }
func (r *stubRule) Plan() ([]step.Step, error)             { return nil, nil }
func (r *stubRule) RuleKey() string                        { return r.target.String() }

func registerStubDescription(t *testing.T) {
	t.Helper()
	typeName := "stub"
	description.Register(typeName+"_"+t.Name(), description.Schema{Optional: []string{"deps"}},
		func(target artifact.BuildTarget, args description.RawArgs, resolver description.Resolver) (description.Rule, error) {
			var deps []artifact.BuildTarget
			rawDeps, _ := args["deps"].([]string)
			for _, d := range rawDeps {
				dt, err := artifact.ParseBuildTarget(d)
				if err != nil {
					return nil, err
				}
				if _, err := resolver.Require(dt); err != nil {
					return nil, err
				}
				deps = append(deps, dt)
			}
			return &stubRule{target: target, deps: deps}, nil
		})
}

func TestAssemblerMaterializesTransitiveDeps(t *testing.T) {
	registerStubDescription(t)
	typeName := "stub_" + t.Name()

	src := &fixedTypeSource{ruleType: typeName, depsOf: map[string][]string{
		"//app:main": {"//app:lib"},
		"//app:lib":  {},
	}}
	a := NewAssembler(src)

	root := artifact.NewBuildTarget("", "app", "main")
	_, err := a.Require(root)
	require.NoError(t, err)

	all := a.MaterializedRules()
	require.Len(t, all, 2)
}

func TestAllRulesPreservesCallerOrder(t *testing.T) {
	registerStubDescription(t)
	typeName := "stub_" + t.Name()

	src := &fixedTypeSource{ruleType: typeName, depsOf: map[string][]string{
		"//app:c": {}, "//app:a": {}, "//app:b": {},
	}}
	a := NewAssembler(src)

	targets := []artifact.BuildTarget{
		artifact.NewBuildTarget("", "app", "c"),
		artifact.NewBuildTarget("", "app", "a"),
		artifact.NewBuildTarget("", "app", "b"),
	}
	rules, err := a.AllRules(targets)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	require.Equal(t, "//app:c", rules[0].Target().String())
	require.Equal(t, "//app:a", rules[1].Target().String())
	require.Equal(t, "//app:b", rules[2].Target().String())
}

func TestAddToIndexRejectsDuplicateTarget(t *testing.T) {
	registerStubDescription(t)
	typeName := "stub_" + t.Name()
	src := &fixedTypeSource{ruleType: typeName, depsOf: map[string][]string{"//app:gen": {}}}
	a := NewAssembler(src)

	synthesized := &stubRule{target: artifact.NewBuildTarget("", "app", "gen").WithFlavors("test_module")}
	require.NoError(t, a.AddToIndex(synthesized))

	err := a.AddToIndex(synthesized)
	require.Error(t, err)
}

func TestAssemblerDetectsCycles(t *testing.T) {
	registerStubDescription(t)
	typeName := "stub_" + t.Name()

	src := &fixedTypeSource{ruleType: typeName, depsOf: map[string][]string{
		"//app:a": {"//app:b"},
		"//app:b": {"//app:a"},
	}}
	a := NewAssembler(src)

	_, err := a.Require(artifact.NewBuildTarget("", "app", "a"))
	require.Error(t, err)
}

// fixedTypeSource always returns the given ruleType, with per-target deps
// looked up from depsOf.
type fixedTypeSource struct {
	ruleType string
	depsOf   map[string][]string
}

func (s *fixedTypeSource) Lookup(t artifact.BuildTarget) (string, description.RawArgs, error) {
	return s.ruleType, description.RawArgs{"deps": s.depsOf[t.String()]}, nil
}
