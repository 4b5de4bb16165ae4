package description

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forgecore/artifact"
	"github.com/forgebuild/forgecore/step"
)

type fakeRule struct {
	target artifact.BuildTarget
}

func (r *fakeRule) Target() artifact.BuildTarget            { return r.target }
func (r *fakeRule) RuleType() string                        { return "fake_rule" }
func (r *fakeRule) Deps() []artifact.BuildTarget             { return nil }
func (r *fakeRule) Outputs() map[string]*artifact.Artifact   { return nil }
func (r *fakeRule) Plan() ([]step.Step, error)               { return nil, nil }
func (r *fakeRule) RuleKey() string                          { return "fakekey" }

func registerFakeRule(t *testing.T) {
	t.Helper()
	Register("fake_rule_"+t.Name(), Schema{Required: []string{"name"}, Optional: []string{"deps"}},
		func(target artifact.BuildTarget, args RawArgs, resolver Resolver) (Rule, error) {
			return &fakeRule{target: target}, nil
		})
}

func TestCreateValidatesRequiredAttributes(t *testing.T) {
	registerFakeRule(t)
	ruleType := "fake_rule_" + t.Name()
	target := artifact.NewBuildTarget("", "app", "x")

	_, err := Create(ruleType, target, RawArgs{}, nil)
	require.Error(t, err)

	_, err = Create(ruleType, target, RawArgs{"name": "x"}, nil)
	require.NoError(t, err)
}

func TestCreateRejectsUnknownAttributes(t *testing.T) {
	registerFakeRule(t)
	ruleType := "fake_rule_" + t.Name()
	target := artifact.NewBuildTarget("", "app", "x")

	_, err := Create(ruleType, target, RawArgs{"name": "x", "bogus": "y"}, nil)
	require.Error(t, err)
}

func TestCreateUnknownRuleType(t *testing.T) {
	_, err := Create("does_not_exist", artifact.NewBuildTarget("", "app", "x"), RawArgs{}, nil)
	require.Error(t, err)
}

func TestRawArgsStringList(t *testing.T) {
	args := RawArgs{"labels": []any{"a", "b"}}
	list, err := args.StringList("labels")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, list)

	empty, err := RawArgs{}.StringList("missing")
	require.NoError(t, err)
	require.Nil(t, empty)
}

func TestDefaultsFileApplyDefaults(t *testing.T) {
	df := &DefaultsFile{Defaults: map[string]map[string]any{
		"python_test": {"baseModule": "tests"},
	}}
	merged := df.ApplyDefaults("python_test", RawArgs{"name": "t"})
	require.Equal(t, "tests", merged["baseModule"])
	require.Equal(t, "t", merged["name"])
}
