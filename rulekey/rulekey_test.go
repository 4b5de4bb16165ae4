package rulekey

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forgecore/artifact"
)

func fixedContentHash(path string) (string, error) {
	return "content:" + path, nil
}

func TestRuleKeyDeterministic(t *testing.T) {
	build := func() string {
		h := NewHasher(fixedContentHash)
		h.AddRuleType("java_library")
		h.AddTarget(artifact.NewBuildTarget("", "app", "lib"))
		require.NoError(t, h.AddAttribute("srcs", ListValue(String("a.java"), String("b.java"))))
		h.AddEnv("LANG", "C")
		return h.Sum()
	}
	require.Equal(t, build(), build())
}

func TestRuleKeySetOrderIndependent(t *testing.T) {
	k1 := func() string {
		h := NewHasher(fixedContentHash)
		require.NoError(t, h.AddAttribute("labels", SetValue(String("a"), String("b"), String("c"))))
		return h.Sum()
	}()
	k2 := func() string {
		h := NewHasher(fixedContentHash)
		require.NoError(t, h.AddAttribute("labels", SetValue(String("c"), String("a"), String("b"))))
		return h.Sum()
	}()
	require.Equal(t, k1, k2)
}

func TestRuleKeyListOrderMatters(t *testing.T) {
	k1 := func() string {
		h := NewHasher(fixedContentHash)
		require.NoError(t, h.AddAttribute("srcs", ListValue(String("a"), String("b"))))
		return h.Sum()
	}()
	k2 := func() string {
		h := NewHasher(fixedContentHash)
		require.NoError(t, h.AddAttribute("srcs", ListValue(String("b"), String("a"))))
		return h.Sum()
	}()
	require.NotEqual(t, k1, k2)
}

// TestRuleKeyCycleBreak is S6: a rule that references its own output
// artifact in its command line must not read that artifact's content --
// there is none yet -- and must terminate.
func TestRuleKeyCycleBreak(t *testing.T) {
	target := artifact.NewBuildTarget("", "app", "gen")
	a := artifact.NewArtifact("out.bin")
	require.NoError(t, a.Bind(artifact.NewBuildTargetSource(target, "out.bin")))
	out := artifact.NewOutputArtifact(a)

	h := NewHasher(func(path string) (string, error) {
		t.Fatalf("content hash must never be read for a self-referencing output artifact, got path %q", path)
		return "", nil
	})
	h.AddCommandLineArg(OutputArtifactValue(out))
	// Must not panic or hang; digest is whatever it is.
	_ = h.Sum()
}

func TestRuleKeyTargetSourceNeverRecursesIntoContent(t *testing.T) {
	producer := artifact.NewBuildTarget("", "app", "producer")
	sp := artifact.NewBuildTargetSource(producer, "out.bin")

	called := false
	h := NewHasher(func(path string) (string, error) {
		called = true
		return "", nil
	})
	require.NoError(t, h.AddAttribute("dep", TargetSourceValue(sp)))
	require.False(t, called, "target source must be hashed by canonical form only")
}
