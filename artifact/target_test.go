package artifact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildTargetString(t *testing.T) {
	bt := NewBuildTarget("", "app/main", "bin")
	require.Equal(t, "//app/main:bin", bt.String())

	withCell := NewBuildTarget("thirdparty", "lib", "util")
	require.Equal(t, "thirdparty//lib:util", withCell.String())
}

func TestBuildTargetWithFlavorsSortsAndUnions(t *testing.T) {
	bt := NewBuildTarget("", "app", "test").WithFlavors("binary")
	bt2 := bt.WithFlavors("binary", "android-x86")
	require.Equal(t, []string{"android-x86", "binary"}, bt2.SortedFlavors())
	require.Equal(t, "//app:test#android-x86,binary", bt2.String())
}

func TestBuildTargetBaseClearsFlavors(t *testing.T) {
	bt := NewBuildTarget("", "app", "test").WithFlavors("binary")
	require.Equal(t, "//app:test", bt.Base().String())
}

func TestBuildTargetEqual(t *testing.T) {
	a := NewBuildTarget("cell", "pkg", "name").WithFlavors("x", "y")
	b := NewBuildTarget("cell", "pkg", "name").WithFlavors("y", "x")
	require.True(t, a.Equal(b))
}

func TestParseBuildTargetRoundTrips(t *testing.T) {
	for _, s := range []string{
		"//app/main:bin",
		"thirdparty//lib:util",
		"//app:test#android-x86,binary",
	} {
		bt, err := ParseBuildTarget(s)
		require.NoError(t, err)
		require.Equal(t, s, bt.String())
	}
}

func TestParseBuildTargetRejectsMalformed(t *testing.T) {
	_, err := ParseBuildTarget("app:bin")
	require.Error(t, err)

	_, err = ParseBuildTarget("//app")
	require.Error(t, err)
}
