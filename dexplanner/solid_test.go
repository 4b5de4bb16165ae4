package dexplanner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestXZSGroupingKey is S4 at the grouping-key level: two counters of the
// same prefix must map to one group file; a different prefix must not.
func TestXZSGroupingKey(t *testing.T) {
	require.Equal(t, "out/secondary.dex.jar.xzs", xzsGroupKey("out/secondary-1.dex.jar.xzs"))
	require.Equal(t, "out/secondary.dex.jar.xzs", xzsGroupKey("out/secondary-2.dex.jar.xzs"))
	require.Equal(t, "out/tertiary.dex.jar.xzs", xzsGroupKey("out/tertiary-1.dex.jar.xzs"))
}

func TestBucketIDDerivation(t *testing.T) {
	require.Equal(t, "primary", bucketID("out/classes.dex"))
	require.Equal(t, "secondary-2", bucketID("out/classes2.dex"))
	require.Equal(t, "secondary-7", bucketID("out/classes7.dex.jar"))
}
