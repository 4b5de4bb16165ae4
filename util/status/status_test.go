package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestClassificationRoundTrips(t *testing.T) {
	err := InvalidArgumentErrorf("bad attribute %q", "srcs")
	require.True(t, IsInvalidArgumentError(err))
	require.Equal(t, codes.InvalidArgument, Code(err))
	require.False(t, IsNotFoundError(err))
}

func TestWrapErrorPreservesCode(t *testing.T) {
	base := AbortedErrorf("step %q failed", "dex")
	wrapped := WrapErrorf(base, "rule %s", "//app:main")
	require.Equal(t, codes.Aborted, Code(wrapped))
	require.True(t, errors.Is(wrapped, base) || IsAbortedError(wrapped))
}

func TestCodeOfPlainErrorIsUnknown(t *testing.T) {
	require.Equal(t, codes.Unknown, Code(errors.New("boom")))
}

func TestCodeOfNilIsOK(t *testing.T) {
	require.Equal(t, codes.OK, Code(nil))
}
