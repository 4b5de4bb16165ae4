package ioutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forgecore/util/status"
)

func TestLimitBufferWithinLimit(t *testing.T) {
	lb := NewLimitBuffer(10, "test")
	n, err := lb.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", lb.String())
}

func TestLimitBufferExceeded(t *testing.T) {
	lb := NewLimitBuffer(4, "test")
	_, err := lb.Write([]byte("hello"))
	require.Error(t, err)
	require.True(t, status.IsResourceExhaustedError(err))
}

func TestLimitBufferZeroIsUnbounded(t *testing.T) {
	lb := NewLimitBuffer(0, "test")
	_, err := lb.Write(make([]byte, 1<<20))
	require.NoError(t, err)
}
