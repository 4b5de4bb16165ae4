package shlex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitQuoteRoundTrip(t *testing.T) {
	tokens := []string{"foo", "--path=has spaces", "quote's", "~"}
	quoted := Quote(tokens...)
	split, err := Split(quoted)
	require.NoError(t, err)
	require.Equal(t, tokens, split)
}

func TestSplitSimple(t *testing.T) {
	tokens, err := Split("  foo --bar='/Quoted/Path/With Spaces'  ")
	require.NoError(t, err)
	require.Equal(t, []string{"foo", "--bar=/Quoted/Path/With Spaces"}, tokens)
}
