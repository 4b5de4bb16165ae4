package rules

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forgecore/artifact"
	"github.com/forgebuild/forgecore/description"
)

func TestExecGraphRespectsDependencyOrder(t *testing.T) {
	lib := &stubRule{target: artifact.NewBuildTarget("", "app", "lib")}
	main := &stubRule{target: artifact.NewBuildTarget("", "app", "main"), deps: []artifact.BuildTarget{lib.target}}

	g := NewExecGraph([]description.Rule{main, lib})

	first, err := g.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "//app:lib", first.Target().String())

	g.MarkComplete(first.Target().String())

	second, err := g.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "//app:main", second.Target().String())

	g.MarkComplete(second.Target().String())

	_, err = g.Next(context.Background())
	require.Equal(t, io.EOF, err)
}
