package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureRedirectsOutput(t *testing.T) {
	require.NoError(t, SetLevel("info"))
	var buf bytes.Buffer
	Configure(&buf)
	Infof("hello %s", "world")
	require.Contains(t, buf.String(), "hello world")
}

func TestWithTargetTagsLines(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf)
	WithTarget("//app:main").Info().Msg("building")
	require.Contains(t, buf.String(), "//app:main")
}
