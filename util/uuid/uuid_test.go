package uuid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	ctx, err := SetInContext(context.Background())
	require.NoError(t, err)
	got, err := GetFromContext(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

func TestSetTwiceFails(t *testing.T) {
	ctx, err := SetInContext(context.Background())
	require.NoError(t, err)
	_, err = SetInContext(ctx)
	require.Error(t, err)
}

func TestGetWithoutSetFails(t *testing.T) {
	_, err := GetFromContext(context.Background())
	require.Error(t, err)
}

func TestWithID(t *testing.T) {
	ctx := WithID(context.Background(), "fixed-id")
	got, err := GetFromContext(ctx)
	require.NoError(t, err)
	require.Equal(t, "fixed-id", got)
}
