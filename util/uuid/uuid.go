// Package uuid wraps github.com/google/uuid with a context.Context carrier,
// so a single invocation id generated at the top of a run (steprunner.Run)
// can be read back out by anything further down the call stack without
// threading it through every function signature.
package uuid

import (
	"context"
	"fmt"

	guuid "github.com/google/uuid"
)

type contextKey struct{}

// GetFromContext returns the invocation id set by SetInContext, or an error
// if none was set.
func GetFromContext(ctx context.Context) (string, error) {
	u, ok := ctx.Value(contextKey{}).(string)
	if ok {
		return u, nil
	}
	return "", fmt.Errorf("uuid not present in context")
}

// SetInContext generates a fresh random id and returns a context carrying
// it. Calling it on a context that already carries one is a programming
// error.
func SetInContext(ctx context.Context) (context.Context, error) {
	if _, ok := ctx.Value(contextKey{}).(string); ok {
		return nil, fmt.Errorf("uuid already set in context")
	}
	u, err := guuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return context.WithValue(ctx, contextKey{}, u.String()), nil
}

// WithID returns a context carrying the given, already-generated id --
// for callers (like steprunner.Run) that need the same id in a log field
// and in the context they pass down to steps.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// New returns a fresh random id as a plain string, for callers that don't
// need the context carrier.
func New() string {
	return guuid.NewString()
}
