// Package actioncache defines the key-value store the core reads and
// writes outside its critical path: fetch(ruleKey) -> artifacts?,
// store(ruleKey, artifacts). Misses and fetch errors are handled
// identically by callers -- fall through to local execution -- so this
// package deliberately returns "not found" rather than a typed miss value.
package actioncache

import "context"

// OutputFile is one artifact an action produced: its declared output name
// and its bytes. Symlink outputs are out of scope for this module's
// backends; everything is stored as a regular file.
type OutputFile struct {
	Name string
	Data []byte
}

// ArtifactSet is everything a rule produced, keyed by rule key.
type ArtifactSet struct {
	Outputs []OutputFile
}

// Cache is the action cache interface described in §4.6.
type Cache interface {
	// Fetch returns the artifact set stored for ruleKey, or ok=false if
	// absent or on any backend error -- callers never need to
	// distinguish a miss from a transient fetch failure.
	Fetch(ctx context.Context, ruleKey string) (set ArtifactSet, ok bool)
	// Store records set under ruleKey. Idempotent; last writer wins.
	Store(ctx context.Context, ruleKey string, set ArtifactSet) error
}
