// Package rulekey computes the content-addressed digest that identifies a
// rule's inputs well enough to decide whether its outputs can be reused.
// The central concern is the cycle-breaking rule: a rule that consumes one
// of its own outputs (directly, or an output of a sibling rule at the same
// target) must be hashed by that output's canonical name, never by its
// content or by recursing into the rule that produces it.
package rulekey

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/forgebuild/forgecore/artifact"
)

// ContentHashFunc computes a stable hash of a path source's file content.
// The default, NewHasher's zero value, reads the file relative to the
// process's working directory; callers building against a staged cell root
// should inject one that resolves cellRelativePath accordingly.
type ContentHashFunc func(cellRelativePath string) (string, error)

// DefaultContentHash hashes the file at cellRelativePath with SHA-1 relative
// to the process's current directory.
func DefaultContentHash(cellRelativePath string) (string, error) {
	f, err := os.Open(cellRelativePath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Hasher accumulates a rule key over a sequence of typed contributions. Its
// zero value is not usable; construct with NewHasher.
type Hasher struct {
	h         hash.Hash
	hashFileFn ContentHashFunc
}

// NewHasher constructs a hasher that resolves path-source content hashes
// with hashFile. Pass nil to use DefaultContentHash.
func NewHasher(hashFile ContentHashFunc) *Hasher {
	if hashFile == nil {
		hashFile = DefaultContentHash
	}
	return &Hasher{h: sha1.New(), hashFileFn: hashFile}
}

func (h *Hasher) hashFile(path string) (string, error) {
	return h.hashFileFn(path)
}

// writeTagged appends a length-prefixed tag and a length-prefixed payload.
// Length-prefixing every field (rather than joining with a separator byte)
// is what keeps the digest injective: no sequence of fields can be
// re-segmented into a different sequence that happens to produce the same
// byte stream.
func (h *Hasher) writeTagged(tag string, payload []byte) {
	writeLengthPrefixed(h.h, []byte(tag))
	writeLengthPrefixed(h.h, payload)
}

func writeLengthPrefixed(w io.Writer, b []byte) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
	w.Write(lenBuf[:])
	w.Write(b)
}

// AddRuleType contributes the description's registered type name. Two rules
// built from different descriptions never collide even if every other
// field happens to match.
func (h *Hasher) AddRuleType(typeName string) *Hasher {
	h.writeTagged("rule_type", []byte(typeName))
	return h
}

// AddTarget contributes the rule's own target identity.
func (h *Hasher) AddTarget(t artifact.BuildTarget) *Hasher {
	h.writeTagged("target", []byte(t.String()))
	return h
}

// AddAttribute contributes one named attribute of the rule's attribute bag.
// Attributes are added by the caller in a fixed, schema-defined order (the
// description's field order), so no additional sorting happens here -- only
// unordered collections (sets, maps) sort internally.
func (h *Hasher) AddAttribute(name string, v Value) error {
	h.writeTagged("attr_name", []byte(name))
	return v.writeInto(h)
}

// AddStepContribution folds in a step's own content: its short name plus
// whatever scalar parameters distinguish one instance of that step kind
// from another (e.g. an xz compression level). It does not fold in the
// step's input or output artifacts -- those are contributed separately via
// AddCommandLineArg so the cycle-breaking rule applies uniformly.
func (h *Hasher) AddStepContribution(shortName string, params ...string) *Hasher {
	h.writeTagged("step", []byte(shortName))
	for _, p := range params {
		h.writeTagged("step_param", []byte(p))
	}
	return h
}

// AddCommandLineArg contributes one step command-line argument that
// resolves through an artifact or source path. This is where the
// cycle-breaking rule is enforced:
//
//   - an OutputArtifact contributes its inner artifact's bound source
//     (recursively resolved the same way -- an output promised but not yet
//     produced by a sibling step of the SAME rule still only contributes
//     its canonical name, never content);
//   - a bound artifact whose source is a build-target reference
//     contributes only that target's canonical string, never the
//     producing rule's key or the artifact's eventual content;
//   - anything else (a literal path source, a plain string argument)
//     contributes its canonical stringification.
func (h *Hasher) AddCommandLineArg(v Value) *Hasher {
	switch tv := v.(type) {
	case outputArtifactValue:
		_ = tv.writeInto(h)
	default:
		// Values already encode their own cycle-breaking behavior: a
		// TargetSourceValue writes only the canonical target form, never
		// recursing into content.
		if err := v.writeInto(h); err != nil {
			h.writeTagged("arg_err", []byte(err.Error()))
		}
	}
	return h
}

// AddEnv contributes an environment variable visible to a step, in
// addition to AddAttribute/AddCommandLineArg contributions.
func (h *Hasher) AddEnv(key, value string) *Hasher {
	h.writeTagged("env", []byte(key+"="+value))
	return h
}

// Sum returns the accumulated digest as a lowercase hex string. It does not
// reset the hasher; call Sum only once per rule key.
func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

type outputArtifactValue struct {
	a *artifact.Artifact
}

// OutputArtifactValue wraps a rule's own output artifact as a command-line
// argument value, so AddCommandLineArg applies the cycle-breaking rule to
// it: an artifact bound to a build-target source contributes that target's
// canonical form, one bound to a path source contributes the path's
// canonical string, and an unbound one contributes its name -- never its
// content or the producing step's key.
func OutputArtifactValue(a artifact.OutputArtifact) Value {
	return outputArtifactValue{a: a.Artifact}
}

func (v outputArtifactValue) writeInto(h *Hasher) error {
	src, ok := v.a.Source()
	if !ok {
		h.writeTagged("arg_output", []byte(v.a.Name()))
		return nil
	}
	if t, out, ok := src.Target(); ok {
		h.writeTagged("target_src", []byte(t.String()+":"+out))
		return nil
	}
	h.writeTagged("arg_output", []byte(src.Canonical()))
	return nil
}
func (v outputArtifactValue) sortKey() string { return "arg_output:" + v.a.Name() }
