package dexplanner

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forgebuild/forgecore/util/status"
)

// InputHashes is a memoized snapshot mapping an input path to its
// pre-recorded content hash. The planner never computes these itself and
// never re-reads a live filesystem for them -- per §5, "the input-hash
// provider is expected to be a memoized snapshot, not live."
type InputHashes map[string]string

// pseudoRule is one output's fan-out unit: its inputs, its output path,
// and the side path recording the input hash that last produced it.
type pseudoRule struct {
	outputPath     string
	inputs         []string
	successDirPath string
}

// hashInputs computes SHA1(concat(dexInputHashes[input] for input in
// sorted(inputs))). Sorting the inputs (rather than using the multimap's
// own iteration order, as the Java original did) is what the spec calls
// out explicitly, and is what makes the digest independent of whatever
// order the caller happened to build the multimap in.
func (p *pseudoRule) hashInputs(hashes InputHashes) (string, error) {
	sorted := append([]string(nil), p.inputs...)
	sort.Strings(sorted)
	h := sha1.New()
	for _, in := range sorted {
		hash, ok := hashes[in]
		if !ok {
			return "", status.InternalErrorf("no recorded content hash for dex input %q (programmer error: every input must be pre-hashed)", in)
		}
		h.Write([]byte(hash))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// previousInputsHash reads the first line of the success-directory sidecar
// for this output, or "", false if it doesn't exist.
func (p *pseudoRule) previousInputsHash() (string, bool) {
	data, err := os.ReadFile(p.successDirPath)
	if err != nil {
		return "", false
	}
	line := strings.TrimSpace(strings.SplitN(string(data), "\n", 2)[0])
	return line, line != ""
}

// checkIsCached reports whether this output is already up to date: the
// output file and its success marker both exist, and the marker's
// recorded hash matches newHash.
func (p *pseudoRule) checkIsCached(newHash string) bool {
	if _, err := os.Stat(p.outputPath); err != nil {
		return false
	}
	prevHash, ok := p.previousInputsHash()
	if !ok {
		return false
	}
	return prevHash == newHash
}

// successDirPathFor returns the sidecar path for outputPath's base name
// under successDir.
func successDirPathFor(successDir, outputPath string) string {
	return filepath.Join(successDir, filepath.Base(outputPath))
}

// bucketID derives the dexer's --bucket-id argument from an output's file
// name: "classes.dex" (or any name with no numeric suffix after
// "classes") is the primary bucket; "classesN.dex" is secondary bucket N.
// This mirrors the original dexer's own scheme for naming multi-dex
// outputs, letting the dexer report which logical dex slot a given
// output's method-overflow diagnostics belong to.
func bucketID(outputPath string) string {
	name := filepath.Base(outputPath)
	parts := strings.SplitN(name, "classes", 2)
	if len(parts) != 2 {
		return "primary"
	}
	rest := parts[1]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	digits := rest[:end]
	if digits == "" {
		return "primary"
	}
	return "secondary-" + digits
}
