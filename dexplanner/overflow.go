package dexplanner

import (
	"regexp"

	"github.com/forgebuild/forgecore/util/status"
)

// overflowPattern matches the diagnostics dexers conventionally emit when
// a single dex file exceeds the platform's method or field reference
// limit (the classic "too many classes" Android failure). Matching by
// pattern, rather than by a typed error from the dexer, mirrors how an
// opaque external tool's stderr is the only signal available.
var overflowPattern = regexp.MustCompile(`(?i)method ID not in \[0, 0x10000\)|too many (method|field) references|trying to encode a (method|field) index`)

// DexOverflowError is a classified execution failure: the dexer reported
// that one output exceeded a reference-count limit. OutputPath and cause
// are preserved so callers can render an actionable diagnostic instead of
// a raw tool failure.
type DexOverflowError struct {
	OutputPath string
	Cause      error
}

func (e *DexOverflowError) Error() string {
	return "dex overflow for " + e.OutputPath + ": too many method/field references; split the target's sources across more secondary dexes: " + e.Cause.Error()
}
func (e *DexOverflowError) Unwrap() error { return e.Cause }

// classifyFailure wraps err as a DexOverflowError if its message matches
// the known overflow diagnostics, otherwise returns it wrapped as a plain
// execution failure via util/status.
func classifyFailure(outputPath string, err error) error {
	if err == nil {
		return nil
	}
	if overflowPattern.MatchString(err.Error()) {
		return &DexOverflowError{OutputPath: outputPath, Cause: err}
	}
	return status.WrapErrorf(err, "dex pipeline for %s failed", outputPath)
}
