package artifact

import "fmt"

// SourceKind tags which variant a SourcePath holds.
type SourceKind int

const (
	// PathSource is a literal filesystem path relative to a cell root.
	// Content-hashable directly.
	PathSource SourceKind = iota
	// BuildTargetSource is a reference to (target, output name). For
	// rule-key purposes it is represented by the target's canonical
	// textual form, never by recursively hashing its outputs.
	BuildTargetSource
)

// SourcePath is a tagged variant over the two ways a rule can name an input
// file: a literal path, or a reference to another target's declared output.
type SourcePath struct {
	kind SourceKind

	// Valid when kind == PathSource.
	cellRelativePath string

	// Valid when kind == BuildTargetSource.
	target     BuildTarget
	outputName string
}

// NewPathSource builds a source path pointing at a literal file relative to
// a cell root.
func NewPathSource(cellRelativePath string) SourcePath {
	return SourcePath{kind: PathSource, cellRelativePath: cellRelativePath}
}

// NewBuildTargetSource builds a source path that refers to a named output of
// another target.
func NewBuildTargetSource(target BuildTarget, outputName string) SourcePath {
	return SourcePath{kind: BuildTargetSource, target: target, outputName: outputName}
}

func (s SourcePath) Kind() SourceKind { return s.kind }

// Path returns the cell-relative path and true iff this is a path source.
func (s SourcePath) Path() (string, bool) {
	if s.kind != PathSource {
		return "", false
	}
	return s.cellRelativePath, true
}

// Target returns the referenced target and output name, and true, iff this
// is a build-target source.
func (s SourcePath) Target() (BuildTarget, string, bool) {
	if s.kind != BuildTargetSource {
		return BuildTarget{}, "", false
	}
	return s.target, s.outputName, true
}

// Canonical renders the form used for human-readable diagnostics and for
// the "otherwise" bucket of the command-line-args rule-key dispatch: the
// object's canonical stringification, never its content.
func (s SourcePath) Canonical() string {
	switch s.kind {
	case PathSource:
		return "//" + s.cellRelativePath
	case BuildTargetSource:
		return fmt.Sprintf("%s:%s", s.target.String(), s.outputName)
	default:
		return ""
	}
}
