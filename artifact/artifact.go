package artifact

import "github.com/forgebuild/forgecore/util/status"

// Artifact is a declared output of some action. It starts out unbound and
// becomes bound to a SourcePath once the action that produces it is wired
// up. Every bound artifact must be produced by exactly one action; binding
// an already-bound artifact to a different source is an assembly error.
type Artifact struct {
	name   string
	bound  bool
	source SourcePath
}

// NewArtifact declares an unbound output named name. name is the logical
// output name a rule exposes it under (e.g. "classes.dex"), not a
// filesystem path.
func NewArtifact(name string) *Artifact {
	return &Artifact{name: name}
}

func (a *Artifact) Name() string { return a.name }
func (a *Artifact) IsBound() bool { return a.bound }

// Bind wires this artifact to the source path an action promises to produce
// it at. Returns an error if the artifact is already bound.
func (a *Artifact) Bind(source SourcePath) error {
	if a.bound {
		return status.AlreadyExistsErrorf("artifact %q is already bound to %s", a.name, a.source.Canonical())
	}
	a.source = source
	a.bound = true
	return nil
}

// Source returns the bound source path and true, or the zero value and
// false if the artifact is still unbound.
func (a *Artifact) Source() (SourcePath, bool) {
	if !a.bound {
		return SourcePath{}, false
	}
	return a.source, true
}

// OutputArtifact wraps an artifact that a particular action promises to
// produce. Its rule-key representation is always its inner artifact's
// representation (see rulekey.AddCommandLineArg).
type OutputArtifact struct {
	*Artifact
}

// NewOutputArtifact wraps an artifact as the promised output of the calling
// action.
func NewOutputArtifact(a *Artifact) OutputArtifact {
	return OutputArtifact{Artifact: a}
}
