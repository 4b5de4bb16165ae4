// Package artifact defines the typed references to files that rules depend
// on and produce: build targets, source paths, and artifacts.
package artifact

import (
	"fmt"
	"sort"
	"strings"
)

// BuildTarget is a fully-qualified target identifier (//cell/path:name)
// plus an ordered set of flavors that select a variant. Two targets with
// the same base but different flavor sets are distinct rules.
type BuildTarget struct {
	Cell    string
	Pkg     string
	Name    string
	Flavors []string
}

// NewBuildTarget constructs an unflavored target.
func NewBuildTarget(cell, pkg, name string) BuildTarget {
	return BuildTarget{Cell: cell, Pkg: pkg, Name: name}
}

// WithFlavors returns a new target sharing this target's base and the union
// of its existing flavors with the given ones. Descriptions use this to
// synthesize auxiliary targets, e.g. the "#binary" sibling of a test.
func (t BuildTarget) WithFlavors(flavors ...string) BuildTarget {
	set := make(map[string]struct{}, len(t.Flavors)+len(flavors))
	for _, f := range t.Flavors {
		set[f] = struct{}{}
	}
	for _, f := range flavors {
		set[f] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return BuildTarget{Cell: t.Cell, Pkg: t.Pkg, Name: t.Name, Flavors: out}
}

// Base returns the target with its flavor set cleared.
func (t BuildTarget) Base() BuildTarget {
	return BuildTarget{Cell: t.Cell, Pkg: t.Pkg, Name: t.Name}
}

// SortedFlavors returns the flavor set in canonical sort order.
func (t BuildTarget) SortedFlavors() []string {
	out := append([]string(nil), t.Flavors...)
	sort.Strings(out)
	return out
}

// String renders the canonical textual form of the target: the form used
// both for human-readable errors and for the rule-key cycle-breaking
// representation described in the rule-key hasher.
func (t BuildTarget) String() string {
	var b strings.Builder
	b.WriteString(t.Cell)
	fmt.Fprintf(&b, "//%s:%s", strings.TrimPrefix(t.Pkg, "/"), t.Name)
	flavors := t.SortedFlavors()
	if len(flavors) > 0 {
		b.WriteByte('#')
		b.WriteString(strings.Join(flavors, ","))
	}
	return b.String()
}

// Equal reports whether two targets have the same canonical form.
func (t BuildTarget) Equal(o BuildTarget) bool {
	return t.String() == o.String()
}

// ParseBuildTarget parses the canonical textual form String renders:
// [cell]//pkg:name[#flavor1,flavor2,...]. Parsing is deliberately strict
// since the core treats build-file parsing as out of scope; this exists
// only so a CLI front-end or test fixture can turn a command-line string
// into a BuildTarget without hand-building the struct.
func ParseBuildTarget(s string) (BuildTarget, error) {
	var cell string
	rest := s
	if idx := strings.Index(s, "//"); idx >= 0 {
		cell = s[:idx]
		rest = s[idx+2:]
	} else {
		return BuildTarget{}, fmt.Errorf("invalid target %q: missing //", s)
	}

	flavorPart := ""
	if h := strings.IndexByte(rest, '#'); h >= 0 {
		flavorPart = rest[h+1:]
		rest = rest[:h]
	}

	colon := strings.LastIndexByte(rest, ':')
	if colon < 0 {
		return BuildTarget{}, fmt.Errorf("invalid target %q: missing :name", s)
	}
	pkg := rest[:colon]
	name := rest[colon+1:]
	if name == "" {
		return BuildTarget{}, fmt.Errorf("invalid target %q: empty name", s)
	}

	var flavors []string
	if flavorPart != "" {
		flavors = strings.Split(flavorPart, ",")
	}
	return BuildTarget{Cell: cell, Pkg: pkg, Name: name, Flavors: flavors}, nil
}
