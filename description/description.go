// Package description implements the pluggable rule-type registry: each
// rule type is described once, by name, with a function that turns a raw
// attribute bag into a concrete Rule. Materializing a target means looking
// up its description by type name and calling it.
package description

import (
	"fmt"
	"sort"
	"sync"

	"github.com/forgebuild/forgecore/artifact"
	"github.com/forgebuild/forgecore/step"
	"github.com/forgebuild/forgecore/util/status"
)

// RawArgs is an unvalidated attribute bag as parsed from a build file or
// test fixture: JSON/YAML-shaped values keyed by attribute name.
type RawArgs map[string]any

// String returns the string value for key, or an error if it is absent or
// not a string.
func (a RawArgs) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", status.InvalidArgumentErrorf("missing required attribute %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", status.InvalidArgumentErrorf("attribute %q must be a string, got %T", key, v)
	}
	return s, nil
}

// OptString returns the string value for key, or def if absent.
func (a RawArgs) OptString(key, def string) string {
	v, ok := a[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// StringList returns the []string value for key, treating an absent key
// as an empty list.
func (a RawArgs) StringList(key string) ([]string, error) {
	v, ok := a[key]
	if !ok {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return s, nil
		}
		return nil, status.InvalidArgumentErrorf("attribute %q must be a list, got %T", key, v)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, status.InvalidArgumentErrorf("attribute %q has a non-string element %v", key, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// Resolver lets a description turn a dependency attribute into the
// already-materialized Rule it names, so the description can read that
// rule's declared outputs without itself knowing how resolution works.
type Resolver interface {
	// Require returns the materialized rule for t, materializing it first
	// if necessary. Returns a FailedPrecondition error if resolving t
	// would close a cycle through the caller's own assembly stack.
	Require(t artifact.BuildTarget) (Rule, error)
	// AddToIndex registers a rule the description synthesized itself --
	// the push-based counterpart to Require's pull-based materialization.
	// Used for auxiliary rules a description builds without going through
	// a Factory, e.g. a test-modules-list generator or a flavored binary
	// sibling. Returns an AlreadyExists error if rule's target is already
	// indexed.
	AddToIndex(rule Rule) error
}

// Rule is what a description produces: enough information for the
// assembler to place it in the DAG and for the rule-key hasher and planner
// to do their jobs, without either of them knowing the description's
// internal attribute schema.
type Rule interface {
	Target() artifact.BuildTarget
	RuleType() string
	// Deps lists every other target this rule's materialization touched,
	// whether as a literal source or as a plain dependency edge.
	Deps() []artifact.BuildTarget
	// Outputs lists the artifacts this rule declares, by output name.
	Outputs() map[string]*artifact.Artifact
	// Plan returns the ordered steps that produce Outputs from Deps.
	// Called once, after the whole DAG is assembled, so Plan can safely
	// read other rules' Outputs() through the Resolver it was built with.
	Plan() ([]step.Step, error)
	// RuleKey returns this rule's content-addressed digest, computed over
	// its type, target, attributes, and step/artifact contributions.
	RuleKey() string
}

// Factory builds a Rule for one target from its raw attribute bag and a
// resolver it can use to look up its dependencies.
type Factory func(target artifact.BuildTarget, args RawArgs, resolver Resolver) (Rule, error)

// Schema declares which attribute keys a description accepts, so a typo'd
// attribute name is caught as a Configuration error at materialization
// time instead of silently doing nothing.
type Schema struct {
	Required []string
	Optional []string
}

func (s Schema) validate(ruleType string, args RawArgs) error {
	allowed := make(map[string]bool, len(s.Required)+len(s.Optional))
	for _, k := range s.Required {
		allowed[k] = true
	}
	for _, k := range s.Optional {
		allowed[k] = true
	}
	for _, k := range s.Required {
		if _, ok := args[k]; !ok {
			return status.InvalidArgumentErrorf("%s: missing required attribute %q", ruleType, k)
		}
	}
	for k := range args {
		if !allowed[k] {
			return status.InvalidArgumentErrorf("%s: unknown attribute %q", ruleType, k)
		}
	}
	return nil
}

type registration struct {
	typeName string
	schema   Schema
	factory  Factory
}

var (
	registryMu sync.RWMutex
	registry   = map[string]registration{}
)

// Register adds a description to the global registry. Typically called
// from an init() function in the package that defines one rule type.
// Registering the same type name twice panics, since that can only be a
// programming error in this process's own set of compiled-in
// descriptions, never a user mistake.
func Register(typeName string, schema Schema, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[typeName]; exists {
		panic(fmt.Sprintf("description: %q is already registered", typeName))
	}
	registry[typeName] = registration{typeName: typeName, schema: schema, factory: factory}
}

// RegisteredTypes returns the sorted list of registered rule type names.
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Create validates args against ruleType's schema and invokes its factory.
// Returns an InvalidArgument error (via status) if ruleType isn't
// registered, or if args fails schema validation.
func Create(ruleType string, target artifact.BuildTarget, args RawArgs, resolver Resolver) (Rule, error) {
	registryMu.RLock()
	reg, ok := registry[ruleType]
	registryMu.RUnlock()
	if !ok {
		return nil, status.InvalidArgumentErrorf("no description registered for rule type %q", ruleType)
	}
	if err := reg.schema.validate(ruleType, args); err != nil {
		return nil, err
	}
	return reg.factory(target, args, resolver)
}
