// Package rules assembles a DAG of materialized rules from a set of
// requested build targets, detecting dependency cycles during assembly
// (never lazily at execution time), and exposes the assembled graph as a
// work queue an executor can drain concurrently.
package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/forgebuild/forgecore/artifact"
	"github.com/forgebuild/forgecore/description"
	"github.com/forgebuild/forgecore/util/status"
)

// TargetSource looks up a target's rule type and raw attributes, e.g. by
// parsing a build file. It is the only extension point the assembler
// needs beyond the description registry itself.
type TargetSource interface {
	Lookup(t artifact.BuildTarget) (ruleType string, args description.RawArgs, err error)
}

// Assembler materializes targets into rules, one at a time, detecting
// cycles by walking its own in-progress call stack. It is grounded on the
// same "pull dependencies in as you discover them" shape as a recursive
// descent parser, rather than requiring a separate, up-front target
// listing pass.
type Assembler struct {
	source TargetSource

	mu       sync.Mutex
	rules    map[string]description.Rule
	building map[string]bool
	stack    []string
}

// NewAssembler constructs an assembler that resolves rule types and
// attributes via source.
func NewAssembler(source TargetSource) *Assembler {
	return &Assembler{
		source:   source,
		rules:    make(map[string]description.Rule),
		building: make(map[string]bool),
	}
}

// Require materializes t if necessary and returns its Rule. Descriptions
// call this (via the Resolver they're handed) to pull in dependencies;
// top-level callers call it directly for each requested target.
func (a *Assembler) Require(t artifact.BuildTarget) (description.Rule, error) {
	key := t.String()

	a.mu.Lock()
	if r, ok := a.rules[key]; ok {
		a.mu.Unlock()
		return r, nil
	}
	if a.building[key] {
		cycle := append(append([]string(nil), a.stack...), key)
		a.mu.Unlock()
		return nil, status.FailedPreconditionErrorf("dependency cycle detected: %s", strings.Join(cycle, " -> "))
	}
	a.building[key] = true
	a.stack = append(a.stack, key)
	a.mu.Unlock()

	rule, err := a.materialize(t)

	a.mu.Lock()
	a.stack = a.stack[:len(a.stack)-1]
	delete(a.building, key)
	if err == nil {
		a.rules[key] = rule
	}
	a.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("materializing %s: %w", key, err)
	}
	return rule, nil
}

func (a *Assembler) materialize(t artifact.BuildTarget) (description.Rule, error) {
	ruleType, args, err := a.source.Lookup(t)
	if err != nil {
		return nil, err
	}
	return description.Create(ruleType, t, args, a)
}

// AddToIndex registers a rule a description synthesized itself, e.g. a
// test-modules-list generator or a flavored binary sibling. This is the
// push-based counterpart to Require's pull-based materialization. Returns
// an AlreadyExists error if rule's target is already indexed, matching
// "duplicate targets are an error" from §4.2.
func (a *Assembler) AddToIndex(rule description.Rule) error {
	key := rule.Target().String()
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.rules[key]; ok {
		return status.AlreadyExistsErrorf("%s is already indexed", key)
	}
	a.rules[key] = rule
	return nil
}

// AllRules returns the rules for targets, materializing any not yet
// resolved, in the same order as targets -- "getAllRules(targets) →
// ordered set, preserving caller order" per §4.2. Stops at the first
// error.
func (a *Assembler) AllRules(targets []artifact.BuildTarget) ([]description.Rule, error) {
	out := make([]description.Rule, 0, len(targets))
	for _, t := range targets {
		r, err := a.Require(t)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// MaterializedRules returns every rule materialized or indexed so far,
// sorted by target for deterministic iteration order -- e.g. to hand the
// full DAG to an ExecGraph once assembly is complete. Unlike AllRules,
// this isn't ordered by any caller-supplied target list, since by the time
// it's useful (building the whole exec graph) there isn't one.
func (a *Assembler) MaterializedRules() []description.Rule {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]description.Rule, 0, len(a.rules))
	for _, r := range a.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target().String() < out[j].Target().String() })
	return out
}

// RequireAll materializes every target in targets along with their
// transitive dependencies, stopping at the first error.
func (a *Assembler) RequireAll(targets []artifact.BuildTarget) error {
	for _, t := range targets {
		if _, err := a.Require(t); err != nil {
			return err
		}
	}
	return nil
}
