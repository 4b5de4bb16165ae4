// Package step defines the unit of execution a rule's plan is built from,
// plus a handful of concrete steps common to most descriptions. Steps are
// intentionally dumb: they know how to run themselves given resolved
// filesystem paths, and nothing about targets, rule keys, or caching.
package step

import (
	"context"
	"fmt"
)

// Result is what a step reports about a single execution.
type Result struct {
	// Outputs lists the filesystem paths the step wrote, for callers that
	// want to record per-output success markers (see dexplanner).
	Outputs []string
}

// Step is a single unit of work in a rule's execution plan.
type Step interface {
	// ShortName is a stable, human-readable identifier for logging and
	// for rule-key step contributions (e.g. "mkdir", "xz_compress").
	ShortName() string
	// Describe is a one-line human-readable summary of this instance,
	// e.g. the command line it will run.
	Describe() string
	// Execute runs the step. The concrete steps in this package return
	// failures built with util/status's constructors (InternalErrorf,
	// AbortedErrorf, ...) so callers can tell configuration mistakes from
	// execution failures without string matching; a Func returns whatever
	// error its Run function returns.
	Execute(ctx context.Context) (Result, error)
}

// Func adapts a plain function to the Step interface for steps simple
// enough not to need their own named type.
type Func struct {
	Name string
	Desc string
	Run  func(ctx context.Context) (Result, error)
}

func (f Func) ShortName() string { return f.Name }
func (f Func) Describe() string  { return f.Desc }
func (f Func) Execute(ctx context.Context) (Result, error) {
	return f.Run(ctx)
}

// Sequence runs steps in order, stopping at the first error.
type Sequence struct {
	Name  string
	Steps []Step
}

func (s Sequence) ShortName() string { return s.Name }
func (s Sequence) Describe() string {
	return fmt.Sprintf("sequence(%s) of %d steps", s.Name, len(s.Steps))
}
func (s Sequence) Execute(ctx context.Context) (Result, error) {
	var all Result
	for _, st := range s.Steps {
		r, err := st.Execute(ctx)
		all.Outputs = append(all.Outputs, r.Outputs...)
		if err != nil {
			return all, fmt.Errorf("%s: %w", st.ShortName(), err)
		}
	}
	return all, nil
}
