// Package steprunner drives a rule's plan to completion: it executes each
// step in order, tags failures with the owning target, and logs progress
// the way the rest of this codebase logs a busy build.
package steprunner

import (
	"context"
	"fmt"

	"github.com/forgebuild/forgecore/artifact"
	"github.com/forgebuild/forgecore/step"
	"github.com/forgebuild/forgecore/util/log"
	"github.com/forgebuild/forgecore/util/status"
	"github.com/forgebuild/forgecore/util/uuid"
)

// Steps is anything that can hand back an ordered plan of steps to run --
// satisfied directly by []step.Step.
type Steps []step.Step

// Owner is anything Run can attribute a plan's steps to in logs and error
// messages. artifact.BuildTarget satisfies this directly; dexplanner
// attributes a fan-out pipeline to its output path instead of a real
// target, since one pipeline isn't a rule in its own right.
type Owner interface {
	String() string
}

// Run executes steps in order under the given owning target, stopping at
// the first failing step. The returned error is already wrapped with
// status.WrapErrorf so its classification (Code) survives, with the
// owning target and the failing step's short name folded into the
// message. The per-run invocation id appears in the log lines and in the
// context passed to each step, not in the error message.
func Run(ctx context.Context, owner Owner, steps Steps) error {
	invocationID := uuid.New()
	ctx = uuid.WithID(ctx, invocationID)
	logger := log.WithTarget(owner.String())
	logger.Info().Str("invocation", invocationID).Int("steps", len(steps)).Msg("starting plan")

	for _, s := range steps {
		logger.Debug().Str("invocation", invocationID).Str("step", s.ShortName()).Msg(s.Describe())
		if _, err := s.Execute(ctx); err != nil {
			logger.Error().Str("invocation", invocationID).Str("step", s.ShortName()).Err(err).Msg("step failed")
			return status.WrapErrorf(err, "%s: step %q failed", owner.String(), s.ShortName())
		}
	}
	logger.Info().Str("invocation", invocationID).Msg("plan complete")
	return nil
}

// RunRule runs a single materialized rule's plan end to end.
func RunRule(ctx context.Context, target artifact.BuildTarget, plan []step.Step) error {
	if err := Run(ctx, target, plan); err != nil {
		return fmt.Errorf("rule %s: %w", target.String(), err)
	}
	return nil
}
