package rules

import (
	"context"
	"io"
	"sync"

	"github.com/forgebuild/forgecore/description"
)

// node is one rule's position in the execution queue: the rule itself plus
// the set of target keys it's still waiting on.
type node struct {
	rule description.Rule
	deps []string
}

// ExecGraph is a runnable work queue over an assembled set of rules: it
// hands out rules whose dependencies have all completed, and blocks
// callers when nothing is currently runnable but the graph isn't done.
// Shaped directly after a Make-style action graph: a queue plus a
// completion set plus a single-slot notify channel, rather than a
// recomputed topological order.
type ExecGraph struct {
	notify chan struct{}

	mu       sync.Mutex
	closed   bool
	queue    []*node
	complete map[string]bool
}

// NewExecGraph builds a runnable queue from every rule the assembler has
// materialized. Call this only after RequireAll/Require has finished
// pulling in the full target set -- the queue is closed for adds
// immediately.
func NewExecGraph(rulesList []description.Rule) *ExecGraph {
	g := &ExecGraph{
		complete: make(map[string]bool),
		notify:   make(chan struct{}, 1),
	}
	for _, r := range rulesList {
		deps := make([]string, 0, len(r.Deps()))
		for _, d := range r.Deps() {
			deps = append(deps, d.String())
		}
		g.queue = append(g.queue, &node{rule: r, deps: deps})
		g.complete[r.Target().String()] = false
	}
	g.closed = true
	return g
}

func (g *ExecGraph) isRunnable(n *node) bool {
	for _, dep := range n.deps {
		complete, ok := g.complete[dep]
		if !ok {
			// Dependency outside the requested target set (e.g. a
			// prebuilt artifact with no rule of its own): treat as
			// already satisfied.
			continue
		}
		if !complete {
			return false
		}
	}
	return true
}

func (g *ExecGraph) pop() (*node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) == 0 {
		return nil, io.EOF
	}
	for i, n := range g.queue {
		if g.isRunnable(n) {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			return n, nil
		}
	}
	return nil, nil
}

// MarkComplete records target as finished and wakes any Next waiters that
// might now have runnable work.
func (g *ExecGraph) MarkComplete(target string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.complete[target] = true
	select {
	case g.notify <- struct{}{}:
	default:
	}
}

// Next blocks until a runnable rule is available, returning io.EOF once
// the queue is fully drained.
func (g *ExecGraph) Next(ctx context.Context) (description.Rule, error) {
	for {
		n, err := g.pop()
		if err != nil {
			return nil, err
		}
		if n != nil {
			return n.rule, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-g.notify:
		}
	}
}

// Remaining reports how many rules have not yet completed.
func (g *ExecGraph) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.complete {
		if !c {
			n++
		}
	}
	return n
}
