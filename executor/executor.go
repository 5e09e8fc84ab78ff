// Package executor implements Component F: a bounded-concurrency,
// dependency-respecting executor with fail-fast-per-subgraph semantics and
// skip propagation (§4.5).
package executor

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Status is the terminal state of one node's execution.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusSkipped
)

// Result is the outcome recorded for one node.
type Result struct {
	Node   string
	Status Status
	Err    error
}

// Operation is the per-node work function. ctx is cancelled when the
// executor is asked to stop enqueueing new work; an in-flight Operation
// call is never interrupted (§4.5 step "Cancellation").
type Operation func(ctx context.Context, node string) error

// FailurePredicate, given a node and the error its Operation returned (nil
// on success), may convert an apparent success into a failure — e.g. "the
// service has no running containers after start" (§4.5 step 4).
type FailurePredicate func(node string, err error) error

// Executor runs a fixed node set's Operation concurrently, honoring a
// dependency function and a concurrency cap (default 64, §4.5/§5).
type Executor struct {
	Limit     int
	Deps      func(node string) []string
	Predicate FailurePredicate
}

// New builds an Executor with the default concurrency cap.
func New(deps func(node string) []string) *Executor {
	return &Executor{Limit: 64, Deps: deps}
}

// Run executes op over nodes, blocking until every reachable node has a
// terminal Result. Unreachable nodes are reported with a descriptive error
// rather than hanging forever (§4.5 steps 1-2): a node depending on a node
// outside the set is StatusFailed, a node in a dependency cycle is
// StatusSkipped.
func (e *Executor) Run(ctx context.Context, nodes []string, op Operation) map[string]Result {
	limit := e.Limit
	if limit <= 0 {
		limit = 64
	}

	nodeSet := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		nodeSet[n] = struct{}{}
	}

	results := make(map[string]Result, len(nodes))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(limit))

	// Step 1: validate every named dependency is in the node set.
	for _, n := range nodes {
		for _, d := range e.Deps(n) {
			if _, ok := nodeSet[d]; !ok {
				mu.Lock()
				results[n] = Result{Node: n, Status: StatusFailed,
					Err: fmt.Errorf("executor: node %q depends on unknown node %q", n, d)}
				mu.Unlock()
			}
		}
	}

	// Step 2: detect unreachable cycles; any node transitively involved in
	// a cycle (and not already failed above) is marked skipped.
	cyclic := detectCycles(nodes, e.Deps)
	for n := range cyclic {
		mu.Lock()
		if _, already := results[n]; !already {
			results[n] = Result{Node: n, Status: StatusSkipped,
				Err: fmt.Errorf("executor: node %q is part of a dependency cycle", n)}
		}
		mu.Unlock()
	}

	// Propagate the step 1/2 failures to their transitive dependents before
	// any dispatch begins, so a node depending on an unreachable/cyclic
	// node is skipped rather than waiting forever for a success that will
	// never arrive.
	propagateUnreachable(nodes, e.Deps, results)

	pending := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if _, done := results[n]; !done {
			pending[n] = struct{}{}
		}
	}

	dispatched := make(map[string]struct{}, len(nodes))
	cond := sync.NewCond(&mu)

	// dispatchReady must be called with mu held. It launches a goroutine
	// for every pending, not-yet-dispatched, dependency-satisfied node,
	// bounded by sem. cancelled short-circuits dispatch once the context
	// is done, so the scheduler stops enqueueing new work (§4.5
	// "Cancellation") while in-flight operations keep running to
	// completion.
	dispatchReady := func(cancelled bool) {
		if cancelled {
			return
		}
		for n := range pending {
			if _, already := dispatched[n]; already {
				continue
			}
			if !nodeReady(n, e.Deps(n), results) {
				continue
			}
			if !sem.TryAcquire(1) {
				continue
			}
			dispatched[n] = struct{}{}
			wg.Add(1)
			go func(node string) {
				defer wg.Done()
				defer sem.Release(1)

				err := op(ctx, node)
				if e.Predicate != nil {
					if predErr := e.Predicate(node, err); predErr != nil {
						err = predErr
					}
				}
				status := StatusSucceeded
				if err != nil {
					status = StatusFailed
				}

				mu.Lock()
				results[node] = Result{Node: node, Status: status, Err: err}
				delete(pending, node)
				if status == StatusFailed {
					skipDependents(node, nodes, e.Deps, results, pending)
				}
				cond.Broadcast()
				mu.Unlock()
			}(n)
		}
	}

	mu.Lock()
	for len(pending) > 0 {
		dispatchReady(ctx.Err() != nil)

		if ctx.Err() != nil {
			// Cancelled and everything remaining is either in-flight or
			// unreachable (its dependency never succeeds): stop waiting
			// for new dispatches and drain what's in flight.
			break
		}
		cond.Wait()
	}
	mu.Unlock()

	wg.Wait()

	mu.Lock()
	for n := range pending {
		if _, running := dispatched[n]; running {
			continue
		}
		results[n] = Result{Node: n, Status: StatusSkipped,
			Err: fmt.Errorf("executor: node %q never became ready (cancelled or unreachable)", n)}
	}
	mu.Unlock()

	return results
}

// propagateUnreachable marks every node transitively dependent on an
// already-resolved (failed or skipped) node as skipped, to a fixpoint.
func propagateUnreachable(nodes []string, deps func(string) []string, results map[string]Result) {
	for {
		changed := false
		for _, n := range nodes {
			if _, done := results[n]; done {
				continue
			}
			for _, d := range deps(n) {
				if r, ok := results[d]; ok && r.Status != StatusSucceeded {
					results[n] = Result{Node: n, Status: StatusSkipped,
						Err: fmt.Errorf("executor: skipped because dependency %q did not succeed", d)}
					changed = true
					break
				}
			}
		}
		if !changed {
			return
		}
	}
}

func nodeReady(node string, deps []string, results map[string]Result) bool {
	for _, d := range deps {
		r, done := results[d]
		if !done || r.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// skipDependents transitively marks every dependent of a failed node as
// skipped without running it (§4.5 step 5), mutating results/pending in
// place. Caller holds mu.
func skipDependents(failed string, nodes []string, deps func(string) []string, results map[string]Result, pending map[string]struct{}) {
	var mark func(name string)
	mark = func(name string) {
		for _, n := range nodes {
			if _, stillPending := pending[n]; !stillPending {
				continue
			}
			for _, d := range deps(n) {
				if d == name {
					results[n] = Result{Node: n, Status: StatusSkipped,
						Err: fmt.Errorf("executor: skipped because dependency %q failed", name)}
					delete(pending, n)
					mark(n)
					break
				}
			}
		}
	}
	mark(failed)
}

// detectCycles returns the set of nodes that participate in a dependency
// cycle, via three-color DFS, so Run can mark them skipped up front rather
// than waiting forever for a dependency that will never succeed.
func detectCycles(nodes []string, deps func(string) []string) map[string]struct{} {
	const (
		white = iota
		gray
		black
	)
	colors := make(map[string]int, len(nodes))
	cyclic := map[string]struct{}{}

	var stack []string
	var visit func(n string)
	visit = func(n string) {
		switch colors[n] {
		case black:
			return
		case gray:
			for i := len(stack) - 1; i >= 0; i-- {
				cyclic[stack[i]] = struct{}{}
				if stack[i] == n {
					break
				}
			}
			return
		}
		colors[n] = gray
		stack = append(stack, n)
		for _, d := range deps(n) {
			visit(d)
		}
		stack = stack[:len(stack)-1]
		colors[n] = black
	}

	for _, n := range nodes {
		if colors[n] == white {
			visit(n)
		}
	}
	return cyclic
}
