package orchestrator

import (
	"context"
	"sync"

	"evalgo.org/strata/convergence"
	"evalgo.org/strata/executor"
	"evalgo.org/strata/graph"
	"evalgo.org/strata/project"
)

// UpOptions parameterizes the up verb.
type UpOptions struct {
	Services    []string // empty means every enabled service
	Strategy    convergence.Strategy
	BuildAction convergence.BuildAction
}

// UpResult reports the per-service convergence outcome.
type UpResult struct {
	Converged map[string]convergence.ConvergeResult
}

// Up ensures declared networks and volumes, derives convergence plans for
// the target services, and executes them through the parallel executor
// following the service dependency DAG (§4.7): ensure-networks and
// ensure-volumes complete before any service work, and for any edge A→B,
// A's convergence completes before B's begins.
func (o *Orchestrator) Up(ctx context.Context, p *project.Project, opts UpOptions) (UpResult, error) {
	if err := o.Resources.EnsureNetworks(ctx, p); err != nil {
		return UpResult{}, err
	}
	if err := o.Resources.EnsureVolumes(ctx, p); err != nil {
		return UpResult{}, err
	}

	names := serviceNames(p, opts.Services)
	g := graph.Build(p)

	converged := make(map[string]convergence.ConvergeResult, len(names))
	var mu sync.Mutex

	op := executor.Operation(func(ctx context.Context, node string) error {
		svc, err := serviceOf(p, node)
		if err != nil {
			return err
		}
		result, err := o.Convergence.Converge(ctx, p, svc, convergence.ConvergeOptions{
			DeriveOptions: convergence.DeriveOptions{Strategy: opts.Strategy},
			BuildAction:   opts.BuildAction,
		})
		if err != nil {
			return err
		}
		mu.Lock()
		converged[node] = result
		mu.Unlock()
		return nil
	})

	exec := executor.New(g.DependenciesOf)
	results := exec.Run(ctx, names, op)

	causes := map[string]error{}
	for node, r := range results {
		if r.Status != executor.StatusSucceeded {
			causes[node] = r.Err
		}
	}
	if err := resultsError(causes); err != nil {
		return UpResult{Converged: converged}, err
	}
	return UpResult{Converged: converged}, nil
}
