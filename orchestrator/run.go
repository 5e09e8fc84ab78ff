package orchestrator

import (
	"context"

	"evalgo.org/strata/convergence"
	"evalgo.org/strata/graph"
	"evalgo.org/strata/project"
)

// RunOptions parameterizes the run verb.
type RunOptions struct {
	Strategy    convergence.Strategy
	BuildAction convergence.BuildAction
	Command     []string
	Entrypoint  []string
}

// Run starts svc's declared dependencies (if any are not already up) and
// then creates a single one-off container for svc, labeled com.docker.
// compose.oneoff=True so it never participates in scale/noop decisions for
// the service's regular replicas (§4.2, §4.7).
func (o *Orchestrator) Run(ctx context.Context, p *project.Project, serviceName string, opts RunOptions) (convergence.ConvergeResult, error) {
	svc, err := serviceOf(p, serviceName)
	if err != nil {
		return convergence.ConvergeResult{}, err
	}

	closure, err := graph.TransitiveClosure(p, []string{serviceName})
	if err != nil {
		return convergence.ConvergeResult{}, err
	}
	deps := make([]string, 0, len(closure))
	for _, name := range closure {
		if name != serviceName {
			deps = append(deps, name)
		}
	}
	if len(deps) > 0 {
		if _, err := o.Up(ctx, p, UpOptions{Services: deps, Strategy: opts.Strategy, BuildAction: opts.BuildAction}); err != nil {
			return convergence.ConvergeResult{}, err
		}
	}

	if len(opts.Command) > 0 {
		svc.Command = opts.Command
	}
	if len(opts.Entrypoint) > 0 {
		svc.Entrypoint = opts.Entrypoint
	}

	return o.Convergence.Converge(ctx, p, svc, convergence.ConvergeOptions{
		DeriveOptions: convergence.DeriveOptions{OneOff: true},
		BuildAction:   opts.BuildAction,
	})
}
