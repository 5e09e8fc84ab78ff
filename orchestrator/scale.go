package orchestrator

import (
	"context"

	"evalgo.org/strata/convergence"
	"evalgo.org/strata/project"
)

// Scale converges serviceName to desiredScale replicas, bypassing the
// hash-divergence check convergence's noop/recreate decision otherwise
// applies (§6.1 `scale` verb).
func (o *Orchestrator) Scale(ctx context.Context, p *project.Project, serviceName string, desiredScale int) (convergence.ConvergeResult, error) {
	svc, err := serviceOf(p, serviceName)
	if err != nil {
		return convergence.ConvergeResult{}, err
	}
	return o.Convergence.Scale(ctx, p, svc, desiredScale, convergence.ConvergeOptions{})
}
