package orchestrator

import (
	"context"

	dockercontainer "github.com/docker/docker/api/types/container"

	"evalgo.org/strata/executor"
	"evalgo.org/strata/graph"
	"evalgo.org/strata/project"
)

// runLifecycle fans a single engine call out to every existing container of
// the named services (§4.7), ordering the executor's dependency function by
// reverse when the verb is stop-like (stop, kill).
func (o *Orchestrator) runLifecycle(ctx context.Context, p *project.Project, services []string, reverse bool, apply func(ctx context.Context, id string) error) error {
	names := serviceNames(p, services)
	g := graph.Build(p)

	op := executor.Operation(func(ctx context.Context, node string) error {
		containers, err := o.Convergence.CurrentContainers(ctx, p, node)
		if err != nil {
			return err
		}
		for _, c := range containers {
			if err := apply(ctx, c.ID); err != nil {
				return err
			}
		}
		return nil
	})

	deps := g.DependenciesOf
	if reverse {
		deps = g.Dependents
	}
	exec := executor.New(deps)
	results := exec.Run(ctx, names, op)

	causes := map[string]error{}
	for node, r := range results {
		if r.Status != executor.StatusSucceeded {
			causes[node] = r.Err
		}
	}
	return resultsError(causes)
}

// Start starts every existing container of the named services (or all
// enabled services when services is empty) in dependency order.
func (o *Orchestrator) Start(ctx context.Context, p *project.Project, services []string) error {
	return o.runLifecycle(ctx, p, services, false, func(ctx context.Context, id string) error {
		return o.Client.ContainerStart(ctx, id, dockercontainer.StartOptions{})
	})
}

// Stop stops every existing container of the named services in reverse
// dependency order (§4.7).
func (o *Orchestrator) Stop(ctx context.Context, p *project.Project, services []string) error {
	return o.runLifecycle(ctx, p, services, true, func(ctx context.Context, id string) error {
		return o.Client.ContainerStop(ctx, id, dockercontainer.StopOptions{})
	})
}

// Restart restarts every existing container of the named services. Restart
// is not a stop followed by a separate start from the engine's perspective,
// so it carries no reverse-order requirement of its own; it follows
// dependency order like Start.
func (o *Orchestrator) Restart(ctx context.Context, p *project.Project, services []string) error {
	return o.runLifecycle(ctx, p, services, false, func(ctx context.Context, id string) error {
		return o.Client.ContainerRestart(ctx, id, dockercontainer.StopOptions{})
	})
}

// Kill sends signal (SIGKILL if empty) to every existing container of the
// named services, in reverse dependency order.
func (o *Orchestrator) Kill(ctx context.Context, p *project.Project, services []string, signal string) error {
	if signal == "" {
		signal = "SIGKILL"
	}
	return o.runLifecycle(ctx, p, services, true, func(ctx context.Context, id string) error {
		return o.Client.ContainerKill(ctx, id, signal)
	})
}

// Pause suspends every existing container of the named services.
func (o *Orchestrator) Pause(ctx context.Context, p *project.Project, services []string) error {
	return o.runLifecycle(ctx, p, services, false, func(ctx context.Context, id string) error {
		return o.Client.ContainerPause(ctx, id)
	})
}

// Unpause resumes every existing container of the named services.
func (o *Orchestrator) Unpause(ctx context.Context, p *project.Project, services []string) error {
	return o.runLifecycle(ctx, p, services, false, func(ctx context.Context, id string) error {
		return o.Client.ContainerUnpause(ctx, id)
	})
}
