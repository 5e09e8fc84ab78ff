package orchestrator

import (
	"context"
	"log"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	dockerimage "github.com/docker/docker/api/types/image"

	"evalgo.org/strata/executor"
	"evalgo.org/strata/graph"
	"evalgo.org/strata/identity"
	"evalgo.org/strata/project"
)

// DownOptions parameterizes the down verb.
type DownOptions struct {
	RemoveOrphans bool
	RemoveVolumes bool
	RemoveImages  bool
}

// Down stops all containers (including one-offs) in reverse dependency
// order, optionally removes orphans, removes the containers, removes
// networks, and optionally removes volumes and images (§4.7).
func (o *Orchestrator) Down(ctx context.Context, p *project.Project, opts DownOptions) error {
	names := serviceNames(p, nil)
	g := graph.Build(p)

	causes := map[string]error{}

	op := executor.Operation(func(ctx context.Context, node string) error {
		containers, err := o.Convergence.CurrentContainers(ctx, p, node)
		if err != nil {
			return err
		}
		for _, c := range containers {
			if err := o.Client.ContainerStop(ctx, c.ID, dockercontainer.StopOptions{}); err != nil {
				return err
			}
			if err := o.Client.ContainerRemove(ctx, c.ID, dockercontainer.RemoveOptions{}); err != nil {
				return err
			}
		}
		return nil
	})

	// Dependents-first ordering: a service only stops once every service
	// that depends on it has already stopped (§4.7 "reverse dependency
	// order"), so the executor's dependency function for this verb is the
	// forward graph's Dependents view.
	exec := executor.New(g.Dependents)
	results := exec.Run(ctx, names, op)
	for node, r := range results {
		if r.Status != executor.StatusSucceeded {
			causes[node] = r.Err
		}
	}

	if opts.RemoveOrphans {
		if err := o.removeOrphans(ctx, p); err != nil {
			causes["__orphans__"] = err
		}
	}

	if err := o.Resources.RemoveNetworks(ctx, p); err != nil {
		causes["__networks__"] = err
	}
	if opts.RemoveVolumes {
		if err := o.Resources.RemoveVolumes(ctx, p); err != nil {
			causes["__volumes__"] = err
		}
	}
	if opts.RemoveImages {
		for _, name := range names {
			svc, ok := p.ServiceByName(name)
			if ok && svc.Image != "" {
				if err := o.Client.ImageRemove(ctx, svc.Image, dockerimage.RemoveOptions{}); err != nil {
					log.Printf("down: removing image %q for service %q: %v", svc.Image, name, err)
				}
			}
		}
	}

	return resultsError(causes)
}

// removeOrphans finds and removes containers labeled with this project but
// whose service no longer exists in p (§4.7).
func (o *Orchestrator) removeOrphans(ctx context.Context, p *project.Project) error {
	f := filters.NewArgs()
	f.Add("label", identity.LabelProject+"="+p.Name)
	all, err := o.Client.ContainerList(ctx, dockercontainer.ListOptions{All: true, Filters: f})
	if err != nil {
		return err
	}
	for _, c := range all {
		svcName := c.Labels[identity.LabelService]
		if _, ok := p.ServiceByName(svcName); ok {
			continue
		}
		if err := o.Client.ContainerStop(ctx, c.ID, dockercontainer.StopOptions{}); err != nil {
			return err
		}
		if err := o.Client.ContainerRemove(ctx, c.ID, dockercontainer.RemoveOptions{}); err != nil {
			return err
		}
	}
	return nil
}
