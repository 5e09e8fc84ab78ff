// Package convergence implements Component D: per-service container
// inspection, convergence-plan derivation (create/recreate/start/noop/
// one_off/scale), anonymous-volume preservation, and container option
// assembly — grounded on graphium's internal/stack/deployer.go
// buildContainerConfig/buildHostConfig/buildNetworkConfig, generalized from
// "always create" to the full state machine of §4.4.
package convergence

import (
	"context"
	"sort"
	"strconv"
	"strings"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"evalgo.org/strata/engine"
	"evalgo.org/strata/identity"
	"evalgo.org/strata/project"
)

// Planner derives and executes convergence plans against a Client.
type Planner struct {
	Client engine.Client
}

func New(cli engine.Client) *Planner { return &Planner{Client: cli} }

// CurrentContainers lists the existing containers for (project, service),
// filtered by the project+service labels, with a legacy-label fallback
// query attempted if the current labels return nothing (§4.3 legacy-name
// compatibility; §9 "keep one read-side fallback, never write the legacy
// form").
func (pl *Planner) CurrentContainers(ctx context.Context, p *project.Project, serviceName string) ([]project.Container, error) {
	f := filters.NewArgs()
	f.Add("label", identity.LabelProject+"="+p.Name)
	f.Add("label", identity.LabelService+"="+serviceName)

	summaries, err := pl.Client.ContainerList(ctx, dockercontainer.ListOptions{All: true, Filters: f})
	if err != nil {
		return nil, err
	}

	if len(summaries) == 0 {
		summaries, err = pl.legacyContainerList(ctx, p.Name, serviceName)
		if err != nil {
			return nil, err
		}
	}

	declaredTargets := map[string]struct{}{}
	if svc, ok := p.ServiceByName(serviceName); ok {
		for _, v := range svc.Volumes {
			if !v.Anonymous {
				declaredTargets[v.Target] = struct{}{}
			}
		}
	}

	out := make([]project.Container, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, decodeContainerSummary(s, declaredTargets))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (pl *Planner) legacyContainerList(ctx context.Context, projectName, serviceName string) ([]dockercontainer.Summary, error) {
	f := filters.NewArgs()
	f.Add("name", legacyPrefix(projectName)+"_"+serviceName+"_")
	return pl.Client.ContainerList(ctx, dockercontainer.ListOptions{All: true, Filters: f})
}

func legacyPrefix(projectName string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(projectName)
}

func decodeContainerSummary(s dockercontainer.Summary, declaredTargets map[string]struct{}) project.Container {
	c := project.Container{
		ID:     s.ID,
		Image:  s.Image,
		Labels: s.Labels,
		State:  decodeState(s.State),
	}
	if len(s.Names) > 0 {
		c.Name = strings.TrimPrefix(s.Names[0], "/")
	}
	c.Project = s.Labels[identity.LabelProject]
	c.Service = s.Labels[identity.LabelService]
	c.ConfigHash = s.Labels[identity.LabelConfigHash]
	c.OneOff = s.Labels[identity.LabelOneOff] == "True"
	if n, err := strconv.Atoi(s.Labels[identity.LabelContainerNumber]); err == nil && !c.OneOff {
		c.Number = n
	}

	for _, m := range s.Mounts {
		if string(m.Type) != "volume" || m.Name == "" {
			continue
		}
		if _, declared := declaredTargets[m.Destination]; declared {
			continue
		}
		if c.AnonymousVolumes == nil {
			c.AnonymousVolumes = map[string]string{}
		}
		c.AnonymousVolumes[m.Destination] = m.Name
	}

	return c
}

func decodeState(s string) project.ContainerState {
	switch s {
	case "running":
		return project.StateRunning
	case "created":
		return project.StateCreated
	case "exited":
		return project.StateExited
	case "paused":
		return project.StatePaused
	case "restarting":
		return project.StateRestarting
	case "removing":
		return project.StateRemoving
	case "dead":
		return project.StateDead
	default:
		return project.StateUnknown
	}
}

// NextNumber returns max(existing numbers)+1, starting at 1 (§4.2).
func NextNumber(existing []project.Container) int {
	max := 0
	for _, c := range existing {
		if !c.OneOff && c.Number > max {
			max = c.Number
		}
	}
	return max + 1
}
