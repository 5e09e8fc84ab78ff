// Package orchestrator implements Component G: the verb layer (up, down,
// start/stop/restart/kill/pause/unpause, build, pull/push, run, events)
// composed from the graph, convergence, resources, and executor packages —
// grounded on graphium's internal/orchestration/orchestrator.go phase
// sequencing (ensure resources → place/derive → execute → update state),
// generalized from a single "deploy" flow to the full verb set of §4.7.
package orchestrator

import (
	"evalgo.org/strata/convergence"
	"evalgo.org/strata/engine"
	"evalgo.org/strata/errcat"
	"evalgo.org/strata/graph"
	"evalgo.org/strata/project"
	"evalgo.org/strata/resources"
)

// Orchestrator composes the core's components into the verb surface a CLI
// or API front-end drives.
type Orchestrator struct {
	Client      engine.Client
	Resources   *resources.Manager
	Convergence *convergence.Planner
}

// New builds an Orchestrator backed by cli.
func New(cli engine.Client) *Orchestrator {
	return &Orchestrator{
		Client:      cli,
		Resources:   resources.New(cli),
		Convergence: convergence.New(cli),
	}
}

// ResolveProfiles implements §4.7's profile-enable rule: naming services
// explicitly auto-enables their declared profiles; transitive dependencies
// must already be enabled by the resulting set, or ResolveProfiles fails
// with a descriptive ConfigurationError.
func ResolveProfiles(p *project.Project, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if p.ActiveProfiles == nil {
		p.ActiveProfiles = map[string]struct{}{}
	}
	for _, name := range names {
		svc, ok := p.ServiceByName(name)
		if !ok {
			return &errcat.NoSuchService{Name: name}
		}
		for _, prof := range svc.Profiles {
			p.ActiveProfiles[prof] = struct{}{}
		}
	}

	for _, name := range names {
		if _, err := graph.TransitiveClosure(p, []string{name}); err != nil {
			return err
		}
	}
	return nil
}

// serviceNames returns the enabled service names of p, or a filtered subset
// when only is non-empty (still restricted to enabled services).
func serviceNames(p *project.Project, only []string) []string {
	if len(only) == 0 {
		out := make([]string, 0, len(p.Services))
		for _, s := range p.EnabledServices() {
			out = append(out, s.Name)
		}
		return out
	}
	wanted := map[string]struct{}{}
	for _, n := range only {
		wanted[n] = struct{}{}
	}
	out := make([]string, 0, len(only))
	for _, s := range p.EnabledServices() {
		if _, ok := wanted[s.Name]; ok {
			out = append(out, s.Name)
		}
	}
	return out
}

// resultsError converts a per-node cause map into a single aggregate
// ProjectError, or nil when there were no failures (§7 propagation policy).
func resultsError(causes map[string]error) error {
	return errcat.NewProjectError(causes)
}

func serviceOf(p *project.Project, name string) (project.Service, error) {
	svc, ok := p.ServiceByName(name)
	if !ok {
		return project.Service{}, &errcat.NoSuchService{Name: name}
	}
	return svc, nil
}
