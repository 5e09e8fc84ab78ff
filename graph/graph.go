// Package graph implements Component E: the service dependency DAG, its
// topological sort, cycle detection, transitive closure under profile
// filtering, and the inverse-edge view used for stop ordering (§4.3).
package graph

import (
	"fmt"
	"sort"

	"evalgo.org/strata/errcat"
	"evalgo.org/strata/project"
)

// Graph is an adjacency-list DAG over service names. Nodes are represented
// by name rather than index into the Project's slice, but edge iteration
// order is fixed (depends_on names sorted by name, then links, volumes_from
// and mode references in declaration order) to keep sorts deterministic — the
// "Services by index into a flat list, no back-pointers" re-architecture
// of §9 is honored one level up, in project.Project itself.
type Graph struct {
	order []string
	edges map[string][]string // name -> names it depends on, in dependenciesOf order
}

// Build constructs the dependency graph for the enabled services of p:
// an edge from S to T exists if S.links, S.volumes_from, S.network_mode,
// S.pid_mode, S.ipc_mode, or S.depends_on names T (§4.3).
func Build(p *project.Project) *Graph {
	enabled := p.EnabledServices()
	g := &Graph{
		order: make([]string, 0, len(enabled)),
		edges: make(map[string][]string, len(enabled)),
	}

	for _, svc := range enabled {
		g.order = append(g.order, svc.Name)
	}

	for _, svc := range enabled {
		g.edges[svc.Name] = dependenciesOf(svc)
	}

	return g
}

func dependenciesOf(svc project.Service) []string {
	seen := map[string]struct{}{}
	var deps []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		deps = append(deps, name)
	}

	dependsOn := make([]string, 0, len(svc.DependsOn))
	for name := range svc.DependsOn {
		dependsOn = append(dependsOn, name)
	}
	sort.Strings(dependsOn)
	for _, name := range dependsOn {
		add(name)
	}
	for _, l := range svc.Links {
		add(l.Service)
	}
	for _, vf := range svc.VolumesFrom {
		if !vf.SourceIsContainer {
			add(vf.Source)
		}
	}
	if svc.NetworkMode.Kind == project.ModeService {
		add(svc.NetworkMode.Service)
	}
	if svc.PidMode.Kind == project.ModeService {
		add(svc.PidMode.Service)
	}
	if svc.IpcMode.Kind == project.ModeService {
		add(svc.IpcMode.Service)
	}

	return deps
}

// Nodes returns every node name in declaration order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// DependenciesOf returns the names node directly depends on (depends_on
// names sorted by name, then the other references in declaration order),
// or nil if node is unknown.
func (g *Graph) DependenciesOf(node string) []string {
	return g.edges[node]
}

// Dependents returns every node that directly depends on node.
func (g *Graph) Dependents(node string) []string {
	var out []string
	for _, n := range g.order {
		for _, d := range g.edges[n] {
			if d == node {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

type color int

const (
	white color = iota
	gray
	black
)

// TopoSort returns the nodes in an order such that every dependency
// precedes its dependents, ties broken by original declaration order.
// Returns a *errcat.CircularReference if a cycle exists (§8 property 5).
func (g *Graph) TopoSort() ([]string, error) {
	colors := make(map[string]color, len(g.order))
	result := make([]string, 0, len(g.order))
	var stack []string

	var visit func(node string) error
	visit = func(node string) error {
		switch colors[node] {
		case black:
			return nil
		case gray:
			trail := append(append([]string{}, stack...), node)
			return &errcat.CircularReference{Kind: "depends_on", Trail: trail}
		}

		colors[node] = gray
		stack = append(stack, node)

		for _, dep := range g.edges[node] {
			if dep == node {
				return &errcat.CircularReference{Kind: "depends_on", Trail: []string{node, node}}
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		colors[node] = black
		result = append(result, node)
		return nil
	}

	for _, node := range g.order {
		if colors[node] == white {
			if err := visit(node); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

// InverseStopOrder returns nodes ordered so that leaves (nodes with no
// dependents) come first — the reverse of TopoSort's start order, used to
// stop dependents before their dependencies (§4.3 "Inverse edges").
func (g *Graph) InverseStopOrder() ([]string, error) {
	forward, err := g.TopoSort()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(forward))
	for i, n := range forward {
		out[len(forward)-1-i] = n
	}
	return out, nil
}

// TransitiveClosure computes the set of services reachable from seeds
// (inclusive), following dependency edges. If a reached dependency is not
// enabled by the active profile set, it raises a ConfigurationError per
// §4.3's "dependency not enabled by active profiles" rule.
func TransitiveClosure(p *project.Project, seeds []string) ([]string, error) {
	enabledNames := map[string]struct{}{}
	for _, s := range p.EnabledServices() {
		enabledNames[s.Name] = struct{}{}
	}

	g := Build(p)

	visited := map[string]struct{}{}
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		if _, ok := visited[name]; ok {
			return nil
		}
		if _, ok := enabledNames[name]; !ok {
			return &errcat.ConfigurationError{
				Path: fmt.Sprintf("services.%s", name),
				Cause: fmt.Errorf("dependency %q is not enabled by active profiles", name),
			}
		}
		visited[name] = struct{}{}
		order = append(order, name)
		for _, dep := range g.DependenciesOf(name) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}

	for _, seed := range seeds {
		if err := visit(seed); err != nil {
			return nil, err
		}
	}

	return order, nil
}
