package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/strata/errcat"
	"evalgo.org/strata/graph"
	"evalgo.org/strata/project"
)

func serviceNames(order []project.Service) []string {
	names := make([]string, len(order))
	for i, s := range order {
		names[i] = s.Name
	}
	return names
}

func twoServiceProject() *project.Project {
	return &project.Project{
		Services: []project.Service{
			{Name: "db", Image: "busybox"},
			{Name: "web", Image: "busybox", DependsOn: map[string]project.DependsOn{
				"db": {Condition: project.ConditionStarted},
			}},
		},
	}
}

func TestTopoSortRespectsDependency(t *testing.T) {
	p := twoServiceProject()
	g := graph.Build(p)

	order, err := g.TopoSort()
	require.NoError(t, err)

	dbIdx := indexOf(order, "db")
	webIdx := indexOf(order, "web")
	assert.True(t, dbIdx < webIdx, "db must precede web")
}

func TestTopoSortDetectsCycle(t *testing.T) {
	p := &project.Project{
		Services: []project.Service{
			{Name: "a", DependsOn: map[string]project.DependsOn{"b": {}}},
			{Name: "b", DependsOn: map[string]project.DependsOn{"c": {}}},
			{Name: "c", DependsOn: map[string]project.DependsOn{"a": {}}},
		},
	}
	g := graph.Build(p)

	_, err := g.TopoSort()
	require.Error(t, err)

	var cyc *errcat.CircularReference
	require.ErrorAs(t, err, &cyc)
	assert.GreaterOrEqual(t, len(cyc.Trail), 2)
}

func TestInverseStopOrderReversesTopoSort(t *testing.T) {
	p := twoServiceProject()
	g := graph.Build(p)

	forward, err := g.TopoSort()
	require.NoError(t, err)
	reverse, err := g.InverseStopOrder()
	require.NoError(t, err)

	require.Equal(t, len(forward), len(reverse))
	for i := range forward {
		assert.Equal(t, forward[i], reverse[len(reverse)-1-i])
	}
}

func TestTransitiveClosureDependencyNotEnabled(t *testing.T) {
	p := &project.Project{
		ActiveProfiles: map[string]struct{}{},
		Services: []project.Service{
			{Name: "web", Profiles: nil, DependsOn: map[string]project.DependsOn{"db": {}}},
			{Name: "db", Profiles: []string{"backend"}},
		},
	}

	_, err := graph.TransitiveClosure(p, []string{"web"})
	require.Error(t, err)
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
