package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"evalgo.org/strata/convergence"
	"evalgo.org/strata/engine/enginetest"
	"evalgo.org/strata/orchestrator"
	"evalgo.org/strata/project"
)

func chainedProject() *project.Project {
	return &project.Project{
		Name: "myapp",
		Services: []project.Service{
			{Name: "db", Scale: 1, Image: "postgres:16"},
			{Name: "app", Scale: 1, Image: "myapp:latest", DependsOn: map[string]project.DependsOn{
				"db": {Condition: project.ConditionStarted},
			}},
			{Name: "web", Scale: 1, Image: "nginx:latest", DependsOn: map[string]project.DependsOn{
				"app": {Condition: project.ConditionStarted},
			}},
		},
	}
}

func TestRunStartsTransitiveDependencyChain(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("postgres:16")
	fake.SeedImage("myapp:latest")
	fake.SeedImage("nginx:latest")
	o := orchestrator.New(fake)
	p := chainedProject()

	result, err := o.Run(ctx, p, "web", orchestrator.RunOptions{Strategy: convergence.StrategyChanged})
	require.NoError(t, err)
	require.Equal(t, convergence.ActionOneOff, result.Action)

	dbContainers, err := o.Convergence.CurrentContainers(ctx, p, "db")
	require.NoError(t, err)
	require.Len(t, dbContainers, 1)

	appContainers, err := o.Convergence.CurrentContainers(ctx, p, "app")
	require.NoError(t, err)
	require.Len(t, appContainers, 1)
}
