package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"evalgo.org/strata/convergence"
	"evalgo.org/strata/engine/enginetest"
	"evalgo.org/strata/orchestrator"
	"evalgo.org/strata/project"
)

func buildableProject() *project.Project {
	return &project.Project{
		Name: "myapp",
		Services: []project.Service{
			{Name: "app", Scale: 1, Build: &project.BuildSpec{Dockerfile: "Dockerfile"}},
			{Name: "cache", Scale: 1, Image: "redis:latest"},
		},
	}
}

func TestBuildOnlyBuildsServicesWithBuildBlock(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("redis:latest")
	o := orchestrator.New(fake)
	p := buildableProject()

	require.NoError(t, o.Build(ctx, p, orchestrator.BuildOptions{}))
}

func TestPullServicesSharingNormalizedReference(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	o := orchestrator.New(fake)
	p := &project.Project{
		Name: "myapp",
		Services: []project.Service{
			{Name: "a", Image: "redis"},
			{Name: "b", Image: "redis:latest"},
		},
	}

	require.NoError(t, o.Pull(ctx, p, orchestrator.PullPushOptions{}))
}

func TestRunStartsDependenciesThenCreatesOneOff(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("postgres:16")
	fake.SeedImage("nginx:latest")
	o := orchestrator.New(fake)
	p := testProject()

	result, err := o.Run(ctx, p, "web", orchestrator.RunOptions{Strategy: convergence.StrategyChanged, Command: []string{"echo", "hi"}})
	require.NoError(t, err)
	require.Equal(t, convergence.ActionOneOff, result.Action)
	require.Len(t, result.Containers, 1)

	dbContainers, err := o.Convergence.CurrentContainers(ctx, p, "db")
	require.NoError(t, err)
	require.Len(t, dbContainers, 1)
}

func TestPsListsContainersAcrossServices(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("postgres:16")
	fake.SeedImage("nginx:latest")
	o := orchestrator.New(fake)
	p := testProject()

	_, err := o.Up(ctx, p, orchestrator.UpOptions{Strategy: convergence.StrategyChanged})
	require.NoError(t, err)

	entries, err := o.Ps(ctx, p, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.NotEmpty(t, e.Uptime)
	}
}

func TestScaleConvergesToDesiredCount(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("postgres:16")
	fake.SeedImage("nginx:latest")
	o := orchestrator.New(fake)
	p := testProject()

	_, err := o.Up(ctx, p, orchestrator.UpOptions{Strategy: convergence.StrategyChanged})
	require.NoError(t, err)

	result, err := o.Scale(ctx, p, "web", 2)
	require.NoError(t, err)
	require.Len(t, result.Containers, 2)
}

func TestEventsStopsOnContextCancel(t *testing.T) {
	fake := enginetest.New()
	o := orchestrator.New(fake)
	p := &project.Project{Name: "myapp"}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	events, errc := o.Events(ctx, p)
	for range events {
	}
	select {
	case err := <-errc:
		require.NoError(t, err)
	default:
	}
}
