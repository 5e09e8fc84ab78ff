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

func testProject() *project.Project {
	return &project.Project{
		Name: "myapp",
		Services: []project.Service{
			{Name: "db", Scale: 1, Image: "postgres:16"},
			{Name: "web", Scale: 1, Image: "nginx:latest", DependsOn: map[string]project.DependsOn{
				"db": {Condition: project.ConditionStarted},
			}},
		},
	}
}

func TestUpConvergesEveryEnabledService(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("postgres:16")
	fake.SeedImage("nginx:latest")
	o := orchestrator.New(fake)
	p := testProject()

	result, err := o.Up(ctx, p, orchestrator.UpOptions{Strategy: convergence.StrategyChanged})
	require.NoError(t, err)
	require.Contains(t, result.Converged, "db")
	require.Contains(t, result.Converged, "web")
	require.Equal(t, convergence.ActionCreate, result.Converged["db"].Action)
	require.Equal(t, convergence.ActionCreate, result.Converged["web"].Action)
}

func TestUpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("postgres:16")
	fake.SeedImage("nginx:latest")
	o := orchestrator.New(fake)
	p := testProject()

	opts := orchestrator.UpOptions{Strategy: convergence.StrategyChanged}
	_, err := o.Up(ctx, p, opts)
	require.NoError(t, err)

	result, err := o.Up(ctx, p, opts)
	require.NoError(t, err)
	require.Equal(t, convergence.ActionNoop, result.Converged["db"].Action)
	require.Equal(t, convergence.ActionNoop, result.Converged["web"].Action)
}

func TestDownStopsAndRemovesEveryContainer(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("postgres:16")
	fake.SeedImage("nginx:latest")
	o := orchestrator.New(fake)
	p := testProject()

	_, err := o.Up(ctx, p, orchestrator.UpOptions{Strategy: convergence.StrategyChanged})
	require.NoError(t, err)

	require.NoError(t, o.Down(ctx, p, orchestrator.DownOptions{}))

	for _, svc := range p.Services {
		remaining, err := o.Convergence.CurrentContainers(ctx, p, svc.Name)
		require.NoError(t, err)
		require.Empty(t, remaining)
	}
}

func TestResolveProfilesAutoEnablesDeclaredProfiles(t *testing.T) {
	p := &project.Project{
		Services: []project.Service{
			{Name: "web", Profiles: []string{"frontend"}},
			{Name: "worker", Profiles: []string{"backend"}},
		},
	}

	require.NoError(t, orchestrator.ResolveProfiles(p, []string{"web"}))
	require.True(t, p.Enabled(p.Services[0]))
	require.False(t, p.Enabled(p.Services[1]))
}

func TestResolveProfilesFailsWhenDependencyProfileNotEnabled(t *testing.T) {
	p := &project.Project{
		Services: []project.Service{
			{Name: "web", Profiles: []string{"frontend"}, DependsOn: map[string]project.DependsOn{
				"worker": {Condition: project.ConditionStarted},
			}},
			{Name: "worker", Profiles: []string{"backend"}},
		},
	}

	err := orchestrator.ResolveProfiles(p, []string{"web"})
	require.Error(t, err)
}

func TestStopStopsEveryContainer(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("postgres:16")
	fake.SeedImage("nginx:latest")
	o := orchestrator.New(fake)
	p := testProject()

	_, err := o.Up(ctx, p, orchestrator.UpOptions{Strategy: convergence.StrategyChanged})
	require.NoError(t, err)

	require.NoError(t, o.Stop(ctx, p, nil))

	for _, svc := range p.Services {
		containers, err := o.Convergence.CurrentContainers(ctx, p, svc.Name)
		require.NoError(t, err)
		for _, c := range containers {
			require.False(t, c.Running())
		}
	}
}
