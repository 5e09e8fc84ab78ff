package convergence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"evalgo.org/strata/convergence"
	"evalgo.org/strata/engine/enginetest"
	"evalgo.org/strata/project"
)

func TestConvergeCreatesWhenAbsent(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("nginx:latest")
	pl := convergence.New(fake)
	p := testProject()

	result, err := pl.Converge(ctx, p, p.Services[0], convergence.ConvergeOptions{
		DeriveOptions: convergence.DeriveOptions{Strategy: convergence.StrategyChanged},
	})
	require.NoError(t, err)
	require.Equal(t, convergence.ActionCreate, result.Action)
	require.Len(t, result.Containers, 1)
}

func TestConvergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("nginx:latest")
	pl := convergence.New(fake)
	p := testProject()

	opts := convergence.ConvergeOptions{DeriveOptions: convergence.DeriveOptions{Strategy: convergence.StrategyChanged}}

	first, err := pl.Converge(ctx, p, p.Services[0], opts)
	require.NoError(t, err)
	require.Equal(t, convergence.ActionCreate, first.Action)

	second, err := pl.Converge(ctx, p, p.Services[0], opts)
	require.NoError(t, err)
	require.Equal(t, convergence.ActionNoop, second.Action)
	require.ElementsMatch(t, first.Containers, second.Containers)
}

func TestScaleUpCreatesAdditionalReplicas(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("nginx:latest")
	pl := convergence.New(fake)
	p := testProject()
	svc := p.Services[0]

	_, err := pl.Converge(ctx, p, svc, convergence.ConvergeOptions{DeriveOptions: convergence.DeriveOptions{Strategy: convergence.StrategyChanged}})
	require.NoError(t, err)

	result, err := pl.Scale(ctx, p, svc, 3, convergence.ConvergeOptions{})
	require.NoError(t, err)
	require.Len(t, result.Containers, 3)
}

func TestScaleDownRemovesHighestNumbered(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("nginx:latest")
	pl := convergence.New(fake)
	p := testProject()
	svc := p.Services[0]

	_, err := pl.Scale(ctx, p, svc, 3, convergence.ConvergeOptions{})
	require.NoError(t, err)

	result, err := pl.Scale(ctx, p, svc, 1, convergence.ConvergeOptions{})
	require.NoError(t, err)
	require.Len(t, result.Containers, 1)

	remaining, err := pl.CurrentContainers(ctx, p, svc.Name)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, 1, remaining[0].Number)
}

func TestConvergeRecreatesOnHashChange(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("nginx:latest")
	pl := convergence.New(fake)
	p := testProject()
	svc := p.Services[0]

	opts := convergence.ConvergeOptions{DeriveOptions: convergence.DeriveOptions{Strategy: convergence.StrategyChanged}}
	first, err := pl.Converge(ctx, p, svc, opts)
	require.NoError(t, err)

	svc.Environment = map[string]*string{}
	changed := "1"
	svc.Environment["RELOADED"] = &changed
	p.Services[0] = svc

	second, err := pl.Converge(ctx, p, svc, opts)
	require.NoError(t, err)
	require.Equal(t, convergence.ActionRecreate, second.Action)
	require.NotEqual(t, first.Containers[0], second.Containers[0])
}

func TestConvergeResolvesNetworkModeServiceReference(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("nginx:latest")
	pl := convergence.New(fake)

	p := &project.Project{
		Name: "myapp",
		Services: []project.Service{
			{Name: "db", Scale: 1, Image: "nginx:latest"},
			{
				Name:  "web",
				Scale: 1,
				Image: "nginx:latest",
				NetworkMode: project.Mode{
					Kind:    project.ModeService,
					Service: "db",
				},
			},
		},
	}

	opts := convergence.ConvergeOptions{DeriveOptions: convergence.DeriveOptions{Strategy: convergence.StrategyChanged}}

	dbResult, err := pl.Converge(ctx, p, p.Services[0], opts)
	require.NoError(t, err)
	require.Len(t, dbResult.Containers, 1)

	webResult, err := pl.Converge(ctx, p, p.Services[1], opts)
	require.NoError(t, err)
	require.Len(t, webResult.Containers, 1)

	inspect, err := fake.ContainerInspect(ctx, webResult.Containers[0])
	require.NoError(t, err)
	require.Equal(t, "container:"+dbResult.Containers[0], string(inspect.HostConfig.NetworkMode))
}

func TestOneOffAlwaysCreatesNewContainer(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	fake.SeedImage("nginx:latest")
	pl := convergence.New(fake)
	p := testProject()

	result, err := pl.Converge(ctx, p, p.Services[0], convergence.ConvergeOptions{DeriveOptions: convergence.DeriveOptions{OneOff: true}})
	require.NoError(t, err)
	require.Equal(t, convergence.ActionOneOff, result.Action)
	require.Len(t, result.Containers, 1)
}
