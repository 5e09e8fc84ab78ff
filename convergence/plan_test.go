package convergence_test

import (
	"context"
	"testing"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/require"

	"evalgo.org/strata/convergence"
	"evalgo.org/strata/engine/enginetest"
	"evalgo.org/strata/identity"
	"evalgo.org/strata/project"
)

func testProject() *project.Project {
	return &project.Project{
		Name: "myapp",
		Services: []project.Service{
			{Name: "web", Scale: 1, Image: "nginx:latest"},
		},
	}
}

func TestDeriveCreateWhenAbsent(t *testing.T) {
	fake := enginetest.New()
	pl := convergence.New(fake)
	p := testProject()

	plan, err := pl.Derive(context.Background(), p, p.Services[0], convergence.DeriveOptions{Strategy: convergence.StrategyChanged})
	require.NoError(t, err)
	require.Equal(t, convergence.ActionCreate, plan.Action)
	require.Equal(t, 1, plan.TargetSize)
}

func TestDeriveExplicitZeroScaleIsNotClampedToOne(t *testing.T) {
	fake := enginetest.New()
	pl := convergence.New(fake)
	p := testProject()
	svc := p.Services[0]
	svc.Scale = 0

	plan, err := pl.Derive(context.Background(), p, svc, convergence.DeriveOptions{Strategy: convergence.StrategyChanged})
	require.NoError(t, err)
	require.Equal(t, convergence.ActionCreate, plan.Action)
	require.Equal(t, 0, plan.TargetSize)
}

func TestDeriveOneOffIgnoresExisting(t *testing.T) {
	fake := enginetest.New()
	pl := convergence.New(fake)
	p := testProject()

	plan, err := pl.Derive(context.Background(), p, p.Services[0], convergence.DeriveOptions{OneOff: true})
	require.NoError(t, err)
	require.Equal(t, convergence.ActionOneOff, plan.Action)
}

func TestDeriveNoopWhenUnchangedAndRunning(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	pl := convergence.New(fake)
	p := testProject()
	svc := p.Services[0]

	hash, err := identity.ConfigHash(svc)
	require.NoError(t, err)

	name := identity.ContainerName(p.Name, svc.Name, 1)
	labels := identity.ContainerLabels(p, svc, 1, false, hash)
	cfg := &dockercontainer.Config{Image: svc.Image, Labels: labels}

	resp, err := fake.ContainerCreate(ctx, cfg, &dockercontainer.HostConfig{}, nil, nil, name)
	require.NoError(t, err)
	require.NoError(t, fake.ContainerStart(ctx, resp.ID, dockercontainer.StartOptions{}))

	plan, err := pl.Derive(ctx, p, svc, convergence.DeriveOptions{Strategy: convergence.StrategyChanged})
	require.NoError(t, err)
	require.Equal(t, convergence.ActionNoop, plan.Action)
	require.Len(t, plan.Existing, 1)
}

func TestDeriveRecreateOnHashMismatch(t *testing.T) {
	ctx := context.Background()
	fake := enginetest.New()
	pl := convergence.New(fake)
	p := testProject()
	svc := p.Services[0]

	name := identity.ContainerName(p.Name, svc.Name, 1)
	labels := identity.ContainerLabels(p, svc, 1, false, "stale-hash")
	cfg := &dockercontainer.Config{Image: svc.Image, Labels: labels}

	resp, err := fake.ContainerCreate(ctx, cfg, &dockercontainer.HostConfig{}, nil, nil, name)
	require.NoError(t, err)
	require.NoError(t, fake.ContainerStart(ctx, resp.ID, dockercontainer.StartOptions{}))

	plan, err := pl.Derive(ctx, p, svc, convergence.DeriveOptions{Strategy: convergence.StrategyChanged})
	require.NoError(t, err)
	require.Equal(t, convergence.ActionRecreate, plan.Action)
	require.Len(t, plan.Diverged, 1)
}
