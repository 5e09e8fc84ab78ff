package convergence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"evalgo.org/strata/convergence"
	"evalgo.org/strata/engine/enginetest"
	"evalgo.org/strata/errcat"
	"evalgo.org/strata/project"
)

func TestResolveImageUsesLocalWhenPresent(t *testing.T) {
	fake := enginetest.New()
	fake.SeedImage("nginx:latest")
	pl := convergence.New(fake)

	ref, err := pl.ResolveImage(context.Background(), project.Service{Name: "web", Image: "nginx:latest"}, convergence.BuildActionNone)
	require.NoError(t, err)
	require.Equal(t, "nginx:latest", ref)
}

func TestResolveImagePullsWhenAbsentAndNoBuild(t *testing.T) {
	fake := enginetest.New()
	pl := convergence.New(fake)

	ref, err := pl.ResolveImage(context.Background(), project.Service{Name: "web", Image: "nginx:latest"}, convergence.BuildActionNone)
	require.NoError(t, err)
	require.Equal(t, "nginx:latest", ref)
}

func TestResolveImageSkipRaisesNeedsBuild(t *testing.T) {
	fake := enginetest.New()
	pl := convergence.New(fake)

	svc := project.Service{Name: "web", Build: &project.BuildSpec{Context: "."}}
	_, err := pl.ResolveImage(context.Background(), svc, convergence.BuildActionSkip)
	require.Error(t, err)
	var needsBuild *errcat.NeedsBuildError
	require.ErrorAs(t, err, &needsBuild)
}

func TestResolveImageForceAlwaysBuilds(t *testing.T) {
	fake := enginetest.New()
	pl := convergence.New(fake)

	svc := project.Service{Name: "web", Image: "myapp-web:latest", Build: &project.BuildSpec{Context: "."}}
	fake.SeedImage("myapp-web:latest")

	ref, err := pl.ResolveImage(context.Background(), svc, convergence.BuildActionForce)
	require.NoError(t, err)
	require.Equal(t, "myapp-web:latest", ref)
}
