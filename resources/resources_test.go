package resources_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/strata/engine/enginetest"
	"evalgo.org/strata/errcat"
	"evalgo.org/strata/project"
	"evalgo.org/strata/resources"
)

func TestEnsureNetworkCreatesWhenAbsent(t *testing.T) {
	fake := enginetest.New()
	mgr := resources.New(fake)

	p := &project.Project{
		Name: "myapp",
		Networks: map[string]project.Network{
			"default": {Name: "default"},
		},
	}

	err := mgr.EnsureNetwork(context.Background(), p, "default")
	require.NoError(t, err)

	// Calling again should find it and not error (idempotent ensure).
	err = mgr.EnsureNetwork(context.Background(), p, "default")
	require.NoError(t, err)
}

func TestEnsureNetworkExternalMissingFails(t *testing.T) {
	fake := enginetest.New()
	mgr := resources.New(fake)

	p := &project.Project{
		Name: "myapp",
		Networks: map[string]project.Network{
			"ext": {Name: "ext", External: true},
		},
	}

	err := mgr.EnsureNetwork(context.Background(), p, "ext")
	require.Error(t, err)

	var cfgErr *errcat.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEnsureVolumeCreatesWhenAbsent(t *testing.T) {
	fake := enginetest.New()
	mgr := resources.New(fake)

	p := &project.Project{
		Name: "myapp",
		Volumes: map[string]project.Volume{
			"data": {Name: "data"},
		},
	}

	err := mgr.EnsureVolume(context.Background(), p, "data")
	require.NoError(t, err)
}

func TestRemoveVolumesSkipsExternal(t *testing.T) {
	fake := enginetest.New()
	mgr := resources.New(fake)

	p := &project.Project{
		Name: "myapp",
		Volumes: map[string]project.Volume{
			"ext-data": {Name: "ext-data", External: true},
		},
	}

	err := mgr.RemoveVolumes(context.Background(), p)
	require.NoError(t, err)
}
