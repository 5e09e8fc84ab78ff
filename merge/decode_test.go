package merge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/strata/errcat"
	"evalgo.org/strata/merge"
)

func TestDecodeServiceAllowsIdenticalDuplicateMountTargets(t *testing.T) {
	raw := map[string]any{
		"volumes": []any{
			map[string]any{"type": "volume", "source": "data", "target": "/data"},
			map[string]any{"type": "volume", "source": "data", "target": "/data"},
		},
	}
	svc, err := merge.DecodeService("docker-compose.yml", "web", raw)
	require.NoError(t, err)
	require.Len(t, svc.Volumes, 1)
}

func TestDecodeServiceRejectsConflictingMountTargets(t *testing.T) {
	raw := map[string]any{
		"volumes": []any{
			map[string]any{"type": "volume", "source": "data", "target": "/data"},
			map[string]any{"type": "volume", "source": "other", "target": "/data"},
		},
	}
	_, err := merge.DecodeService("docker-compose.yml", "web", raw)
	require.Error(t, err)

	var cfgErr *errcat.ConfigurationError
	require.True(t, errcat.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "duplicate mount target")
}
