package merge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/strata/merge"
)

func TestMergeServiceLayersIdempotent(t *testing.T) {
	a := map[string]any{"image": "nginx:1.25", "dns": []any{"8.8.8.8"}}

	once, err := merge.MergeServiceLayers("web", []map[string]any{a})
	require.NoError(t, err)
	twice, err := merge.MergeServiceLayers("web", []map[string]any{a, a})
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestMergeServiceLayersAssociativeOnDisjointKeys(t *testing.T) {
	a := map[string]any{"image": "nginx:1.25"}
	b := map[string]any{"user": "nobody"}
	c := map[string]any{"working_dir": "/srv"}

	left, err := merge.MergeServiceLayers("web", []map[string]any{a, b})
	require.NoError(t, err)
	left, err = merge.MergeServiceLayers("web", []map[string]any{left, c})
	require.NoError(t, err)

	right, err := merge.MergeServiceLayers("web", []map[string]any{b, c})
	require.NoError(t, err)
	right, err = merge.MergeServiceLayers("web", []map[string]any{a, right})
	require.NoError(t, err)

	assert.Equal(t, left, right)
}

func TestMergeSimpleListDedup(t *testing.T) {
	base := map[string]any{"dns": []any{"8.8.8.8", "1.1.1.1"}}
	override := map[string]any{"dns": []any{"1.1.1.1", "9.9.9.9"}}

	merged, err := merge.MergeServiceLayers("web", []map[string]any{base, override})
	require.NoError(t, err)

	assert.Equal(t, []string{"8.8.8.8", "1.1.1.1", "9.9.9.9"}, merged["dns"])
}

func TestMergePortsByKey(t *testing.T) {
	base := map[string]any{"ports": []any{
		map[string]any{"target": 80, "published": "8080", "protocol": "tcp"},
	}}
	override := map[string]any{"ports": []any{
		map[string]any{"target": 80, "published": "9090", "protocol": "tcp"},
		map[string]any{"target": 443, "published": "8443", "protocol": "tcp"},
	}}

	merged, err := merge.MergeServiceLayers("web", []map[string]any{base, override})
	require.NoError(t, err)

	ports := merged["ports"].([]map[string]any)
	require.Len(t, ports, 2)
	assert.Equal(t, "9090", ports[0]["published"])
	assert.Equal(t, "8443", ports[1]["published"])
}

func TestMergeVolumesByTarget(t *testing.T) {
	base := map[string]any{"volumes": []any{
		map[string]any{"target": "/data", "source": "datavol", "type": "volume"},
		map[string]any{"target": "/etc/app", "source": "/host/app", "type": "bind"},
	}}
	override := map[string]any{"volumes": []any{
		map[string]any{"target": "/data", "source": "otherdata", "type": "volume"},
	}}

	merged, err := merge.MergeServiceLayers("web", []map[string]any{base, override})
	require.NoError(t, err)

	vols := merged["volumes"].([]map[string]any)
	require.Len(t, vols, 2)
	assert.Equal(t, "otherdata", vols[0]["source"])
	assert.Equal(t, "/host/app", vols[1]["source"])
}

func TestMergeImageBuildMutualExclusion(t *testing.T) {
	base := map[string]any{"build": map[string]any{"context": "."}}
	override := map[string]any{"image": "nginx:1.25"}

	merged, err := merge.MergeServiceLayers("web", []map[string]any{base, override})
	require.NoError(t, err)

	assert.Equal(t, "nginx:1.25", merged["image"])
	_, hasBuild := merged["build"]
	assert.False(t, hasBuild)
}

func TestMergeHealthcheckDisableWins(t *testing.T) {
	base := map[string]any{"healthcheck": map[string]any{"test": []any{"CMD", "true"}, "retries": 3}}
	override := map[string]any{"healthcheck": map[string]any{"disable": true}}

	merged, err := merge.MergeServiceLayers("web", []map[string]any{base, override})
	require.NoError(t, err)

	hc := merged["healthcheck"].(map[string]any)
	assert.Equal(t, map[string]any{"disable": true}, hc)
}

func TestInterpolateBasic(t *testing.T) {
	env := map[string]string{"TAG": "1.25"}

	out, warnings := merge.Interpolate("nginx:${TAG}", env)
	assert.Equal(t, "nginx:1.25", out)
	assert.Empty(t, warnings)
}

func TestInterpolateDollarEscape(t *testing.T) {
	out, warnings := merge.Interpolate("price is $$5", nil)
	assert.Equal(t, "price is $5", out)
	assert.Empty(t, warnings)
}

func TestInterpolateDefaultValue(t *testing.T) {
	out, warnings := merge.Interpolate("${PORT:-8080}", map[string]string{})
	assert.Equal(t, "8080", out)
	assert.Empty(t, warnings)
}

func TestInterpolateUnresolvedWarns(t *testing.T) {
	out, warnings := merge.Interpolate("${MISSING}", map[string]string{})
	assert.Equal(t, "", out)
	require.Len(t, warnings, 1)
	assert.Equal(t, "MISSING", warnings[0].Variable)
}

func TestResolveExtendsCycleDetected(t *testing.T) {
	load := func(refFile, path string) (map[string]any, string, error) {
		return map[string]any{
			"a": map[string]any{"extends": map[string]any{"service": "b"}},
			"b": map[string]any{"extends": map[string]any{"service": "a"}},
		}, "compose.yml", nil
	}

	raw := map[string]any{"extends": map[string]any{"service": "b"}}
	_, err := merge.ResolveExtends(load, "compose.yml", "a", raw)
	require.Error(t, err)
}
