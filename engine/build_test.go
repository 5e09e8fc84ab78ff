package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildImageOptionsMapsFields(t *testing.T) {
	tag := "v1"
	opts := BuildOptions{
		Tags:       []string{"myapp_web:latest"},
		Dockerfile: "Dockerfile.prod",
		BuildArgs:  map[string]*string{"VERSION": &tag},
		Target:     "builder",
		CacheFrom:  []string{"myapp_web:cache"},
		Labels:     map[string]string{"com.docker.compose.project": "myapp"},
		Platform:   "linux/amd64",
	}

	out := buildImageOptions(opts)

	assert.Equal(t, opts.Tags, out.Tags)
	assert.Equal(t, opts.Dockerfile, out.Dockerfile)
	assert.Equal(t, opts.BuildArgs, out.BuildArgs)
	assert.Equal(t, opts.Target, out.Target)
	assert.Equal(t, opts.CacheFrom, out.CacheFrom)
	assert.Equal(t, opts.Labels, out.Labels)
	assert.Equal(t, opts.Platform, out.Platform)
}
