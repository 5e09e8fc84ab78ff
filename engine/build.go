package engine

import "github.com/docker/docker/api/types"

// buildImageOptions adapts our BuildOptions (a subset kept free of direct
// dependency on the client build-options struct elsewhere in the core) to
// the Docker SDK's types.ImageBuildOptions.
func buildImageOptions(opts BuildOptions) types.ImageBuildOptions {
	return types.ImageBuildOptions{
		Tags:       opts.Tags,
		Dockerfile: opts.Dockerfile,
		BuildArgs:  opts.BuildArgs,
		Target:     opts.Target,
		CacheFrom:  opts.CacheFrom,
		Labels:     opts.Labels,
		Platform:   opts.Platform,
	}
}
