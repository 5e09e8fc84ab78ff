package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"evalgo.org/strata/convergence"
	"evalgo.org/strata/project"
)

// BuildOptions parameterizes the build verb.
type BuildOptions struct {
	Services []string // empty means every enabled service with a build block
	Parallel bool      // build at most 5 images concurrently instead of serially
}

const maxParallelBuilds = 5

// Build resolves the image for every enabled service that declares a build
// block, forcing a build regardless of whether the image already exists
// locally (§4.7). Services without a build block are skipped.
func (o *Orchestrator) Build(ctx context.Context, p *project.Project, opts BuildOptions) error {
	var buildable []project.Service
	for _, name := range serviceNames(p, opts.Services) {
		svc, err := serviceOf(p, name)
		if err != nil {
			return err
		}
		if svc.Build != nil {
			buildable = append(buildable, svc)
		}
	}

	limit := int64(1)
	if opts.Parallel {
		limit = maxParallelBuilds
	}
	sem := semaphore.NewWeighted(limit)

	var wg sync.WaitGroup
	var mu sync.Mutex
	causes := map[string]error{}

	for _, svc := range buildable {
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func(svc project.Service) {
			defer wg.Done()
			defer sem.Release(1)
			if _, err := o.Convergence.ResolveImage(ctx, svc, convergence.BuildActionForce); err != nil {
				mu.Lock()
				causes[svc.Name] = err
				mu.Unlock()
			}
		}(svc)
	}
	wg.Wait()

	return resultsError(causes)
}
