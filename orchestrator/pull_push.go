package orchestrator

import (
	"context"
	"io"
	"sync"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/image"

	"evalgo.org/strata/project"
)

// PullPushOptions parameterizes the pull and push verbs.
type PullPushOptions struct {
	Services []string // empty means every enabled service declaring an image
	Parallel bool
}

// Pull fetches the image for every enabled service that declares one,
// de-duplicating by normalized reference so two services sharing the same
// image (or one tagless and one explicit ":latest") only pull once (§4.7).
func (o *Orchestrator) Pull(ctx context.Context, p *project.Project, opts PullPushOptions) error {
	return o.pullOrPush(ctx, p, opts, func(ctx context.Context, ref string) error {
		rc, err := o.Client.ImagePull(ctx, ref, image.PullOptions{})
		if err != nil {
			return err
		}
		defer rc.Close()
		_, err = io.Copy(io.Discard, rc)
		return err
	})
}

// Push publishes the image for every enabled service that declares an
// image reference, regardless of whether it also declares a build block,
// de-duplicated the same way as Pull.
func (o *Orchestrator) Push(ctx context.Context, p *project.Project, opts PullPushOptions) error {
	return o.pullOrPush(ctx, p, opts, func(ctx context.Context, ref string) error {
		rc, err := o.Client.ImagePush(ctx, ref, image.PushOptions{})
		if err != nil {
			return err
		}
		defer rc.Close()
		_, err = io.Copy(io.Discard, rc)
		return err
	})
}

func (o *Orchestrator) pullOrPush(ctx context.Context, p *project.Project, opts PullPushOptions, do func(ctx context.Context, ref string) error) error {
	refs := map[string][]string{} // normalized ref -> owning service names
	for _, name := range serviceNames(p, opts.Services) {
		svc, err := serviceOf(p, name)
		if err != nil {
			return err
		}
		if svc.Image == "" {
			continue
		}
		norm, err := normalizeImageRef(svc.Image)
		if err != nil {
			norm = svc.Image
		}
		refs[norm] = append(refs[norm], name)
	}

	limit := 1
	if opts.Parallel {
		limit = len(refs)
		if limit == 0 {
			limit = 1
		}
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	var mu sync.Mutex
	causes := map[string]error{}

	for ref, owners := range refs {
		ref := ref
		owners := owners
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := do(ctx, ref); err != nil {
				mu.Lock()
				for _, owner := range owners {
					causes[owner] = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return resultsError(causes)
}

// normalizeImageRef renders image into its canonical familiar form so
// "redis" and "redis:latest" collapse to the same de-dup key.
func normalizeImageRef(image string) (string, error) {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return "", err
	}
	return reference.FamiliarString(reference.TagNameOnly(named)), nil
}
