package convergence

import (
	"context"
	"io"

	"github.com/docker/docker/api/types/image"

	"evalgo.org/strata/engine"
	"evalgo.org/strata/errcat"
	"evalgo.org/strata/project"
)

// BuildAction is the ensure_image_exists hint (§4.4).
type BuildAction string

const (
	BuildActionNone  BuildAction = "none"
	BuildActionForce BuildAction = "force"
	BuildActionSkip  BuildAction = "skip"
)

// ResolveImage implements ensure_image_exists: if Image is set and present
// locally, use it; if absent and Build is set, build it (or always build
// when action is force); if absent and no Build, pull it. action==skip
// raises NeedsBuildError instead of building when the image is missing.
func (pl *Planner) ResolveImage(ctx context.Context, svc project.Service, action BuildAction) (string, error) {
	ref := svc.Image
	if ref == "" && svc.Build != nil {
		ref = svc.Name + ":latest" // local build tag when no image: is declared
	}

	if action == BuildActionForce {
		if svc.Build == nil {
			return "", &errcat.NeedsBuildError{Service: svc.Name, Image: ref}
		}
		return ref, pl.build(ctx, svc, ref)
	}

	_, err := pl.Client.ImageInspect(ctx, ref)
	if err == nil {
		return ref, nil
	}

	if svc.Build != nil {
		if action == BuildActionSkip {
			return "", &errcat.NeedsBuildError{Service: svc.Name, Image: ref}
		}
		return ref, pl.build(ctx, svc, ref)
	}

	if err := pl.pull(ctx, ref); err != nil {
		return "", &errcat.NoSuchImageError{Image: ref, Cause: err}
	}
	return ref, nil
}

func (pl *Planner) build(ctx context.Context, svc project.Service, ref string) error {
	opts := engine.BuildOptions{
		Dockerfile: svc.Build.Dockerfile,
		Tags:       []string{ref},
		BuildArgs:  svc.Build.Args,
		CacheFrom:  svc.Build.CacheFrom,
		Target:     svc.Build.Target,
		Labels:     svc.Build.Labels,
	}
	rc, err := pl.Client.ImageBuild(ctx, nil, opts)
	if err != nil {
		return &errcat.OperationFailedError{Operation: "build", Service: svc.Name, Cause: err}
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}

func (pl *Planner) pull(ctx context.Context, ref string) error {
	rc, err := pl.Client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}
