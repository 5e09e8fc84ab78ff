// Package engine defines the container engine client contract the core
// depends on (§6.2) and a github.com/docker/docker-backed implementation.
// The interface is grounded on eve's common.DockerClient, extended with the
// inspect/rename/commit/events/remove operations §6.2 names that eve's
// narrower interface omits.
package engine

import (
	"context"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Client is everything the core needs from a container engine. It is the
// seam the Non-goal on wire-protocol implementation draws: the core never
// imports net/http for engine calls, only this interface.
type Client interface {
	ContainerList(ctx context.Context, opts container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, id string) (container.InspectResponse, error)
	ContainerCreate(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, platform *ocispec.Platform, name string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, id string, opts container.StartOptions) error
	ContainerStop(ctx context.Context, id string, opts container.StopOptions) error
	ContainerKill(ctx context.Context, id, signal string) error
	ContainerRestart(ctx context.Context, id string, opts container.StopOptions) error
	ContainerPause(ctx context.Context, id string) error
	ContainerUnpause(ctx context.Context, id string) error
	ContainerRemove(ctx context.Context, id string, opts container.RemoveOptions) error
	ContainerWait(ctx context.Context, id string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error)
	ContainerRename(ctx context.Context, id, newName string) error
	ContainerCommit(ctx context.Context, id string, opts container.CommitOptions) (container.CommitResponse, error)

	ImageList(ctx context.Context, opts image.ListOptions) ([]image.Summary, error)
	ImageInspect(ctx context.Context, name string) (image.InspectResponse, error)
	ImagePull(ctx context.Context, ref string, opts image.PullOptions) (io.ReadCloser, error)
	ImagePush(ctx context.Context, ref string, opts image.PushOptions) (io.ReadCloser, error)
	ImageBuild(ctx context.Context, buildContext io.Reader, opts BuildOptions) (io.ReadCloser, error)
	ImageRemove(ctx context.Context, name string, opts image.RemoveOptions) error
	DistributionInspect(ctx context.Context, ref string) (DistributionInfo, error)

	NetworkList(ctx context.Context, opts network.ListOptions) ([]network.Summary, error)
	NetworkInspect(ctx context.Context, name string) (network.Inspect, error)
	NetworkCreate(ctx context.Context, name string, opts network.CreateOptions) (network.CreateResponse, error)
	NetworkRemove(ctx context.Context, name string) error
	NetworkConnect(ctx context.Context, networkName, containerID string, cfg *network.EndpointSettings) error
	NetworkDisconnect(ctx context.Context, networkName, containerID string, force bool) error

	VolumeList(ctx context.Context, opts volume.ListOptions) (volume.ListResponse, error)
	VolumeInspect(ctx context.Context, name string) (volume.Volume, error)
	VolumeCreate(ctx context.Context, opts volume.CreateOptions) (volume.Volume, error)
	VolumeRemove(ctx context.Context, name string, force bool) error

	Events(ctx context.Context, opts EventsOptions) (<-chan events.Message, <-chan error)

	Ping(ctx context.Context) error
	Close() error
}

// BuildOptions is the subset of image build parameters the core assembles;
// it avoids depending on the full client build-options struct so callers
// can construct it without importing build-specific subpackages.
type BuildOptions struct {
	Tags       []string
	Dockerfile string
	BuildArgs  map[string]*string
	Target     string
	CacheFrom  []string
	Labels     map[string]string
	Platform   string
}

// EventsOptions filters the engine event stream (§4.7 "events").
type EventsOptions struct {
	Filters map[string][]string
	Since   string
	Until   string
}

// DistributionInfo is the subset of a remote image manifest's metadata the
// core needs to decide whether a pull is necessary.
type DistributionInfo struct {
	Digest   string
	Platform string
}
