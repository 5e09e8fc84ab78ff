package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// dockerClient is the Client implementation backed by the real Docker
// Engine API, following graphium's DockerClientManager construction
// pattern: NewClientWithOpts + WithAPIVersionNegotiation + a Ping at
// construction time to fail fast on a misconfigured host.
type dockerClient struct {
	cli *client.Client
}

// NewDocker constructs a Client against host (a Docker-compatible endpoint,
// e.g. "unix:///var/run/docker.sock" or "tcp://host:2375"). An empty host
// uses the SDK's environment-derived default.
func NewDocker(ctx context.Context, host string) (Client, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	} else {
		opts = append(opts, client.FromEnv)
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("engine: constructing docker client for %q: %w", host, err)
	}

	d := &dockerClient{cli: cli}
	if err := d.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("engine: pinging docker host %q: %w", host, err)
	}
	return d, nil
}

func (d *dockerClient) Ping(ctx context.Context) error {
	_, err := d.cli.Ping(ctx)
	return err
}

func (d *dockerClient) Close() error { return d.cli.Close() }

func (d *dockerClient) ContainerList(ctx context.Context, opts container.ListOptions) ([]container.Summary, error) {
	return d.cli.ContainerList(ctx, opts)
}

func (d *dockerClient) ContainerInspect(ctx context.Context, id string) (container.InspectResponse, error) {
	return d.cli.ContainerInspect(ctx, id)
}

func (d *dockerClient) ContainerCreate(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, platform *ocispec.Platform, name string) (container.CreateResponse, error) {
	return d.cli.ContainerCreate(ctx, cfg, hostCfg, netCfg, platform, name)
}

func (d *dockerClient) ContainerStart(ctx context.Context, id string, opts container.StartOptions) error {
	return d.cli.ContainerStart(ctx, id, opts)
}

func (d *dockerClient) ContainerStop(ctx context.Context, id string, opts container.StopOptions) error {
	return d.cli.ContainerStop(ctx, id, opts)
}

func (d *dockerClient) ContainerKill(ctx context.Context, id, signal string) error {
	return d.cli.ContainerKill(ctx, id, signal)
}

func (d *dockerClient) ContainerRestart(ctx context.Context, id string, opts container.StopOptions) error {
	return d.cli.ContainerRestart(ctx, id, opts)
}

func (d *dockerClient) ContainerPause(ctx context.Context, id string) error {
	return d.cli.ContainerPause(ctx, id)
}

func (d *dockerClient) ContainerUnpause(ctx context.Context, id string) error {
	return d.cli.ContainerUnpause(ctx, id)
}

func (d *dockerClient) ContainerRemove(ctx context.Context, id string, opts container.RemoveOptions) error {
	return d.cli.ContainerRemove(ctx, id, opts)
}

func (d *dockerClient) ContainerWait(ctx context.Context, id string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	return d.cli.ContainerWait(ctx, id, condition)
}

func (d *dockerClient) ContainerLogs(ctx context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error) {
	return d.cli.ContainerLogs(ctx, id, opts)
}

func (d *dockerClient) ContainerRename(ctx context.Context, id, newName string) error {
	return d.cli.ContainerRename(ctx, id, newName)
}

func (d *dockerClient) ContainerCommit(ctx context.Context, id string, opts container.CommitOptions) (container.CommitResponse, error) {
	return d.cli.ContainerCommit(ctx, id, opts)
}

func (d *dockerClient) ImageList(ctx context.Context, opts image.ListOptions) ([]image.Summary, error) {
	return d.cli.ImageList(ctx, opts)
}

func (d *dockerClient) ImageInspect(ctx context.Context, name string) (image.InspectResponse, error) {
	return d.cli.ImageInspect(ctx, name)
}

func (d *dockerClient) ImagePull(ctx context.Context, ref string, opts image.PullOptions) (io.ReadCloser, error) {
	return d.cli.ImagePull(ctx, ref, opts)
}

func (d *dockerClient) ImagePush(ctx context.Context, ref string, opts image.PushOptions) (io.ReadCloser, error) {
	return d.cli.ImagePush(ctx, ref, opts)
}

func (d *dockerClient) ImageBuild(ctx context.Context, buildContext io.Reader, opts BuildOptions) (io.ReadCloser, error) {
	resp, err := d.cli.ImageBuild(ctx, buildContext, buildImageOptions(opts))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (d *dockerClient) ImageRemove(ctx context.Context, name string, opts image.RemoveOptions) error {
	_, err := d.cli.ImageRemove(ctx, name, opts)
	return err
}

func (d *dockerClient) DistributionInspect(ctx context.Context, ref string) (DistributionInfo, error) {
	info, err := d.cli.DistributionInspect(ctx, ref, "")
	if err != nil {
		return DistributionInfo{}, err
	}
	platform := fmt.Sprintf("%s/%s", info.Platform.OS, info.Platform.Architecture)
	return DistributionInfo{Digest: string(info.Descriptor.Digest), Platform: platform}, nil
}

func (d *dockerClient) NetworkList(ctx context.Context, opts network.ListOptions) ([]network.Summary, error) {
	return d.cli.NetworkList(ctx, opts)
}

func (d *dockerClient) NetworkInspect(ctx context.Context, name string) (network.Inspect, error) {
	return d.cli.NetworkInspect(ctx, name, network.InspectOptions{})
}

func (d *dockerClient) NetworkCreate(ctx context.Context, name string, opts network.CreateOptions) (network.CreateResponse, error) {
	return d.cli.NetworkCreate(ctx, name, opts)
}

func (d *dockerClient) NetworkRemove(ctx context.Context, name string) error {
	return d.cli.NetworkRemove(ctx, name)
}

func (d *dockerClient) NetworkConnect(ctx context.Context, networkName, containerID string, cfg *network.EndpointSettings) error {
	return d.cli.NetworkConnect(ctx, networkName, containerID, cfg)
}

func (d *dockerClient) NetworkDisconnect(ctx context.Context, networkName, containerID string, force bool) error {
	return d.cli.NetworkDisconnect(ctx, networkName, containerID, force)
}

func (d *dockerClient) VolumeList(ctx context.Context, opts volume.ListOptions) (volume.ListResponse, error) {
	return d.cli.VolumeList(ctx, opts)
}

func (d *dockerClient) VolumeInspect(ctx context.Context, name string) (volume.Volume, error) {
	return d.cli.VolumeInspect(ctx, name)
}

func (d *dockerClient) VolumeCreate(ctx context.Context, opts volume.CreateOptions) (volume.Volume, error) {
	return d.cli.VolumeCreate(ctx, opts)
}

func (d *dockerClient) VolumeRemove(ctx context.Context, name string, force bool) error {
	return d.cli.VolumeRemove(ctx, name, force)
}

func (d *dockerClient) Events(ctx context.Context, opts EventsOptions) (<-chan events.Message, <-chan error) {
	f := filters.NewArgs()
	for key, values := range opts.Filters {
		for _, v := range values {
			f.Add(key, v)
		}
	}
	return d.cli.Events(ctx, events.ListOptions{Filters: f, Since: opts.Since, Until: opts.Until})
}
