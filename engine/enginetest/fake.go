// Package enginetest provides an in-memory engine.Client fake for exercising
// resources, convergence, and orchestrator without a real Docker daemon —
// the same role eve's common.DockerClient interface plays for graphium's
// own tests, generalized to the fuller §6.2 contract.
package enginetest

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"evalgo.org/strata/engine"
)

// Fake is a minimal, concurrency-safe, label-filtering in-memory engine.
type Fake struct {
	mu sync.Mutex

	nextID int

	containers map[string]*fakeContainer
	networks   map[string]network.Inspect
	volumes    map[string]volume.Volume
	images     map[string]struct{}
}

type fakeContainer struct {
	id     string
	name   string
	config *container.Config
	host   *container.HostConfig
	state  string
}

// New returns an empty Fake ready to use as an engine.Client.
func New() *Fake {
	return &Fake{
		containers: map[string]*fakeContainer{},
		networks:   map[string]network.Inspect{},
		volumes:    map[string]volume.Volume{},
		images:     map[string]struct{}{},
	}
}

var _ engine.Client = (*Fake)(nil)

// SeedImage marks ref as already present locally, so convergence's image
// resolution treats it as available without a pull.
func (f *Fake) SeedImage(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[ref] = struct{}{}
}

func (f *Fake) Ping(ctx context.Context) error { return nil }
func (f *Fake) Close() error                   { return nil }

func (f *Fake) ContainerList(ctx context.Context, opts container.ListOptions) ([]container.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wanted := labelFilters(opts)
	var out []container.Summary
	for _, c := range f.containers {
		if !matchesLabels(c.config.Labels, wanted) {
			continue
		}
		out = append(out, container.Summary{
			ID:     c.id,
			Names:  []string{"/" + c.name},
			Image:  c.config.Image,
			State:  c.state,
			Labels: c.config.Labels,
		})
	}
	return out, nil
}

func (f *Fake) ContainerInspect(ctx context.Context, id string) (container.InspectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[id]
	if !ok {
		return container.InspectResponse{}, fmt.Errorf("enginetest: no such container %q", id)
	}
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			ID:         c.id,
			Name:       "/" + c.name,
			State:      &container.State{Status: c.state, Running: c.state == "running"},
			HostConfig: c.host,
		},
		Config: c.config,
	}, nil
}

func (f *Fake) ContainerCreate(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, platform *ocispec.Platform, name string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := "fake" + strconv.Itoa(f.nextID)
	f.containers[id] = &fakeContainer{id: id, name: strings.TrimPrefix(name, "/"), config: cfg, host: hostCfg, state: "created"}
	return container.CreateResponse{ID: id}, nil
}

func (f *Fake) ContainerStart(ctx context.Context, id string, opts container.StartOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return fmt.Errorf("enginetest: no such container %q", id)
	}
	c.state = "running"
	return nil
}

func (f *Fake) ContainerStop(ctx context.Context, id string, opts container.StopOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return fmt.Errorf("enginetest: no such container %q", id)
	}
	c.state = "exited"
	return nil
}

func (f *Fake) ContainerKill(ctx context.Context, id, signal string) error {
	return f.ContainerStop(ctx, id, container.StopOptions{})
}

func (f *Fake) ContainerRestart(ctx context.Context, id string, opts container.StopOptions) error {
	return f.ContainerStart(ctx, id, container.StartOptions{})
}

func (f *Fake) ContainerPause(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.containers[id]; ok {
		c.state = "paused"
	}
	return nil
}

func (f *Fake) ContainerUnpause(ctx context.Context, id string) error {
	return f.ContainerStart(ctx, id, container.StartOptions{})
}

func (f *Fake) ContainerRemove(ctx context.Context, id string, opts container.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.containers, id)
	return nil
}

func (f *Fake) ContainerWait(ctx context.Context, id string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	ch := make(chan container.WaitResponse, 1)
	errc := make(chan error, 1)
	ch <- container.WaitResponse{}
	return ch, errc
}

func (f *Fake) ContainerLogs(ctx context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *Fake) ContainerRename(ctx context.Context, id, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.containers[id]; ok {
		c.name = strings.TrimPrefix(newName, "/")
	}
	return nil
}

func (f *Fake) ContainerCommit(ctx context.Context, id string, opts container.CommitOptions) (container.CommitResponse, error) {
	return container.CommitResponse{ID: "fakeimage"}, nil
}

func (f *Fake) ImageList(ctx context.Context, opts image.ListOptions) ([]image.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []image.Summary
	for ref := range f.images {
		out = append(out, image.Summary{RepoTags: []string{ref}})
	}
	return out, nil
}

func (f *Fake) ImageInspect(ctx context.Context, name string) (image.InspectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.images[name]; !ok {
		return image.InspectResponse{}, fmt.Errorf("enginetest: no such image %q", name)
	}
	return image.InspectResponse{ID: "sha256:fake-" + name}, nil
}

func (f *Fake) ImagePull(ctx context.Context, ref string, opts image.PullOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	f.images[ref] = struct{}{}
	f.mu.Unlock()
	return io.NopCloser(strings.NewReader(`{"status":"pulled"}`)), nil
}

func (f *Fake) ImagePush(ctx context.Context, ref string, opts image.PushOptions) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(`{"status":"pushed"}`)), nil
}

func (f *Fake) ImageBuild(ctx context.Context, buildContext io.Reader, opts engine.BuildOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	for _, tag := range opts.Tags {
		f.images[tag] = struct{}{}
	}
	f.mu.Unlock()
	return io.NopCloser(strings.NewReader(`{"stream":"built"}`)), nil
}

func (f *Fake) ImageRemove(ctx context.Context, name string, opts image.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.images, name)
	return nil
}

func (f *Fake) DistributionInspect(ctx context.Context, ref string) (engine.DistributionInfo, error) {
	return engine.DistributionInfo{Digest: "sha256:fake", Platform: "linux/amd64"}, nil
}

func (f *Fake) NetworkList(ctx context.Context, opts network.ListOptions) ([]network.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []network.Summary
	for _, n := range f.networks {
		out = append(out, network.Summary{ID: n.ID, Name: n.Name, Labels: n.Labels})
	}
	return out, nil
}

func (f *Fake) NetworkInspect(ctx context.Context, name string) (network.Inspect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.networks[name]
	if !ok {
		return network.Inspect{}, fmt.Errorf("enginetest: no such network %q", name)
	}
	return n, nil
}

func (f *Fake) NetworkCreate(ctx context.Context, name string, opts network.CreateOptions) (network.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := "fakenet" + strconv.Itoa(f.nextID)
	f.networks[name] = network.Inspect{
		ID: id, Name: name, Driver: opts.Driver, Labels: opts.Labels,
		Internal: opts.Internal, Attachable: opts.Attachable, EnableIPv6: opts.EnableIPv6,
	}
	return network.CreateResponse{ID: id}, nil
}

func (f *Fake) NetworkRemove(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.networks, name)
	return nil
}

func (f *Fake) NetworkConnect(ctx context.Context, networkName, containerID string, cfg *network.EndpointSettings) error {
	return nil
}

func (f *Fake) NetworkDisconnect(ctx context.Context, networkName, containerID string, force bool) error {
	return nil
}

func (f *Fake) VolumeList(ctx context.Context, opts volume.ListOptions) (volume.ListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*volume.Volume
	for _, v := range f.volumes {
		v := v
		out = append(out, &v)
	}
	return volume.ListResponse{Volumes: out}, nil
}

func (f *Fake) VolumeInspect(ctx context.Context, name string) (volume.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.volumes[name]
	if !ok {
		return volume.Volume{}, fmt.Errorf("enginetest: no such volume %q", name)
	}
	return v, nil
}

func (f *Fake) VolumeCreate(ctx context.Context, opts volume.CreateOptions) (volume.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := volume.Volume{Name: opts.Name, Driver: opts.Driver, Labels: opts.Labels}
	f.volumes[opts.Name] = v
	return v, nil
}

func (f *Fake) VolumeRemove(ctx context.Context, name string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.volumes, name)
	return nil
}

func (f *Fake) Events(ctx context.Context, opts engine.EventsOptions) (<-chan events.Message, <-chan error) {
	ch := make(chan events.Message)
	errc := make(chan error, 1)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, errc
}

func labelFilters(opts container.ListOptions) map[string]string {
	out := map[string]string{}
	for _, kv := range opts.Filters.Get("label") {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			out[k] = v
		}
	}
	return out
}

func matchesLabels(have map[string]string, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}
