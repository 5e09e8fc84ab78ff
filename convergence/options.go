package convergence

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	dockernetwork "github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	units "github.com/docker/go-units"

	"evalgo.org/strata/identity"
	"evalgo.org/strata/project"
)

// ContainerOptions is the fully-assembled triple passed to
// engine.Client.ContainerCreate, generalized from graphium's
// buildContainerConfig/buildHostConfig/buildNetworkConfig (which built a
// fixed single-network, single-port-list shape) to the full §4.4
// HOST_CONFIG_KEYS split, env priority merge, and volumes→mounts/binds
// translation.
type ContainerOptions struct {
	Name    string
	Config  *dockercontainer.Config
	Host    *dockercontainer.HostConfig
	Network *dockernetwork.NetworkingConfig
}

// BuildOptions assembles the container create options for one replica
// (number) of svc within p, given the already-decided config hash.
func BuildOptions(p *project.Project, svc project.Service, number int, oneOff bool, configHash string, anonymousVolumes map[string]string) (ContainerOptions, error) {
	name := identity.ContainerName(p.Name, svc.Name, number)
	if oneOff {
		name = identity.OneOffName(p.Name, svc.Name)
	}

	cfg, err := buildContainerConfig(p, svc, number, oneOff, configHash)
	if err != nil {
		return ContainerOptions{}, err
	}
	host, err := buildHostConfig(svc, anonymousVolumes)
	if err != nil {
		return ContainerOptions{}, err
	}
	netCfg := buildNetworkConfig(p, svc)

	return ContainerOptions{Name: name, Config: cfg, Host: host, Network: netCfg}, nil
}

func buildContainerConfig(p *project.Project, svc project.Service, number int, oneOff bool, configHash string) (*dockercontainer.Config, error) {
	cfg := &dockercontainer.Config{
		Image:      svc.Image,
		Labels:     identity.ContainerLabels(p, svc, number, oneOff, configHash),
		WorkingDir: svc.WorkingDir,
		User:       svc.User,
	}

	if len(svc.Command) > 0 {
		cfg.Cmd = append([]string(nil), svc.Command...)
	}
	if len(svc.Entrypoint) > 0 {
		cfg.Entrypoint = append([]string(nil), svc.Entrypoint...)
	}

	// Environment priority merge (§4.4): service-declared environment wins
	// over project-level defaults already folded into svc.Environment by
	// the merge stage; a nil value means "inherit from the invoking
	// shell" and is resolved here from the process environment, and a nil
	// entry whose variable is unset there is omitted.
	keys := make([]string, 0, len(svc.Environment))
	for k := range svc.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := svc.Environment[k]
		if v == nil {
			if s, ok := os.LookupEnv(k); ok {
				v = &s
			}
		}
		if v != nil {
			cfg.Env = append(cfg.Env, k+"="+*v)
		}
	}

	if len(svc.Ports) > 0 {
		cfg.ExposedPorts = make(nat.PortSet, len(svc.Ports))
		for _, p := range svc.Ports {
			port, err := natPort(p.Target, p.Protocol)
			if err != nil {
				return nil, err
			}
			cfg.ExposedPorts[port] = struct{}{}
		}
	}

	if svc.HealthCheck != nil {
		cfg.Healthcheck = buildHealthcheck(svc.HealthCheck)
	}

	return cfg, nil
}

func natPort(target uint32, protocol string) (nat.Port, error) {
	proto := protocol
	if proto == "" {
		proto = "tcp"
	}
	return nat.NewPort(proto, strconv.FormatUint(uint64(target), 10))
}

func buildHealthcheck(hc *project.HealthCheck) *dockercontainer.HealthConfig {
	if hc.Disable {
		return &dockercontainer.HealthConfig{Test: []string{"NONE"}}
	}
	return &dockercontainer.HealthConfig{
		Test:        hc.Test,
		Interval:    hc.Interval,
		Timeout:     hc.Timeout,
		StartPeriod: hc.StartPeriod,
		Retries:     hc.Retries,
	}
}

func buildHostConfig(svc project.Service, anonymousVolumes map[string]string) (*dockercontainer.HostConfig, error) {
	host := &dockercontainer.HostConfig{
		PortBindings:   make(nat.PortMap),
		Mounts:         []mount.Mount{},
		ReadonlyRootfs: false,
	}

	if svc.Restart.Name != "" {
		host.RestartPolicy = dockercontainer.RestartPolicy{
			Name:              dockercontainer.RestartPolicyMode(svc.Restart.Name),
			MaximumRetryCount: svc.Restart.MaxRetryCount,
		}
	}

	for _, p := range svc.Ports {
		port, err := natPort(p.Target, p.Protocol)
		if err != nil {
			return nil, err
		}
		if p.Published == "" {
			continue
		}
		binding := nat.PortBinding{HostPort: p.Published, HostIP: p.HostIP}
		host.PortBindings[port] = append(host.PortBindings[port], binding)
	}

	for _, v := range svc.Volumes {
		if _, preserved := anonymousVolumes[v.Target]; preserved && v.Anonymous {
			continue // re-attached below as a bind to the predecessor's volume
		}
		m, err := buildMount(v)
		if err != nil {
			return nil, err
		}
		host.Mounts = append(host.Mounts, m)
	}
	// Anonymous volumes preserved from a predecessor container across
	// recreate (§4.4, §8 property 9) are re-attached as plain Binds so
	// the engine reuses the same underlying volume by name.
	anonTargets := make([]string, 0, len(anonymousVolumes))
	for target := range anonymousVolumes {
		anonTargets = append(anonTargets, target)
	}
	sort.Strings(anonTargets)
	for _, target := range anonTargets {
		host.Binds = append(host.Binds, anonymousVolumes[target]+":"+target)
	}

	for _, sec := range svc.Secrets {
		host.Mounts = append(host.Mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   sec.Source,
			Target:   secretTarget(sec),
			ReadOnly: true,
		})
	}

	if svc.Resources.CPUs != 0 {
		host.NanoCPUs = int64(svc.Resources.CPUs * 1e9)
	}
	if svc.Resources.MemLimit != 0 {
		host.Memory = svc.Resources.MemLimit
	}
	if svc.Resources.MemSwap != 0 {
		host.MemorySwap = svc.Resources.MemSwap
	}
	if svc.Resources.PidsLimit != nil {
		limit := *svc.Resources.PidsLimit
		host.PidsLimit = &limit
	}
	if svc.Resources.BlkioWeight != 0 {
		host.BlkioWeight = svc.Resources.BlkioWeight
	}

	ulimitNames := make([]string, 0, len(svc.Ulimits))
	for name := range svc.Ulimits {
		ulimitNames = append(ulimitNames, name)
	}
	sort.Strings(ulimitNames)
	for _, name := range ulimitNames {
		u := svc.Ulimits[name]
		host.Ulimits = append(host.Ulimits, &units.Ulimit{Name: name, Soft: u.Soft, Hard: u.Hard})
	}

	for _, t := range svc.Tmpfs {
		if host.Tmpfs == nil {
			host.Tmpfs = map[string]string{}
		}
		opt := ""
		if t.Size > 0 {
			opt = "size=" + strconv.FormatInt(t.Size, 10)
		}
		host.Tmpfs[t.Target] = opt
	}

	if svc.NetworkMode.Kind != project.ModeDefault {
		host.NetworkMode = dockercontainer.NetworkMode(modeString(svc.NetworkMode))
	}
	if svc.PidMode.Kind != project.ModeDefault {
		host.PidMode = dockercontainer.PidMode(modeString(svc.PidMode))
	}
	if svc.IpcMode.Kind != project.ModeDefault {
		host.IpcMode = dockercontainer.IpcMode(modeString(svc.IpcMode))
	}

	for _, l := range svc.Links {
		spec := l.Service
		if l.Alias != "" {
			spec += ":" + l.Alias
		}
		host.Links = append(host.Links, spec)
	}
	for _, vf := range svc.VolumesFrom {
		spec := vf.Source
		if vf.Mode != "" {
			spec += ":" + vf.Mode
		}
		host.VolumesFrom = append(host.VolumesFrom, spec)
	}

	if svc.Logging != nil {
		host.LogConfig = dockercontainer.LogConfig{Type: svc.Logging.Driver, Config: svc.Logging.Options}
	}

	return host, nil
}

func secretTarget(s project.ResourceRef) string {
	if s.Target != "" {
		return s.Target
	}
	return "/run/secrets/" + s.Source
}

func buildMount(v project.VolumeSpec) (mount.Mount, error) {
	m := mount.Mount{
		Type:     mount.Type(v.Type),
		Target:   v.Target,
		ReadOnly: v.ReadOnly,
	}
	if v.Type != project.MountTypeTmpfs {
		m.Source = v.Source
	}
	if v.Bind != nil {
		m.BindOptions = &mount.BindOptions{
			Propagation: mount.Propagation(v.Bind.Propagation),
		}
	}
	if v.Volume != nil {
		m.VolumeOptions = &mount.VolumeOptions{NoCopy: v.Volume.NoCopy, Labels: v.Volume.Labels}
	}
	if v.Tmpfs != nil {
		m.TmpfsOptions = &mount.TmpfsOptions{SizeBytes: v.Tmpfs.Size}
	}
	return m, nil
}

// modeString resolves a Mode to the engine's "container:<id>" / driver-name
// string form. Kind==ModeService must already have been resolved to a
// target container id in m.Container by Planner.resolveServiceModes before
// BuildOptions is called; this function only renders the final form.
func modeString(m project.Mode) string {
	switch m.Kind {
	case project.ModeService, project.ModeContainer:
		return "container:" + m.Container
	case project.ModeNamed:
		return m.Name
	default:
		return fmt.Sprintf("%v", m.Kind)
	}
}

func buildNetworkConfig(p *project.Project, svc project.Service) *dockernetwork.NetworkingConfig {
	if len(svc.Networks) == 0 {
		return nil
	}
	names := make([]string, 0, len(svc.Networks))
	for name := range svc.Networks {
		names = append(names, name)
	}
	sort.Strings(names)

	endpoints := make(map[string]*dockernetwork.EndpointSettings, len(names))
	for _, name := range names {
		att := svc.Networks[name]
		engineName := identity.NetworkName(p.Name, name)
		if decl, ok := p.Networks[name]; ok && decl.External {
			if decl.Name != "" {
				engineName = decl.Name
			} else {
				engineName = name
			}
		}
		settings := &dockernetwork.EndpointSettings{}
		if len(att.Aliases) > 0 {
			aliases := append([]string(nil), att.Aliases...)
			sort.Strings(aliases)
			settings.Aliases = aliases
		}
		if att.IPv4Address != "" || att.IPv6Address != "" {
			settings.IPAMConfig = &dockernetwork.EndpointIPAMConfig{
				IPv4Address: att.IPv4Address,
				IPv6Address: att.IPv6Address,
			}
		}
		endpoints[engineName] = settings
	}
	return &dockernetwork.NetworkingConfig{EndpointsConfig: endpoints}
}
