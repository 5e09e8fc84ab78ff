// Package project defines the in-memory, typed representation of a declared
// multi-container application: the Project, its Services, and the auxiliary
// resources (networks, volumes, secrets, configs) that back them.
//
// Values in this package are produced by merge.Merge and are read-only for
// the remainder of an invocation: graph, convergence, resources, and
// orchestrator all treat a *Project as an immutable snapshot.
package project

import "time"

// Project is the deployment unit: an ordered list of services plus the
// networks, volumes, secrets, and configs they reference.
type Project struct {
	// Name is the label namespace; it prefixes every engine object this
	// core creates.
	Name string

	// Services is declaration-ordered; ordering feeds topological
	// sort tie-breaks (§4.3) and deterministic iteration everywhere else.
	Services []Service

	Networks map[string]Network
	Volumes  map[string]Volume
	Secrets  map[string]SecretSpec
	Configs  map[string]ConfigSpec

	// ActiveProfiles is the resolved set of profiles enabled for this run.
	ActiveProfiles map[string]struct{}

	// SchemaVersion is the recognized config version string (§4.1).
	SchemaVersion string

	// WorkingDir and ConfigFiles are recorded only for the
	// project.working_dir / project.config_files labels (§6.3); the core
	// never reads files relative to them.
	WorkingDir  string
	ConfigFiles []string

	// ExtraLabels are injected by the caller (e.g. a CLI flag) and are
	// merged onto every created object in addition to the reserved set.
	ExtraLabels map[string]string
}

// ServiceByName returns the service named name, or false if absent.
func (p *Project) ServiceByName(name string) (Service, bool) {
	for _, s := range p.Services {
		if s.Name == name {
			return s, true
		}
	}
	return Service{}, false
}

// ServiceIndex returns the declaration-order index of name, or -1.
func (p *Project) ServiceIndex(name string) int {
	for i, s := range p.Services {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Enabled reports whether svc participates given the project's active
// profile set (§4.7): a service with no profiles is always enabled.
func (p *Project) Enabled(svc Service) bool {
	if len(svc.Profiles) == 0 {
		return true
	}
	for _, prof := range svc.Profiles {
		if _, ok := p.ActiveProfiles[prof]; ok {
			return true
		}
	}
	return false
}

// EnabledServices returns the services enabled by the project's active
// profile set, in declaration order.
func (p *Project) EnabledServices() []Service {
	out := make([]Service, 0, len(p.Services))
	for _, s := range p.Services {
		if p.Enabled(s) {
			out = append(out, s)
		}
	}
	return out
}

// DependsOnCondition enumerates the conditions a depends_on entry may wait on.
type DependsOnCondition string

const (
	ConditionStarted               DependsOnCondition = "service_started"
	ConditionHealthy               DependsOnCondition = "service_healthy"
	ConditionCompletedSuccessfully DependsOnCondition = "service_completed_successfully"
)

// DependsOn describes one dependency edge's wait condition.
type DependsOn struct {
	Condition DependsOnCondition
	// Required, when false, means a failed dependency does not block
	// (not exercised by the base spec's scenarios but kept for forward
	// compatibility with the mapping form's optional `required` key).
	Required bool
}

// Mode is the tagged variant collapsing NetworkMode/PidMode/IpcMode
// (§9's "deep class hierarchy" re-architecture note).
type Mode struct {
	Kind ModeKind
	// Name holds the driver name for Kind==ModeNamed (host, bridge, none, ...).
	Name string
	// Service holds the referenced service name for Kind==ModeService.
	Service string
	// Container holds the referenced container id/name for Kind==ModeContainer.
	Container string
}

type ModeKind int

const (
	ModeDefault ModeKind = iota
	ModeNamed
	ModeService
	ModeContainer
)

// Service is one declared container role.
type Service struct {
	Name string

	Image string
	Build *BuildSpec

	Command    []string
	Entrypoint []string

	// Environment maps K to V; a nil V-pointer means "inherit from the
	// invoking process environment" (§3).
	Environment map[string]*string
	EnvFile     []string

	Ports []ServicePort

	Volumes     []VolumeSpec
	VolumesFrom []VolumesFromSpec

	Links     []LinkSpec
	DependsOn map[string]DependsOn

	NetworkMode Mode
	PidMode     Mode
	IpcMode     Mode

	Networks map[string]NetworkAttachment

	Secrets []ResourceRef
	Configs []ResourceRef

	HealthCheck *HealthCheck
	Restart     RestartPolicy

	// Scale is the declared replica count; ≥ 0.
	Scale int

	Labels   map[string]string
	Profiles []string

	StopGracePeriod *time.Duration

	Resources ResourceLimits

	ContainerName string

	User       string
	WorkingDir string

	DNS          []string
	Expose       []string
	ExternalLinks []string
	ExtraHosts   map[string]string
	Sysctls      map[string]string

	Logging *LoggingSpec
	Deploy  *DeploySpec

	Ulimits map[string]Ulimit
	Devices []string

	Tmpfs []TmpfsSpec

	// ExtraLabels injected by the caller, merged on top of Labels.
	ExtraLabels map[string]string
}

// BuildSpec describes how to build an image rather than pull one.
type BuildSpec struct {
	Context    string
	Dockerfile string
	Args       map[string]*string
	CacheFrom  []string
	Target     string
	Labels     map[string]string
}

// LinkSpec is a service reference with an optional alias.
type LinkSpec struct {
	Service string
	Alias   string
}

// VolumesFromSpec references another service or container's volumes.
type VolumesFromSpec struct {
	// Source is a service name unless SourceIsContainer is true.
	Source            string
	SourceIsContainer bool
	Mode              string // "rw" or "ro"
}

// ResourceRef is a secret/config reference with optional target/uid/gid/mode.
type ResourceRef struct {
	Source string
	Target string
	UID    string
	GID    string
	Mode   *uint32
}

// NetworkAttachment is one service's attachment configuration for one
// declared network.
type NetworkAttachment struct {
	Aliases       []string
	IPv4Address   string
	IPv6Address   string
	LinkLocalIPs  []string
	Priority      int
}

// HealthCheck mirrors the engine's healthcheck shape.
type HealthCheck struct {
	Disable     bool
	Test        []string
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// RestartPolicy is the declared restart behavior.
type RestartPolicy struct {
	Name              string // no, always, on-failure, unless-stopped
	MaxRetryCount     int
}

// ResourceLimits carries container resource constraints.
type ResourceLimits struct {
	MemLimit   int64
	MemSwap    int64
	CPUs       float64
	PidsLimit  *int64
	Ulimits    map[string]Ulimit
	BlkioWeight uint16
}

// Ulimit is a single soft/hard ulimit pair.
type Ulimit struct {
	Soft int64
	Hard int64
}

// TmpfsSpec describes a tmpfs mount.
type TmpfsSpec struct {
	Target string
	Size   int64
}

// LoggingSpec is the declared logging driver configuration.
type LoggingSpec struct {
	Driver  string
	Options map[string]string
}

// DeploySpec mirrors the subset of `deploy:` this core cares about
// (replica count lives on Service.Scale; this carries resources/placement
// metadata used only for informational labels/affinity hints).
type DeploySpec struct {
	Labels    map[string]string
	Placement PlacementSpec
	Resources DeployResources
	RestartPolicy map[string]string
}

type PlacementSpec struct {
	Constraints []string
	Preferences []string
}

type DeployResources struct {
	Limits       *ResourceLimits
	Reservations *ResourceLimits
}

// SecretSpec / ConfigSpec are declared top-level resources a service may
// reference via Service.Secrets / Service.Configs.
type SecretSpec struct {
	Name     string
	File     string
	External bool
	Labels   map[string]string
}

type ConfigSpec struct {
	Name     string
	File     string
	External bool
	Labels   map[string]string
}

// Network is a declared (not necessarily created) network resource.
type Network struct {
	Name       string
	Driver     string
	DriverOpts map[string]string
	IPAM       *IPAM
	Internal   bool
	Attachable bool
	EnableIPv6 bool
	Labels     map[string]string
	External   bool
}

type IPAM struct {
	Driver string
	Config []IPAMPool
}

type IPAMPool struct {
	Subnet     string
	IPRange    string
	Gateway    string
	AuxAddress map[string]string
}

// Volume is a declared named volume.
type Volume struct {
	Name       string
	Driver     string
	DriverOpts map[string]string
	Labels     map[string]string
	External   bool
}
