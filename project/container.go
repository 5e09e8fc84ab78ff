package project

import "time"

// ContainerState is a coarse view of an engine container's lifecycle state,
// independent of the engine's own string vocabulary (§4.4).
type ContainerState string

const (
	StateRunning    ContainerState = "running"
	StateCreated    ContainerState = "created"
	StateExited     ContainerState = "exited"
	StatePaused     ContainerState = "paused"
	StateRestarting ContainerState = "restarting"
	StateRemoving   ContainerState = "removing"
	StateDead       ContainerState = "dead"
	StateUnknown    ContainerState = "unknown"
)

// Container is a handle onto one engine container already labeled as
// belonging to this project/service (§6.3), as seen by a point-in-time
// inspection. It is a read view; convergence decisions are made from it but
// it is never mutated in place.
type Container struct {
	ID   string
	Name string

	Project string
	Service string

	// Number is the parsed `com.docker.compose.container-number` label, or
	// 0 for a one-off (`run`) container.
	Number int
	// OneOff is true when this container was created by `run` rather than
	// by a declared service slot.
	OneOff bool

	State   ContainerState
	Health  string // "", starting, healthy, unhealthy — only set when a healthcheck is configured
	ExitCode int

	Image       string
	ConfigHash  string

	// AnonymousVolumes is the set of engine-assigned volume names this
	// container currently owns for its service's anonymous VolumeSpecs,
	// keyed by mount target, so a recreate can re-bind them (§4.4).
	AnonymousVolumes map[string]string

	Labels map[string]string

	CreatedAt time.Time
	StartedAt time.Time
}

// Running reports whether the container is in a state convergence treats as
// "up" for noop/start decisions.
func (c Container) Running() bool {
	return c.State == StateRunning
}
