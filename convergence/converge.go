package convergence

import (
	"context"
	"fmt"

	dockercontainer "github.com/docker/docker/api/types/container"

	"evalgo.org/strata/errcat"
	"evalgo.org/strata/identity"
	"evalgo.org/strata/project"
)

// ConvergeOptions parameterizes Converge per verb/CLI flags.
type ConvergeOptions struct {
	DeriveOptions
	BuildAction BuildAction
	// RecreateAffinityHint toggles the affinity:container==<id> env
	// injection when anonymous volumes are preserved (Swarm-only hint;
	// a no-op label on a bare engine, kept for the predecessor-affinity
	// property regardless of orchestration target per §4.4).
	RecreateAffinityHint bool
}

// ConvergeResult reports what Converge actually did, for the orchestrator's
// event stream and `up` summary output.
type ConvergeResult struct {
	Service    string
	Action     Action
	Containers []string // resulting container IDs, in replica-number order
}

// Converge derives a plan for svc and executes it against the engine,
// implementing the five-action state machine of §4.4: create, recreate
// (stop/rename/create-with-preserved-anonymous-volumes/start/remove-old),
// start, noop, one_off.
func (pl *Planner) Converge(ctx context.Context, p *project.Project, svc project.Service, opts ConvergeOptions) (ConvergeResult, error) {
	plan, err := pl.Derive(ctx, p, svc, opts.DeriveOptions)
	if err != nil {
		return ConvergeResult{}, err
	}

	switch plan.Action {
	case ActionOneOff:
		return pl.runOneOff(ctx, p, svc, opts)
	case ActionCreate:
		return pl.createReplicas(ctx, p, svc, plan.TargetSize, nil, opts)
	case ActionRecreate:
		return pl.recreate(ctx, p, svc, plan, opts)
	case ActionStart:
		return pl.reconcileRunning(ctx, p, svc, plan, opts)
	case ActionNoop:
		ids := make([]string, len(plan.Existing))
		for i, c := range plan.Existing {
			ids[i] = c.ID
		}
		return ConvergeResult{Service: svc.Name, Action: ActionNoop, Containers: ids}, nil
	default:
		return ConvergeResult{}, fmt.Errorf("convergence: unhandled plan action %q", plan.Action)
	}
}

func (pl *Planner) runOneOff(ctx context.Context, p *project.Project, svc project.Service, opts ConvergeOptions) (ConvergeResult, error) {
	ref, err := pl.ResolveImage(ctx, svc, opts.BuildAction)
	if err != nil {
		return ConvergeResult{}, err
	}
	svc.Image = ref

	hash, err := identity.ConfigHash(svc)
	if err != nil {
		return ConvergeResult{}, err
	}

	resolved, err := pl.resolveServiceModes(ctx, p, svc)
	if err != nil {
		return ConvergeResult{}, err
	}

	co, err := BuildOptions(p, resolved, 1, true, hash, nil)
	if err != nil {
		return ConvergeResult{}, err
	}

	id, err := pl.createAndStart(ctx, co)
	if err != nil {
		return ConvergeResult{}, err
	}
	return ConvergeResult{Service: svc.Name, Action: ActionOneOff, Containers: []string{id}}, nil
}

// createReplicas creates and starts `count` new replicas starting at the
// next available number, optionally reusing preservedVolumes binds for the
// first replica created (used by recreate).
func (pl *Planner) createReplicas(ctx context.Context, p *project.Project, svc project.Service, count int, preservedVolumes map[string]string, opts ConvergeOptions) (ConvergeResult, error) {
	ref, err := pl.ResolveImage(ctx, svc, opts.BuildAction)
	if err != nil {
		return ConvergeResult{}, err
	}
	svc.Image = ref

	hash, err := identity.ConfigHash(svc)
	if err != nil {
		return ConvergeResult{}, err
	}

	existing, err := pl.CurrentContainers(ctx, p, svc.Name)
	if err != nil {
		return ConvergeResult{}, err
	}
	next := NextNumber(existing)

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		vols := preservedVolumes
		if i > 0 {
			vols = nil // only the first replacement reuses the predecessor's volumes
		}
		svcForReplica := svc
		if len(vols) > 0 && opts.RecreateAffinityHint {
			svcForReplica.Environment = withAffinityHint(svc.Environment, existing)
		}
		resolved, err := pl.resolveServiceModes(ctx, p, svcForReplica)
		if err != nil {
			return ConvergeResult{}, err
		}
		co, err := BuildOptions(p, resolved, next+i, false, hash, vols)
		if err != nil {
			return ConvergeResult{}, err
		}
		id, err := pl.createAndStart(ctx, co)
		if err != nil {
			return ConvergeResult{}, err
		}
		ids = append(ids, id)
	}
	return ConvergeResult{Service: svc.Name, Action: ActionCreate, Containers: ids}, nil
}

// resolveServiceModes resolves any network_mode/pid/ipc `service:<name>`
// reference on svc to the current container id of the referenced service,
// so buildHostConfig's modeString produces a valid "container:<id>"
// HostConfig field rather than "container:" with an empty id. The
// dependency graph (§4.3) already orders the referenced service's
// convergence ahead of svc's, so by the time this runs a container for it
// should exist.
func (pl *Planner) resolveServiceModes(ctx context.Context, p *project.Project, svc project.Service) (project.Service, error) {
	resolved, err := pl.resolveMode(ctx, p, svc.NetworkMode)
	if err != nil {
		return project.Service{}, err
	}
	svc.NetworkMode = resolved

	resolved, err = pl.resolveMode(ctx, p, svc.PidMode)
	if err != nil {
		return project.Service{}, err
	}
	svc.PidMode = resolved

	resolved, err = pl.resolveMode(ctx, p, svc.IpcMode)
	if err != nil {
		return project.Service{}, err
	}
	svc.IpcMode = resolved

	return svc, nil
}

func (pl *Planner) resolveMode(ctx context.Context, p *project.Project, m project.Mode) (project.Mode, error) {
	if m.Kind != project.ModeService {
		return m, nil
	}
	containers, err := pl.CurrentContainers(ctx, p, m.Service)
	if err != nil {
		return project.Mode{}, err
	}
	id, ok := firstContainerID(containers)
	if !ok {
		return project.Mode{}, &errcat.OperationFailedError{
			Service:   m.Service,
			Operation: "resolve mode reference",
			Cause:     &errcat.NoSuchService{Name: m.Service},
		}
	}
	m.Container = id
	return m, nil
}

// firstContainerID prefers a running container so a shared network/pid/ipc
// namespace points at a live process, falling back to any existing
// container (e.g. one about to be started by the same convergence pass).
func firstContainerID(containers []project.Container) (string, bool) {
	for _, c := range containers {
		if c.Running() {
			return c.ID, true
		}
	}
	if len(containers) > 0 {
		return containers[0].ID, true
	}
	return "", false
}

func withAffinityHint(env map[string]*string, predecessors []project.Container) map[string]*string {
	if len(predecessors) == 0 {
		return env
	}
	out := make(map[string]*string, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	hint := "=" + predecessors[0].ID
	out["affinity:container"] = &hint
	return out
}

func (pl *Planner) createAndStart(ctx context.Context, co ContainerOptions) (string, error) {
	resp, err := pl.Client.ContainerCreate(ctx, co.Config, co.Host, co.Network, nil, co.Name)
	if err != nil {
		return "", &errcat.OperationFailedError{Operation: "container create", Service: co.Name, Cause: err}
	}
	if err := pl.Client.ContainerStart(ctx, resp.ID, dockercontainer.StartOptions{}); err != nil {
		return "", &errcat.OperationFailedError{Operation: "container start", Service: co.Name, Cause: err}
	}
	return resp.ID, nil
}

// recreate implements the recreate action: stop each diverged container,
// rename it to a temporary name, create the replacement reusing anonymous
// volumes from the predecessor, start the replacement, remove the
// predecessor (§4.4).
func (pl *Planner) recreate(ctx context.Context, p *project.Project, svc project.Service, plan Plan, opts ConvergeOptions) (ConvergeResult, error) {
	ids := make([]string, 0, len(plan.Existing))
	for _, c := range plan.Existing {
		isDiverged := false
		for _, d := range plan.Diverged {
			if d.ID == c.ID {
				isDiverged = true
				break
			}
		}
		if !isDiverged {
			ids = append(ids, c.ID)
			continue
		}

		tmpName := c.Name + "_old"
		if err := pl.Client.ContainerStop(ctx, c.ID, dockercontainer.StopOptions{}); err != nil {
			return ConvergeResult{}, &errcat.OperationFailedError{Operation: "container stop", Service: svc.Name, Cause: err}
		}
		if err := pl.Client.ContainerRename(ctx, c.ID, tmpName); err != nil {
			return ConvergeResult{}, &errcat.OperationFailedError{Operation: "container rename", Service: svc.Name, Cause: err}
		}

		preserved := c.AnonymousVolumes
		result, err := pl.createReplicas(ctx, p, svc, 1, preserved, opts)
		if err != nil {
			return ConvergeResult{}, err
		}

		if err := pl.Client.ContainerRemove(ctx, c.ID, dockercontainer.RemoveOptions{Force: true}); err != nil {
			return ConvergeResult{}, &errcat.OperationFailedError{Operation: "container remove", Service: svc.Name, Cause: err}
		}
		ids = append(ids, result.Containers...)
	}
	return ConvergeResult{Service: svc.Name, Action: ActionRecreate, Containers: ids}, nil
}

// reconcileRunning implements the start action: start any non-running
// existing container, then create/remove replicas to reach TargetSize
// (the scale operation, §4.4's "scaling up"/"scaling down").
func (pl *Planner) reconcileRunning(ctx context.Context, p *project.Project, svc project.Service, plan Plan, opts ConvergeOptions) (ConvergeResult, error) {
	ids := make([]string, 0, plan.TargetSize)
	for _, c := range plan.Existing {
		if !c.Running() {
			if err := pl.Client.ContainerStart(ctx, c.ID, dockercontainer.StartOptions{}); err != nil {
				return ConvergeResult{}, &errcat.OperationFailedError{Operation: "container start", Service: svc.Name, Cause: err}
			}
		}
		ids = append(ids, c.ID)
	}

	switch {
	case len(plan.Existing) < plan.TargetSize:
		created, err := pl.createReplicas(ctx, p, svc, plan.TargetSize-len(plan.Existing), nil, opts)
		if err != nil {
			return ConvergeResult{}, err
		}
		ids = append(ids, created.Containers...)
	case len(plan.Existing) > plan.TargetSize:
		// Scale down: stop and remove the highest-numbered containers
		// first (§4.4 "scaling down").
		toRemove := len(plan.Existing) - plan.TargetSize
		removed := map[string]struct{}{}
		for i := len(plan.Existing) - 1; i >= 0 && toRemove > 0; i-- {
			c := plan.Existing[i]
			if err := pl.Client.ContainerStop(ctx, c.ID, dockercontainer.StopOptions{}); err != nil {
				return ConvergeResult{}, &errcat.OperationFailedError{Operation: "container stop", Service: svc.Name, Cause: err}
			}
			if err := pl.Client.ContainerRemove(ctx, c.ID, dockercontainer.RemoveOptions{}); err != nil {
				return ConvergeResult{}, &errcat.OperationFailedError{Operation: "container remove", Service: svc.Name, Cause: err}
			}
			removed[c.ID] = struct{}{}
			toRemove--
		}
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if _, gone := removed[id]; !gone {
				kept = append(kept, id)
			}
		}
		ids = kept
	}

	return ConvergeResult{Service: svc.Name, Action: ActionStart, Containers: ids}, nil
}

// Scale explicitly converges svc to desiredScale replicas, bypassing the
// hash-divergence check (used by the `scale` verb, §6.1).
func (pl *Planner) Scale(ctx context.Context, p *project.Project, svc project.Service, desiredScale int, opts ConvergeOptions) (ConvergeResult, error) {
	opts.DesiredScale = desiredScale
	existing, err := pl.CurrentContainers(ctx, p, svc.Name)
	if err != nil {
		return ConvergeResult{}, err
	}
	replicas := existing[:0]
	for _, c := range existing {
		if !c.OneOff {
			replicas = append(replicas, c)
		}
	}
	existing = replicas
	return pl.reconcileRunning(ctx, p, svc, Plan{Service: svc.Name, Existing: existing, TargetSize: desiredScale}, opts)
}
