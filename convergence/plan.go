package convergence

import (
	"context"

	"evalgo.org/strata/identity"
	"evalgo.org/strata/project"
)

// Action is one of the five plan actions §4.4 enumerates.
type Action string

const (
	ActionCreate   Action = "create"
	ActionOneOff   Action = "one_off"
	ActionRecreate Action = "recreate"
	ActionStart    Action = "start"
	ActionNoop     Action = "noop"
)

// Strategy is the convergence strategy gating recreate decisions (§4.4).
type Strategy string

const (
	StrategyChanged Strategy = "changed"
	StrategyAlways  Strategy = "always"
	StrategyNever   Strategy = "never"
)

// Plan is the tuple (action, affected containers) for one service (GLOSSARY
// "Convergence plan").
type Plan struct {
	Service    string
	Action     Action
	Existing   []project.Container
	TargetSize int
	// Diverged holds, for ActionRecreate, which existing containers must
	// be replaced.
	Diverged []project.Container
}

// DeriveOptions parameterizes plan derivation per verb/CLI flags.
type DeriveOptions struct {
	Strategy     Strategy
	DesiredScale int // 0 means "use svc.Scale"
	OneOff       bool
}

// Derive reads current containers and returns the convergence plan for svc
// (§4.4's action table).
func (pl *Planner) Derive(ctx context.Context, p *project.Project, svc project.Service, opts DeriveOptions) (Plan, error) {
	if opts.OneOff {
		return Plan{Service: svc.Name, Action: ActionOneOff, TargetSize: 1}, nil
	}

	existing, err := pl.CurrentContainers(ctx, p, svc.Name)
	if err != nil {
		return Plan{}, err
	}
	replicas := existing[:0]
	for _, c := range existing {
		if !c.OneOff {
			replicas = append(replicas, c)
		}
	}
	existing = replicas

	desired := svc.Scale
	if opts.DesiredScale > 0 {
		desired = opts.DesiredScale
	}

	if len(existing) == 0 {
		return Plan{Service: svc.Name, Action: ActionCreate, TargetSize: desired}, nil
	}

	hash, err := identity.ConfigHash(svc)
	if err != nil {
		return Plan{}, err
	}

	var diverged []project.Container
	if opts.Strategy != StrategyNever {
		for _, c := range existing {
			if opts.Strategy == StrategyAlways || c.ConfigHash != hash {
				diverged = append(diverged, c)
			}
		}
	}

	if len(diverged) > 0 {
		return Plan{Service: svc.Name, Action: ActionRecreate, Existing: existing, Diverged: diverged, TargetSize: desired}, nil
	}

	notRunning := false
	for _, c := range existing {
		if !c.Running() {
			notRunning = true
			break
		}
	}
	if notRunning {
		return Plan{Service: svc.Name, Action: ActionStart, Existing: existing, TargetSize: desired}, nil
	}

	if len(existing) != desired {
		// Scale mismatch with no divergence: treated as a scale operation,
		// not a recreate — reconcileRunning creates or removes replicas
		// to reach TargetSize.
		return Plan{Service: svc.Name, Action: ActionStart, Existing: existing, TargetSize: desired}, nil
	}

	return Plan{Service: svc.Name, Action: ActionNoop, Existing: existing, TargetSize: desired}, nil
}
