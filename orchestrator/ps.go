package orchestrator

import (
	"context"
	"time"

	units "github.com/docker/go-units"

	"evalgo.org/strata/project"
)

// PsEntry is one row of a `ps` listing: a container plus the human-readable
// renderings a CLI/API front-end displays without reimplementing formatting.
type PsEntry struct {
	project.Container
	Uptime string // HumanDuration since StartedAt, "" if not running
}

// Ps lists every container belonging to p's enabled services (or the named
// subset), across every replica and one-off.
func (o *Orchestrator) Ps(ctx context.Context, p *project.Project, services []string) ([]PsEntry, error) {
	var out []PsEntry
	for _, name := range serviceNames(p, services) {
		containers, err := o.Convergence.CurrentContainers(ctx, p, name)
		if err != nil {
			return nil, err
		}
		for _, c := range containers {
			entry := PsEntry{Container: c}
			if c.Running() && !c.StartedAt.IsZero() {
				entry.Uptime = units.HumanDuration(time.Since(c.StartedAt))
			}
			out = append(out, entry)
		}
	}
	return out, nil
}
