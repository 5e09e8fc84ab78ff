package orchestrator

import (
	"context"
	"time"

	dockerevents "github.com/docker/docker/api/types/events"

	"evalgo.org/strata/engine"
	"evalgo.org/strata/identity"
	"evalgo.org/strata/project"
)

// Event is a normalized engine event, scoped to this project (§4.7).
type Event struct {
	Time       time.Time
	Type       string
	Action     string
	ID         string
	Service    string
	Attributes map[string]string
	Container  string // the engine-assigned container name, when known
}

// Events subscribes to the engine event stream filtered to p's containers
// and yields normalized records on the returned channel until ctx is
// canceled or the underlying stream errs. The error channel carries at most
// one error, after which both channels close.
func (o *Orchestrator) Events(ctx context.Context, p *project.Project) (<-chan Event, <-chan error) {
	out := make(chan Event)
	errc := make(chan error, 1)

	raw, rawErr := o.Client.Events(ctx, engine.EventsOptions{
		Filters: map[string][]string{
			"label": {identity.LabelProject + "=" + p.Name},
		},
	})

	go func() {
		defer close(out)
		defer close(errc)
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-rawErr:
				if ok && err != nil {
					errc <- err
				}
				return
			case msg, ok := <-raw:
				if !ok {
					return
				}
				select {
				case out <- decodeEvent(msg):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, errc
}

func decodeEvent(msg dockerevents.Message) Event {
	attrs := map[string]string{}
	service := ""
	if msg.Actor.Attributes != nil {
		for k, v := range msg.Actor.Attributes {
			attrs[k] = v
		}
		service = msg.Actor.Attributes[identity.LabelService]
	}
	return Event{
		Time:       time.Unix(0, msg.TimeNano),
		Type:       string(msg.Type),
		Action:     string(msg.Action),
		ID:         msg.Actor.ID,
		Service:    service,
		Attributes: attrs,
		Container:  attrs["name"],
	}
}
