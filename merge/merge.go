package merge

import (
	"fmt"
	"sort"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"

	"evalgo.org/strata/errcat"
	"evalgo.org/strata/project"
)

// Layer is one config document's raw, decoded-YAML content, already version
// 1 promoted (root-as-services) and net: translated by the loader — merge
// never touches YAML syntax itself, per the Non-goal on file parsing.
type Layer struct {
	File     string
	Version  string
	Services map[string]map[string]any
	Networks map[string]any
	Volumes  map[string]any
	Secrets  map[string]any
	Configs  map[string]any
}

// Options configures one Merge invocation.
type Options struct {
	// ProjectName is the label namespace (§4.2); required.
	ProjectName string
	// Env is the process/supplied environment used for interpolation.
	Env map[string]string
	// ActiveProfiles seeds the project's profile set (§4.7). The CLI leaves
	// it unset and fills p.ActiveProfiles on the returned project, and
	// orchestrator.ResolveProfiles adds auto-enabled profiles after Merge,
	// since profile auto-enable depends on the verb's named-services
	// argument, which merge does not see.
	ActiveProfiles map[string]struct{}
	// ExtraLabels are injected by the caller onto every created object.
	ExtraLabels map[string]string
	// Load resolves `extends: {file: ...}` references; required if any
	// service in any layer declares extends.
	Load DocumentLoader
	// WorkingDir/ConfigFiles are recorded for the project labels only.
	WorkingDir  string
	ConfigFiles []string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Merge is Component B's public contract: given ordered layers (base first,
// overrides last) and merge options, produce a normalized *project.Project
// or fail with a structured error. Merge stops at the first problem found;
// further problems in the same layers are not reported by that call.
func Merge(layers []Layer, opts Options) (*project.Project, []InterpolationWarning, error) {
	if len(layers) == 0 {
		return nil, nil, &errcat.ConfigurationError{Cause: fmt.Errorf("no configuration layers supplied")}
	}
	if opts.ProjectName == "" {
		return nil, nil, &errcat.ConfigurationError{Cause: fmt.Errorf("project name is required")}
	}

	version := layers[len(layers)-1].Version
	if version == "" {
		version = layers[0].Version
	}

	p := &project.Project{
		Name:           opts.ProjectName,
		SchemaVersion:  version,
		ActiveProfiles: opts.ActiveProfiles,
		WorkingDir:     opts.WorkingDir,
		ConfigFiles:    opts.ConfigFiles,
		ExtraLabels:    opts.ExtraLabels,
	}
	if p.ActiveProfiles == nil {
		p.ActiveProfiles = map[string]struct{}{}
	}

	var allWarnings []InterpolationWarning

	networks, err := mergeResourceMaps(layers, func(l Layer) map[string]any { return l.Networks })
	if err != nil {
		return nil, nil, err
	}
	p.Networks = decodeNetworks(networks)

	volumes, err := mergeResourceMaps(layers, func(l Layer) map[string]any { return l.Volumes })
	if err != nil {
		return nil, nil, err
	}
	p.Volumes = decodeVolumeResources(volumes)

	secrets, err := mergeResourceMaps(layers, func(l Layer) map[string]any { return l.Secrets })
	if err != nil {
		return nil, nil, err
	}
	p.Secrets = decodeSecretSpecs(secrets)

	configs, err := mergeResourceMaps(layers, func(l Layer) map[string]any { return l.Configs })
	if err != nil {
		return nil, nil, err
	}
	p.Configs = decodeConfigSpecs(configs)

	// ensureDefaultNetwork: invariant 5 — the default network exists for
	// every project that uses networking, even if not referenced.
	if _, hasDefault := p.Networks["default"]; !hasDefault {
		if p.Networks == nil {
			p.Networks = map[string]project.Network{}
		}
		p.Networks["default"] = project.Network{Name: "default"}
	}

	serviceOrder := collectServiceOrder(layers)
	p.Services = make([]project.Service, 0, len(serviceOrder))

	for _, name := range serviceOrder {
		rawLayers := make([]map[string]any, 0, len(layers))
		var lastFile string
		for _, layer := range layers {
			raw, ok := layer.Services[name]
			if !ok {
				continue
			}
			lastFile = layer.File

			resolved := raw
			if _, hasExtends := raw["extends"]; hasExtends {
				if opts.Load == nil {
					return nil, nil, &errcat.ConfigurationError{
						File: layer.File,
						Path: fmt.Sprintf("services.%s.extends", name),
						Cause: fmt.Errorf("extends used but no document loader supplied"),
					}
				}
				var err error
				resolved, err = ResolveExtends(opts.Load, layer.File, name, raw)
				if err != nil {
					return nil, nil, err
				}
			}

			if err := CheckVersion(layer.File, name, layer.Version, resolved); err != nil {
				return nil, nil, err
			}

			rawLayers = append(rawLayers, resolved)
		}

		merged, err := MergeServiceLayers(name, rawLayers)
		if err != nil {
			return nil, nil, err
		}

		interpolated, warnings := interpolateTree(merged, opts.Env)
		allWarnings = append(allWarnings, warnings...)

		svc, err := DecodeService(lastFile, name, interpolated.(map[string]any))
		if err != nil {
			return nil, nil, err
		}
		svc.ExtraLabels = opts.ExtraLabels

		if err := validateService(svc); err != nil {
			return nil, nil, &errcat.ConfigurationError{
				File: lastFile,
				Path: fmt.Sprintf("services.%s", name),
				Cause: err,
			}
		}

		p.Services = append(p.Services, svc)
	}

	if err := checkDependencySelfReferences(p); err != nil {
		return nil, nil, err
	}

	return p, allWarnings, nil
}

// collectServiceOrder returns every service name across all layers, each
// placed at its first appearance: layer by layer, and by name within a
// layer, since the raw layer maps do not carry the file's declaration order.
func collectServiceOrder(layers []Layer) []string {
	seen := map[string]struct{}{}
	var order []string
	for _, layer := range layers {
		names := make([]string, 0, len(layer.Services))
		for name := range layer.Services {
			names = append(names, name)
		}
		sort.Strings(names) // stable within a layer absent other ordering info
		for _, name := range names {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				order = append(order, name)
			}
		}
	}
	return order
}

func mergeResourceMaps(layers []Layer, pick func(Layer) map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for _, layer := range layers {
		m := pick(layer)
		if m == nil {
			continue
		}
		if err := mergo.Merge(&out, m, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge: merging resource maps from %s: %w", layer.File, err)
		}
	}
	return out, nil
}

func decodeNetworks(raw map[string]any) map[string]project.Network {
	out := make(map[string]project.Network, len(raw))
	for name, v := range raw {
		m, _ := v.(map[string]any)
		n := project.Network{Name: name}
		if m != nil {
			if s, ok := m["driver"].(string); ok {
				n.Driver = s
			}
			n.DriverOpts = decodeStringMap(m["driver_opts"])
			if b, ok := m["internal"].(bool); ok {
				n.Internal = b
			}
			if b, ok := m["attachable"].(bool); ok {
				n.Attachable = b
			}
			if b, ok := m["enable_ipv6"].(bool); ok {
				n.EnableIPv6 = b
			}
			if b, ok := m["external"].(bool); ok {
				n.External = b
			}
			n.Labels = decodeStringMap(m["labels"])
			n.IPAM = decodeIPAM(m["ipam"])
		}
		out[name] = n
	}
	return out
}

func decodeIPAM(v any) *project.IPAM {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	ipam := &project.IPAM{}
	if s, ok := m["driver"].(string); ok {
		ipam.Driver = s
	}
	for _, c := range asMapList(m["config"]) {
		pool := project.IPAMPool{}
		if s, ok := c["subnet"].(string); ok {
			pool.Subnet = s
		}
		if s, ok := c["ip_range"].(string); ok {
			pool.IPRange = s
		}
		if s, ok := c["gateway"].(string); ok {
			pool.Gateway = s
		}
		pool.AuxAddress = decodeStringMap(c["aux_addresses"])
		ipam.Config = append(ipam.Config, pool)
	}
	return ipam
}

func decodeVolumeResources(raw map[string]any) map[string]project.Volume {
	out := make(map[string]project.Volume, len(raw))
	for name, v := range raw {
		m, _ := v.(map[string]any)
		vol := project.Volume{Name: name}
		if m != nil {
			if s, ok := m["driver"].(string); ok {
				vol.Driver = s
			}
			vol.DriverOpts = decodeStringMap(m["driver_opts"])
			vol.Labels = decodeStringMap(m["labels"])
			if b, ok := m["external"].(bool); ok {
				vol.External = b
			}
		}
		out[name] = vol
	}
	return out
}

func decodeSecretSpecs(raw map[string]any) map[string]project.SecretSpec {
	out := make(map[string]project.SecretSpec, len(raw))
	for name, v := range raw {
		m, _ := v.(map[string]any)
		s := project.SecretSpec{Name: name}
		if m != nil {
			if f, ok := m["file"].(string); ok {
				s.File = f
			}
			if b, ok := m["external"].(bool); ok {
				s.External = b
			}
			s.Labels = decodeStringMap(m["labels"])
		}
		out[name] = s
	}
	return out
}

func decodeConfigSpecs(raw map[string]any) map[string]project.ConfigSpec {
	out := make(map[string]project.ConfigSpec, len(raw))
	for name, v := range raw {
		m, _ := v.(map[string]any)
		c := project.ConfigSpec{Name: name}
		if m != nil {
			if f, ok := m["file"].(string); ok {
				c.File = f
			}
			if b, ok := m["external"].(bool); ok {
				c.External = b
			}
			c.Labels = decodeStringMap(m["labels"])
		}
		out[name] = c
	}
	return out
}

func validateService(svc project.Service) error {
	if svc.Name == "" {
		return fmt.Errorf("service name must not be empty")
	}
	if svc.Image == "" && svc.Build == nil {
		return fmt.Errorf("service %q must declare either image or build", svc.Name)
	}
	return validate.Var(svc.Name, "required")
}

// checkDependencySelfReferences rejects a service that names itself in
// links, depends_on, or volumes_from (§7 DependencyError).
func checkDependencySelfReferences(p *project.Project) error {
	for _, svc := range p.Services {
		if _, self := svc.DependsOn[svc.Name]; self {
			return &errcat.DependencyError{Service: svc.Name, Kind: "depends_on"}
		}
		for _, l := range svc.Links {
			if l.Service == svc.Name {
				return &errcat.DependencyError{Service: svc.Name, Kind: "links"}
			}
		}
		for _, vf := range svc.VolumesFrom {
			if !vf.SourceIsContainer && vf.Source == svc.Name {
				return &errcat.DependencyError{Service: svc.Name, Kind: "volumes_from"}
			}
		}
	}
	return nil
}
