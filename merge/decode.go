package merge

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"evalgo.org/strata/errcat"
	"evalgo.org/strata/project"
)

// DecodeService converts one fully merged, fully interpolated raw service
// map into a typed project.Service. It is intentionally permissive about
// absent fields (they zero-value) and strict about type mismatches on
// fields that are present, reporting a ConfigurationError naming the field.
func DecodeService(file, name string, raw map[string]any) (project.Service, error) {
	svc := project.Service{Name: name}

	if v, ok := raw["image"].(string); ok {
		svc.Image = v
	}
	if v, ok := raw["build"]; ok {
		b, err := decodeBuild(file, name, v)
		if err != nil {
			return svc, err
		}
		svc.Build = b
	}

	svc.Command = decodeCommandLike(raw["command"])
	svc.Entrypoint = decodeCommandLike(raw["entrypoint"])

	svc.Environment = decodeEnvironment(raw["environment"])
	svc.EnvFile = asStringList(raw["env_file"])

	ports, err := decodePorts(file, name, raw["ports"])
	if err != nil {
		return svc, err
	}
	svc.Ports = ports

	vols, err := decodeVolumes(file, name, raw["volumes"])
	if err != nil {
		return svc, err
	}
	svc.Volumes = vols

	svc.VolumesFrom = decodeVolumesFrom(raw["volumes_from"])
	svc.Links = decodeLinks(raw["links"])
	svc.DependsOn = decodeDependsOn(raw["depends_on"])

	svc.NetworkMode = decodeMode(raw["network_mode"])
	svc.PidMode = decodeMode(raw["pid"])
	svc.IpcMode = decodeMode(raw["ipc"])

	svc.Networks = decodeNetworksAttachment(raw["networks"])

	svc.Secrets = decodeResourceRefs(raw["secrets"])
	svc.Configs = decodeResourceRefs(raw["configs"])

	svc.HealthCheck = decodeHealthCheck(raw["healthcheck"])
	svc.Restart = decodeRestart(raw["restart"])

	svc.Scale = 1
	if v, ok := raw["scale"]; ok {
		n, err := asInt(v)
		if err != nil {
			return svc, fieldErr(file, name, "scale", err)
		}
		svc.Scale = n
	}

	svc.Labels = decodeStringMap(raw["labels"])
	svc.Profiles = asStringList(raw["profiles"])

	if v, ok := raw["stop_grace_period"].(string); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return svc, fieldErr(file, name, "stop_grace_period", err)
		}
		svc.StopGracePeriod = &d
	}

	svc.Resources = decodeResourceLimits(raw)
	if v, ok := raw["container_name"].(string); ok {
		svc.ContainerName = v
	}
	if v, ok := raw["user"].(string); ok {
		svc.User = v
	}
	if v, ok := raw["working_dir"].(string); ok {
		svc.WorkingDir = v
	}

	svc.DNS = asStringList(raw["dns"])
	svc.Expose = asStringList(raw["expose"])
	svc.ExternalLinks = asStringList(raw["external_links"])
	svc.ExtraHosts = decodeStringMap(raw["extra_hosts"])
	svc.Sysctls = decodeStringMap(raw["sysctls"])

	svc.Logging = decodeLogging(raw["logging"])
	svc.Deploy = decodeDeploy(raw["deploy"])

	svc.Ulimits = decodeUlimits(raw["ulimits"])
	svc.Devices = asStringList(raw["devices"])
	svc.Tmpfs = decodeTmpfs(raw["tmpfs"])

	if svc.ContainerName != "" && svc.Scale > 1 {
		return svc, &errcat.ConfigurationError{
			File: file,
			Path: fmt.Sprintf("services.%s.container_name", name),
			Cause: fmt.Errorf("container_name is incompatible with scale > 1"),
		}
	}

	return svc, nil
}

func fieldErr(file, service, field string, cause error) error {
	return &errcat.ConfigurationError{
		File:  file,
		Path:  fmt.Sprintf("services.%s.%s", service, field),
		Cause: cause,
	}
}

func decodeBuild(file, service string, v any) (*project.BuildSpec, error) {
	switch val := v.(type) {
	case string:
		return &project.BuildSpec{Context: val}, nil
	case map[string]any:
		b := &project.BuildSpec{}
		if s, ok := val["context"].(string); ok {
			b.Context = s
		}
		if s, ok := val["dockerfile"].(string); ok {
			b.Dockerfile = s
		}
		if s, ok := val["target"].(string); ok {
			b.Target = s
		}
		b.Args = decodeEnvironment(val["args"])
		b.CacheFrom = asStringList(val["cache_from"])
		b.Labels = decodeStringMap(val["labels"])
		return b, nil
	case nil:
		return nil, nil
	default:
		return nil, fieldErr(file, service, "build", fmt.Errorf("unexpected type %T", v))
	}
}

func decodeCommandLike(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{"/bin/sh", "-c", val}
	case []any:
		return asStringList(val)
	default:
		return nil
	}
}

// decodeEnvironment preserves the "unset value means inherit from process
// environment" rule: a mapping value of nil yields a nil *string.
func decodeEnvironment(v any) map[string]*string {
	m := normalizeToMapping(v)
	if len(m) == 0 {
		return map[string]*string{}
	}
	out := make(map[string]*string, len(m))
	for k, val := range m {
		if val == nil {
			out[k] = nil
			continue
		}
		s := fmt.Sprintf("%v", val)
		out[k] = &s
	}
	return out
}

func decodeStringMap(v any) map[string]string {
	m := normalizeToMapping(v)
	out := make(map[string]string, len(m))
	for k, val := range m {
		if val == nil {
			out[k] = ""
			continue
		}
		out[k] = fmt.Sprintf("%v", val)
	}
	return out
}

func decodePorts(file, service string, v any) ([]project.ServicePort, error) {
	list := asMapList(v)
	out := make([]project.ServicePort, 0, len(list))
	for _, m := range list {
		p := project.ServicePort{Protocol: "tcp"}
		if s, ok := m["protocol"].(string); ok && s != "" {
			p.Protocol = s
		}
		if s, ok := m["mode"].(string); ok {
			p.Mode = s
		}
		if s, ok := m["host_ip"].(string); ok {
			p.HostIP = s
		}
		if s, ok := m["published"]; ok {
			p.Published = fmt.Sprintf("%v", s)
		}
		target, err := asInt(m["target"])
		if err != nil {
			return nil, fieldErr(file, service, "ports", err)
		}
		p.Target = uint32(target)
		out = append(out, p)
	}
	return out, nil
}

func decodeVolumes(file, service string, v any) ([]project.VolumeSpec, error) {
	list := asMapList(v)
	seenTargets := map[string]project.VolumeSpec{}
	out := make([]project.VolumeSpec, 0, len(list))
	for _, m := range list {
		vs := project.VolumeSpec{}
		switch t, _ := m["type"].(string); t {
		case "bind":
			vs.Type = project.MountTypeBind
		case "tmpfs":
			vs.Type = project.MountTypeTmpfs
		default:
			vs.Type = project.MountTypeVolume
		}
		if s, ok := m["source"].(string); ok {
			vs.Source = s
		}
		if s, ok := m["target"].(string); ok {
			vs.Target = s
		}
		if b, ok := m["read_only"].(bool); ok {
			vs.ReadOnly = b
		}
		vs.Anonymous = vs.Type == project.MountTypeVolume && vs.Source == ""

		if prior, dup := seenTargets[vs.Target]; dup && vs.Target != "" {
			if reflect.DeepEqual(prior, vs) {
				// An exactly identical repeated mount is harmless (§3):
				// skip the duplicate rather than appending or erroring.
				continue
			}
			return nil, &errcat.ConfigurationError{
				File:  file,
				Path:  fmt.Sprintf("services.%s.volumes", service),
				Cause: fmt.Errorf("duplicate mount target %q", vs.Target),
			}
		}
		seenTargets[vs.Target] = vs

		out = append(out, vs)
	}
	return out, nil
}

func decodeVolumesFrom(v any) []project.VolumesFromSpec {
	list := asStringList(v)
	out := make([]project.VolumesFromSpec, 0, len(list))
	for _, s := range list {
		spec := project.VolumesFromSpec{Mode: "rw"}
		name, mode := splitColonSuffix(s)
		if mode == "ro" || mode == "rw" {
			spec.Mode = mode
		} else {
			name = s
		}
		if rest, ok := cutPrefix(name, "container:"); ok {
			spec.SourceIsContainer = true
			spec.Source = rest
		} else {
			spec.Source = name
		}
		out = append(out, spec)
	}
	return out
}

func decodeLinks(v any) []project.LinkSpec {
	list := asStringList(v)
	out := make([]project.LinkSpec, 0, len(list))
	for _, s := range list {
		name, alias := splitColonSuffix(s)
		if alias == "" {
			alias = name
		}
		out = append(out, project.LinkSpec{Service: name, Alias: alias})
	}
	return out
}

func decodeDependsOn(v any) map[string]project.DependsOn {
	m := promoteDependsOn(v)
	out := make(map[string]project.DependsOn, len(m))
	for name, condRaw := range m {
		cond := project.ConditionStarted
		required := true
		if cm, ok := condRaw.(map[string]any); ok {
			if c, ok := cm["condition"].(string); ok && c != "" {
				cond = project.DependsOnCondition(c)
			}
			if r, ok := cm["required"].(bool); ok {
				required = r
			}
		}
		out[name] = project.DependsOn{Condition: cond, Required: required}
	}
	return out
}

func decodeMode(v any) project.Mode {
	s, ok := v.(string)
	if !ok || s == "" {
		return project.Mode{Kind: project.ModeDefault}
	}
	if rest, ok := cutPrefix(s, "service:"); ok {
		return project.Mode{Kind: project.ModeService, Service: rest}
	}
	if rest, ok := cutPrefix(s, "container:"); ok {
		return project.Mode{Kind: project.ModeContainer, Container: rest}
	}
	return project.Mode{Kind: project.ModeNamed, Name: s}
}

func decodeNetworksAttachment(v any) map[string]project.NetworkAttachment {
	m := normalizeNetworksAttachment(v)
	out := make(map[string]project.NetworkAttachment, len(m))
	for name, attachRaw := range m {
		attach, _ := attachRaw.(map[string]any)
		na := project.NetworkAttachment{}
		na.Aliases = asStringList(attach["aliases"])
		if s, ok := attach["ipv4_address"].(string); ok {
			na.IPv4Address = s
		}
		if s, ok := attach["ipv6_address"].(string); ok {
			na.IPv6Address = s
		}
		na.LinkLocalIPs = asStringList(attach["link_local_ips"])
		if n, err := asInt(attach["priority"]); err == nil {
			na.Priority = n
		}
		out[name] = na
	}
	return out
}

func decodeResourceRefs(v any) []project.ResourceRef {
	list := normalizeResourceRefList(v)
	out := make([]project.ResourceRef, 0, len(list))
	for _, m := range list {
		ref := project.ResourceRef{}
		if s, ok := m["source"].(string); ok {
			ref.Source = s
		}
		if s, ok := m["target"].(string); ok {
			ref.Target = s
		}
		if s, ok := m["uid"].(string); ok {
			ref.UID = s
		}
		if s, ok := m["gid"].(string); ok {
			ref.GID = s
		}
		if n, err := asInt(m["mode"]); err == nil {
			u := uint32(n)
			ref.Mode = &u
		}
		out = append(out, ref)
	}
	return out
}

func decodeHealthCheck(v any) *project.HealthCheck {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	hc := &project.HealthCheck{}
	if b, ok := m["disable"].(bool); ok {
		hc.Disable = b
	}
	hc.Test = decodeCommandLike(m["test"])
	if s, ok := m["interval"].(string); ok {
		hc.Interval, _ = time.ParseDuration(s)
	}
	if s, ok := m["timeout"].(string); ok {
		hc.Timeout, _ = time.ParseDuration(s)
	}
	if s, ok := m["start_period"].(string); ok {
		hc.StartPeriod, _ = time.ParseDuration(s)
	}
	if n, err := asInt(m["retries"]); err == nil {
		hc.Retries = n
	}
	return hc
}

func decodeRestart(v any) project.RestartPolicy {
	s, _ := v.(string)
	if s == "" {
		s = "no"
	}
	return project.RestartPolicy{Name: s}
}

func decodeResourceLimits(raw map[string]any) project.ResourceLimits {
	var rl project.ResourceLimits
	if n, err := asInt64(raw["mem_limit"]); err == nil {
		rl.MemLimit = n
	}
	if n, err := asInt64(raw["mem_swap"]); err == nil {
		rl.MemSwap = n
	}
	if f, ok := raw["cpus"]; ok {
		rl.CPUs = asFloat(f)
	}
	if n, err := asInt64(raw["pids_limit"]); err == nil {
		rl.PidsLimit = &n
	}
	rl.Ulimits = decodeUlimits(raw["ulimits"])
	return rl
}

func decodeUlimits(v any) map[string]project.Ulimit {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]project.Ulimit, len(m))
	for name, val := range m {
		switch t := val.(type) {
		case map[string]any:
			soft, _ := asInt64(t["soft"])
			hard, _ := asInt64(t["hard"])
			out[name] = project.Ulimit{Soft: soft, Hard: hard}
		default:
			n, _ := asInt64(val)
			out[name] = project.Ulimit{Soft: n, Hard: n}
		}
	}
	return out
}

func decodeTmpfs(v any) []project.TmpfsSpec {
	switch val := v.(type) {
	case string:
		return []project.TmpfsSpec{{Target: val}}
	case []any:
		out := make([]project.TmpfsSpec, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, project.TmpfsSpec{Target: s})
			}
		}
		return out
	default:
		return nil
	}
}

func decodeLogging(v any) *project.LoggingSpec {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	ls := &project.LoggingSpec{}
	if s, ok := m["driver"].(string); ok {
		ls.Driver = s
	}
	ls.Options = decodeStringMap(m["options"])
	return ls
}

func decodeDeploy(v any) *project.DeploySpec {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	d := &project.DeploySpec{}
	d.Labels = decodeStringMap(m["labels"])
	if p, ok := m["placement"].(map[string]any); ok {
		d.Placement = project.PlacementSpec{
			Constraints: asStringList(p["constraints"]),
			Preferences: asStringList(p["preferences"]),
		}
	}
	d.RestartPolicy = decodeStringMap(m["restart_policy"])
	return d
}

func asInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", val)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func asInt64(v any) (int64, error) {
	n, err := asInt(v)
	return int64(n), err
}

func asFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}

func splitColonSuffix(s string) (string, string) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return "", false
}
