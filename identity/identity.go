// Package identity derives stable names, the com.docker.compose.* label set,
// and the config hash that convergence compares against a running
// container's recorded hash to decide whether it is stale (§4.2, §6.3).
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"evalgo.org/strata/project"
)

// Reserved label keys, the com.docker.compose.* namespace (§6.3).
const (
	LabelProject        = "com.docker.compose.project"
	LabelService         = "com.docker.compose.service"
	LabelContainerNumber = "com.docker.compose.container-number"
	LabelOneOff          = "com.docker.compose.oneoff"
	LabelConfigHash      = "com.docker.compose.config-hash"
	LabelWorkingDir      = "com.docker.compose.project.working_dir"
	LabelConfigFiles     = "com.docker.compose.project.config_files"
	LabelVolume          = "com.docker.compose.volume"
	LabelNetwork         = "com.docker.compose.network"
	LabelVersion         = "com.docker.compose.version"
)

// ImplementationVersion is reported in LabelVersion on every created object.
const ImplementationVersion = "1.0.0"

// ContainerName derives the stable name for the Nth replica of svc within
// project p: "<project>_<service>_<N>" (§4.2).
func ContainerName(projectName, serviceName string, number int) string {
	return fmt.Sprintf("%s_%s_%d", projectName, serviceName, number)
}

// OneOffName derives the name of an ad-hoc `run` container:
// "<project>_<service>_run_<slug>", where slug is 12 lowercase-hex
// characters taken from a fresh random UUID (§4.2).
func OneOffName(projectName, serviceName string) string {
	slug := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s_%s_run_%s", projectName, serviceName, slug)
}

// VolumeName derives the stable name for a declared named volume:
// "<project>_<volume>" unless the volume is external, in which case the
// declared external name is used unmodified by the caller (resources does
// not call VolumeName for external volumes).
func VolumeName(projectName, volumeName string) string {
	return fmt.Sprintf("%s_%s", projectName, volumeName)
}

// NetworkName derives the stable name for a declared network, mirroring
// VolumeName.
func NetworkName(projectName, networkName string) string {
	return fmt.Sprintf("%s_%s", projectName, networkName)
}

// ContainerLabels assembles the full reserved label set for one container,
// merged with the service's own declared labels and the project's
// caller-supplied extra labels. Declared/extra labels never override a
// reserved key: the reserved namespace always wins, matching the teacher's
// convention of injecting identity labels last in `buildContainerConfig`.
func ContainerLabels(p *project.Project, svc project.Service, number int, oneOff bool, configHash string) map[string]string {
	out := make(map[string]string, len(svc.Labels)+len(p.ExtraLabels)+len(svc.ExtraLabels)+8)
	for k, v := range svc.Labels {
		out[k] = v
	}
	for k, v := range p.ExtraLabels {
		out[k] = v
	}
	for k, v := range svc.ExtraLabels {
		out[k] = v
	}

	out[LabelProject] = p.Name
	out[LabelService] = svc.Name
	out[LabelContainerNumber] = strconv.Itoa(number)
	out[LabelOneOff] = boolLabel(oneOff)
	out[LabelConfigHash] = configHash
	out[LabelWorkingDir] = p.WorkingDir
	out[LabelConfigFiles] = strings.Join(p.ConfigFiles, ",")
	out[LabelVersion] = ImplementationVersion
	return out
}

// VolumeLabels assembles the reserved label set for a named volume resource.
func VolumeLabels(p *project.Project, volumeName string) map[string]string {
	v := p.Volumes[volumeName]
	out := make(map[string]string, len(v.Labels)+3)
	for k, val := range v.Labels {
		out[k] = val
	}
	out[LabelProject] = p.Name
	out[LabelVolume] = volumeName
	out[LabelVersion] = ImplementationVersion
	return out
}

// NetworkLabels assembles the reserved label set for a network resource.
func NetworkLabels(p *project.Project, networkName string) map[string]string {
	n := p.Networks[networkName]
	out := make(map[string]string, len(n.Labels)+3)
	for k, val := range n.Labels {
		out[k] = val
	}
	out[LabelProject] = p.Name
	out[LabelNetwork] = networkName
	out[LabelVersion] = ImplementationVersion
	return out
}

func boolLabel(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// configOptions is everything about a declared service that affects how its
// container is created, excluding the fields hashed separately in
// configHashFields (links, net, networks, secrets, volumes_from) and the
// fields that never require a recreate on their own: Scale (a scale
// mismatch is reconciled by Scale(), not a recreate), Profiles,
// ContainerName, Labels, StopGracePeriod, and Restart.
type configOptions struct {
	Build         *project.BuildSpec
	Command       []string
	Entrypoint    []string
	Environment   map[string]*string
	EnvFile       []string
	Ports         []project.ServicePort
	Volumes       []project.VolumeSpec
	PidMode       project.Mode
	IpcMode       project.Mode
	Configs       []project.ResourceRef
	HealthCheck   *project.HealthCheck
	Resources     project.ResourceLimits
	User          string
	WorkingDir    string
	DNS           []string
	Expose        []string
	ExternalLinks []string
	ExtraHosts    map[string]string
	Sysctls       map[string]string
	Logging       *project.LoggingSpec
	Deploy        *project.DeploySpec
	Ulimits       map[string]project.Ulimit
	Devices       []string
	Tmpfs         []project.TmpfsSpec
}

// configHashFields is the documented config-hash subset (§4.2): "stable
// JSON serialization of {options, image_id, links, net, networks, secrets,
// volumes_from}". ImageID is the declared image reference rather than a
// resolved registry digest, since ConfigHash is called with no engine
// access; a build/pull that changes the underlying image without changing
// this reference is caught separately by convergence's image resolution.
type configHashFields struct {
	Options     configOptions
	ImageID     string
	Links       []project.LinkSpec
	Net         project.Mode
	Networks    map[string]project.NetworkAttachment
	Secrets     []project.ResourceRef
	VolumesFrom []project.VolumesFromSpec
}

// ConfigHash computes the stable config-hash for svc: SHA-256 over a
// canonically key-sorted JSON encoding of configHashFields, taken at every
// nesting level (Open Question decision #3 in SPEC_FULL.md). Fields outside
// this subset (Scale, Profiles, ContainerName, Labels, StopGracePeriod,
// Restart, ...) never contribute, so changing them alone never causes a
// recreate. Convergence compares the result against a running container's
// LabelConfigHash to decide whether it is stale.
func ConfigHash(svc project.Service) (string, error) {
	fields := configHashFields{
		Options: configOptions{
			Build:         svc.Build,
			Command:       svc.Command,
			Entrypoint:    svc.Entrypoint,
			Environment:   svc.Environment,
			EnvFile:       svc.EnvFile,
			Ports:         svc.Ports,
			Volumes:       svc.Volumes,
			PidMode:       svc.PidMode,
			IpcMode:       svc.IpcMode,
			Configs:       svc.Configs,
			HealthCheck:   svc.HealthCheck,
			Resources:     svc.Resources,
			User:          svc.User,
			WorkingDir:    svc.WorkingDir,
			DNS:           svc.DNS,
			Expose:        svc.Expose,
			ExternalLinks: svc.ExternalLinks,
			ExtraHosts:    svc.ExtraHosts,
			Sysctls:       svc.Sysctls,
			Logging:       svc.Logging,
			Deploy:        svc.Deploy,
			Ulimits:       svc.Ulimits,
			Devices:       svc.Devices,
			Tmpfs:         svc.Tmpfs,
		},
		ImageID:     svc.Image,
		Links:       svc.Links,
		Net:         svc.NetworkMode,
		Networks:    svc.Networks,
		Secrets:     svc.Secrets,
		VolumesFrom: svc.VolumesFrom,
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("identity: marshal service %q for hashing: %w", svc.Name, err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("identity: canonicalize service %q for hashing: %w", svc.Name, err)
	}

	canonical, err := canonicalJSON(generic)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON re-encodes v with every object's keys sorted, recursively,
// so that the resulting byte string depends only on the data and never on
// incidental map/struct-field iteration order.
func canonicalJSON(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			b.Write(kb)
			b.WriteByte(':')
			vb, err := canonicalJSON(val[k])
			if err != nil {
				return nil, err
			}
			b.Write(vb)
		}
		b.WriteByte('}')
		return []byte(b.String()), nil

	case []any:
		var b strings.Builder
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			ib, err := canonicalJSON(item)
			if err != nil {
				return nil, err
			}
			b.Write(ib)
		}
		b.WriteByte(']')
		return []byte(b.String()), nil

	default:
		return json.Marshal(val)
	}
}
