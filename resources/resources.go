// Package resources implements Component C: ensure/remove for declared
// networks and volumes, including the external-resource invariant (never
// create or delete what the user declared external) and drift detection
// against engine state (§4.6).
package resources

import (
	"context"
	"fmt"
	"sort"
	"strings"

	dockernetwork "github.com/docker/docker/api/types/network"
	dockervolume "github.com/docker/docker/api/types/volume"

	"evalgo.org/strata/engine"
	"evalgo.org/strata/errcat"
	"evalgo.org/strata/identity"
	"evalgo.org/strata/project"
)

// driverOptIgnore lists engine-internal driver_opts keys excluded from
// the drift comparison (§4.6) — keys the engine itself injects that were
// never part of the user's declaration.
var driverOptIgnore = map[string]struct{}{
	"com.docker.network.bridge.name": {},
}

// Manager ensures and removes declared networks and volumes against a
// Client, following eve's EnsureNetwork/EnsureVolume idempotent pattern and
// graphium's deployNetwork/deployVolumes external/IPAM handling.
type Manager struct {
	Client engine.Client
}

func New(cli engine.Client) *Manager { return &Manager{Client: cli} }

// EnsureNetworks ensures every declared network in p exists and matches, in
// name order (the declared networks are a map, sorted for determinism).
func (m *Manager) EnsureNetworks(ctx context.Context, p *project.Project) error {
	for _, name := range sortedKeys(p.Networks) {
		if err := m.EnsureNetwork(ctx, p, name); err != nil {
			return err
		}
	}
	return nil
}

// EnsureNetwork implements the network manager's ensure(name) (§4.6).
func (m *Manager) EnsureNetwork(ctx context.Context, p *project.Project, declaredName string) error {
	decl := p.Networks[declaredName]
	engineName := declaredName
	if !decl.External {
		engineName = identity.NetworkName(p.Name, declaredName)
	} else if decl.Name != "" {
		engineName = decl.Name
	}

	existing, err := m.Client.NetworkInspect(ctx, engineName)
	if err == nil {
		if decl.External {
			return nil // external: found, nothing more to check.
		}
		return checkNetworkDrift(declaredName, decl, existing)
	}

	if decl.External {
		// Legacy naming fallback (§4.6) before declaring not-found.
		legacy := legacyName(p.Name) + "_" + declaredName
		if _, legacyErr := m.Client.NetworkInspect(ctx, legacy); legacyErr == nil {
			return nil
		}
		return &errcat.ConfigurationError{
			Path: fmt.Sprintf("networks.%s", declaredName),
			Cause: fmt.Errorf("external network %q not found; create it before running up", engineName),
		}
	}

	_, err = m.Client.NetworkCreate(ctx, engineName, dockernetwork.CreateOptions{
		Driver:     decl.Driver,
		Options:    decl.DriverOpts,
		Internal:   decl.Internal,
		Attachable: true,
		EnableIPv6: &decl.EnableIPv6,
		IPAM:       networkIPAM(decl.IPAM),
		Labels:     identity.NetworkLabels(p, declaredName),
	})
	if err != nil {
		return &errcat.OperationFailedError{Operation: "network create", Service: declaredName, Cause: err}
	}
	return nil
}

func checkNetworkDrift(name string, decl project.Network, existing dockernetwork.Inspect) error {
	if decl.Driver != "" && existing.Driver != decl.Driver {
		return &errcat.NetworkConfigChangedError{Network: name, Field: "driver"}
	}
	if existing.Internal != decl.Internal {
		return &errcat.NetworkConfigChangedError{Network: name, Field: "internal"}
	}
	if existing.EnableIPv6 != decl.EnableIPv6 {
		return &errcat.NetworkConfigChangedError{Network: name, Field: "enable_ipv6"}
	}
	for k, v := range decl.DriverOpts {
		if _, ignore := driverOptIgnore[k]; ignore {
			continue
		}
		if existing.Options[k] != v {
			return &errcat.NetworkConfigChangedError{Network: name, Field: "driver_opts." + k}
		}
	}
	if decl.IPAM != nil {
		if existing.IPAM.Driver != decl.IPAM.Driver {
			return &errcat.NetworkConfigChangedError{Network: name, Field: "ipam.driver"}
		}
		if len(existing.IPAM.Config) != len(decl.IPAM.Config) {
			return &errcat.NetworkConfigChangedError{Network: name, Field: "ipam.config"}
		}
	}
	return nil
}

func networkIPAM(ipam *project.IPAM) dockernetwork.IPAM {
	if ipam == nil {
		return dockernetwork.IPAM{}
	}
	pools := make([]dockernetwork.IPAMConfig, 0, len(ipam.Config))
	for _, c := range ipam.Config {
		pools = append(pools, dockernetwork.IPAMConfig{
			Subnet:  c.Subnet,
			IPRange: c.IPRange,
			Gateway: c.Gateway,
		})
	}
	return dockernetwork.IPAM{Driver: ipam.Driver, Config: pools}
}

// EnsureVolumes ensures every declared volume in p exists, in name order.
func (m *Manager) EnsureVolumes(ctx context.Context, p *project.Project) error {
	for _, name := range sortedKeys(p.Volumes) {
		if err := m.EnsureVolume(ctx, p, name); err != nil {
			return err
		}
	}
	return nil
}

// EnsureVolume implements the volume manager's ensure(name) (§4.6): external
// means must-exist-never-create; non-external means create-if-missing,
// never diff (volumes are immutable once created).
func (m *Manager) EnsureVolume(ctx context.Context, p *project.Project, declaredName string) error {
	decl := p.Volumes[declaredName]
	engineName := declaredName
	if !decl.External {
		engineName = identity.VolumeName(p.Name, declaredName)
	} else if decl.Name != "" {
		engineName = decl.Name
	}

	_, err := m.Client.VolumeInspect(ctx, engineName)
	if err == nil {
		return nil
	}

	if decl.External {
		return &errcat.ConfigurationError{
			Path: fmt.Sprintf("volumes.%s", declaredName),
			Cause: fmt.Errorf("external volume %q not found; create it before running up", engineName),
		}
	}

	_, err = m.Client.VolumeCreate(ctx, dockervolume.CreateOptions{
		Name:       engineName,
		Driver:     decl.Driver,
		DriverOpts: decl.DriverOpts,
		Labels:     identity.VolumeLabels(p, declaredName),
	})
	if err != nil {
		return &errcat.OperationFailedError{Operation: "volume create", Service: declaredName, Cause: err}
	}
	return nil
}

// RemoveNetworks removes every non-external declared network of p.
func (m *Manager) RemoveNetworks(ctx context.Context, p *project.Project) error {
	for _, name := range sortedKeys(p.Networks) {
		decl := p.Networks[name]
		if decl.External {
			continue
		}
		engineName := identity.NetworkName(p.Name, name)
		if err := m.Client.NetworkRemove(ctx, engineName); err != nil {
			return &errcat.OperationFailedError{Operation: "network remove", Service: name, Cause: err}
		}
	}
	return nil
}

// RemoveVolumes removes every non-external declared volume of p (§8
// property 10: external volumes are never removed, even with --volumes).
func (m *Manager) RemoveVolumes(ctx context.Context, p *project.Project) error {
	for _, name := range sortedKeys(p.Volumes) {
		decl := p.Volumes[name]
		if decl.External {
			continue
		}
		engineName := identity.VolumeName(p.Name, name)
		if err := m.Client.VolumeRemove(ctx, engineName, false); err != nil {
			return &errcat.OperationFailedError{Operation: "volume remove", Service: name, Cause: err}
		}
	}
	return nil
}

func legacyName(projectName string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(projectName)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
