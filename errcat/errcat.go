// Package errcat defines the typed error categories raised throughout the
// core (§7) and the aggregation rule the orchestrator applies at verb
// boundaries: the executor collects per-node failures without aborting
// peers, and the verb wraps them into one ProjectError.
package errcat

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError covers validation, merge, path resolution, undefined
// reference, and duplicate-mount-target failures. Never locally recoverable.
type ConfigurationError struct {
	File  string
	Path  string // dotted field path within the document, e.g. "services.web.ports[0]"
	Cause error
}

func (e *ConfigurationError) Error() string {
	if e.File == "" && e.Path == "" {
		return fmt.Sprintf("configuration error: %v", e.Cause)
	}
	return fmt.Sprintf("configuration error in %s at %s: %v", e.File, e.Path, e.Cause)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// CircularReference reports an extends cycle or a service-dependency cycle,
// including the full trail of (file, service) or service names visited.
type CircularReference struct {
	Trail []string
	Kind  string // "extends" or "depends_on"
}

func (e *CircularReference) Error() string {
	return fmt.Sprintf("circular %s reference: %s", e.Kind, strings.Join(e.Trail, " -> "))
}

// DependencyError reports a depends_on/links/volumes_from self-reference.
type DependencyError struct {
	Service string
	Kind    string // "depends_on", "links", "volumes_from"
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("service %q declares a self-referential %s", e.Service, e.Kind)
}

// NeedsBuildError is raised when an image is missing and the build action is skip.
type NeedsBuildError struct {
	Service string
	Image   string
}

func (e *NeedsBuildError) Error() string {
	return fmt.Sprintf("service %q needs image %q built, but the build action is skip", e.Service, e.Image)
}

// NoSuchImageError is raised when an image inspect fails and there is no
// build context to fall back to.
type NoSuchImageError struct {
	Image string
	Cause error
}

func (e *NoSuchImageError) Error() string {
	return fmt.Sprintf("no such image %q: %v", e.Image, e.Cause)
}

func (e *NoSuchImageError) Unwrap() error { return e.Cause }

// NoSuchService is raised when a service-name lookup misses.
type NoSuchService struct {
	Name string
}

func (e *NoSuchService) Error() string {
	return fmt.Sprintf("no such service: %q", e.Name)
}

// OperationFailedError surfaces an engine API error during create/start/stop/etc.
type OperationFailedError struct {
	Service   string
	Operation string
	Cause     error
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("%s failed for service %q: %v", e.Operation, e.Service, e.Cause)
}

func (e *OperationFailedError) Unwrap() error { return e.Cause }

// HealthCheckFailed is raised when a depends_on: service_healthy dependency
// never becomes healthy.
type HealthCheckFailed struct {
	Service string
}

func (e *HealthCheckFailed) Error() string {
	return fmt.Sprintf("service %q dependency failed its health check", e.Service)
}

// NetworkConfigChangedError is raised when a declared network differs from
// engine state in a field that cannot be reconciled in place.
type NetworkConfigChangedError struct {
	Network string
	Field   string
}

func (e *NetworkConfigChangedError) Error() string {
	return fmt.Sprintf("network %q configuration changed in field %q; recreate it manually", e.Network, e.Field)
}

// StreamOutputError wraps an error frame seen on a build or pull stream.
type StreamOutputError struct {
	Service string
	Cause   error
}

func (e *StreamOutputError) Error() string {
	return fmt.Sprintf("stream error for service %q: %v", e.Service, e.Cause)
}

func (e *StreamOutputError) Unwrap() error { return e.Cause }

// ProjectError aggregates one or more node failures from a single verb
// invocation. It is the only error type a verb returns once the executor
// has drained.
type ProjectError struct {
	// Causes maps node name (service or resource name) to the error that
	// node reported.
	Causes map[string]error
}

func (e *ProjectError) Error() string {
	if len(e.Causes) == 0 {
		return "project error: no causes recorded"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("project error: %d node(s) failed", len(e.Causes)))
	for name, cause := range e.Causes {
		b.WriteString(fmt.Sprintf("\n  %s: %v", name, cause))
	}
	return b.String()
}

// Unwrap exposes causes to errors.Is/As via errors.Join semantics.
func (e *ProjectError) Unwrap() []error {
	out := make([]error, 0, len(e.Causes))
	for _, err := range e.Causes {
		out = append(out, err)
	}
	return out
}

// NewProjectError builds a ProjectError from a name->error map, or returns
// nil if causes is empty (no failures to report).
func NewProjectError(causes map[string]error) error {
	if len(causes) == 0 {
		return nil
	}
	return &ProjectError{Causes: causes}
}

// As is a thin convenience wrapper over errors.As for callers that want to
// branch on error kind without importing errors directly.
func As(err error, target any) bool {
	return errors.As(err, target)
}
