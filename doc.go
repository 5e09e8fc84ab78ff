// Package strata is a declarative multi-container application orchestrator
// that drives the Docker Engine HTTP API.
//
// # Overview
//
// strata reads a compose-style project description (one or more YAML
// layers), merges and normalizes it into a typed project, resolves each
// service's dependency graph, and converges every enabled service's
// containers to match the declared state — creating, recreating, starting,
// or leaving them alone, depending on what has actually changed.
//
// # Architecture
//
//	┌──────────────┐   ┌───────────┐   ┌───────────┐
//	│   loader     │──▶│   merge   │──▶│  project  │
//	│ (YAML->Layer)│   │ (algebra) │   │ (typed)   │
//	└──────────────┘   └───────────┘   └─────┬─────┘
//	                                          │
//	                 ┌────────────────────────┼────────────────────────┐
//	                 ▼                        ▼                        ▼
//	           ┌───────────┐          ┌───────────────┐         ┌────────────┐
//	           │   graph   │          │  convergence  │         │ resources  │
//	           │ (deps DAG)│          │ (per-service  │         │ (networks, │
//	           └─────┬─────┘          │ state machine)│         │  volumes)  │
//	                 │                └───────┬───────┘         └──────┬─────┘
//	                 └────────────┬───────────┘                        │
//	                              ▼                                    │
//	                       ┌─────────────┐                             │
//	                       │  executor   │◄────────────────────────────┘
//	                       │ (parallel,  │
//	                       │ fail-fast)  │
//	                       └──────┬──────┘
//	                              ▼
//	                      ┌───────────────┐
//	                      │ orchestrator  │  up/down/build/pull/push/run/
//	                      │  (verb layer) │  start/stop/restart/ps/scale/
//	                      └───────┬───────┘  config/events
//	                              │
//	                   ┌──────────┴──────────┐
//	                   ▼                     ▼
//	           internal/commandline        api
//	             (cobra CLI)         (echo+websocket read surface)
//
// # Core Features
//
// Config-merge algebra:
//   - Ordered layer merging (base + overrides) with list/scalar/map rules
//   - Variable interpolation and `extends:` resolution
//   - Version-1 and version-2+ compose document support (via loader)
//
// Identity and labeling:
//   - Deterministic container/network/volume naming
//   - Reserved engine object labels for ownership and reconciliation
//   - Canonical config-hash computation for change detection
//
// Dependency-graph scheduling:
//   - Cycle detection, topological ordering, reverse (dependents-first)
//     ordering for stop-like verbs
//
// Per-service convergence:
//   - The five-action state machine: create, recreate, start, noop, one_off
//   - Image resolution (pull/build/skip) before container creation
//
// Parallel execution:
//   - Bounded-concurrency executor honoring the dependency DAG
//   - Fail-fast propagation with per-node error aggregation
//
// # Usage
//
// Bring a project up:
//
//	strata up
//
// Tear it down, including orphaned containers:
//
//	strata down --remove-orphans
//
// Render the merged configuration:
//
//	strata config
//
// # Configuration
//
// Configuration can be provided via:
//   - YAML file (./strata.yaml, ~/.strata/strata.yaml, /etc/strata/strata.yaml)
//   - Environment variables (STRATA_ prefix)
//   - .env file
//
// Example configuration:
//
//	engine:
//	  host: unix:///var/run/docker.sock
//	  dial_timeout: 10s
//	executor:
//	  concurrency: 64
//	logging:
//	  level: info
//	  format: text
//
// # Technology Stack
//
//   - Go 1.25+
//   - Docker Engine API client (github.com/docker/docker)
//   - cobra (CLI) / viper (configuration)
//   - echo v4 + gorilla/websocket (read-only HTTP/WS surface)
//   - mergo (layer merging) / go-playground/validator (struct validation)
//
// # License
//
// strata is open source software.
package strata
