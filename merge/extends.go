package merge

import (
	"fmt"
	"strings"

	"evalgo.org/strata/errcat"
)

// DocumentLoader loads the raw services mapping of a config file by path,
// resolving relative to refFile's directory when path is relative. The
// caller (loader package) supplies this; merge never touches a filesystem
// itself, per the Non-goal on YAML/file handling.
type DocumentLoader func(refFile, path string) (services map[string]any, resolvedFile string, err error)

// visited is a value-typed set of (file, service) pairs passed by copy, so
// that sibling branches of the extends tree never see each other's
// visited state — the "pure function with a copied visited set" shape
// §9 calls for in place of shared mutable recursion state.
type visited map[string]struct{}

func visitKey(file, service string) string { return file + "\x00" + service }

// ResolveExtends resolves the `extends` chain for one (file, service) pair
// and returns the fully-resolved raw service map (extends base merged with
// every override along the chain, closest to the root last).
func ResolveExtends(load DocumentLoader, file, service string, raw map[string]any) (map[string]any, error) {
	return resolveExtends(load, file, service, raw, visited{})
}

func resolveExtends(load DocumentLoader, file, service string, raw map[string]any, seen visited) (map[string]any, error) {
	key := visitKey(file, service)
	if _, already := seen[key]; already {
		trail := make([]string, 0, len(seen)+1)
		for k := range seen {
			parts := strings.SplitN(k, "\x00", 2)
			trail = append(trail, fmt.Sprintf("%s:%s", parts[0], parts[1]))
		}
		trail = append(trail, fmt.Sprintf("%s:%s", file, service))
		return nil, &errcat.CircularReference{Kind: "extends", Trail: trail}
	}

	nextSeen := make(visited, len(seen)+1)
	for k := range seen {
		nextSeen[k] = struct{}{}
	}
	nextSeen[key] = struct{}{}

	ext, hasExtends := raw["extends"]
	if !hasExtends {
		return raw, nil
	}

	extMap, ok := ext.(map[string]any)
	if !ok {
		return nil, &errcat.ConfigurationError{
			File: file,
			Path: fmt.Sprintf("services.%s.extends", service),
			Cause: fmt.Errorf("extends must be a mapping with a 'service' key"),
		}
	}

	extFile, _ := extMap["file"].(string)
	extService, _ := extMap["service"].(string)
	if extService == "" {
		return nil, &errcat.ConfigurationError{
			File: file,
			Path: fmt.Sprintf("services.%s.extends", service),
			Cause: fmt.Errorf("extends requires a service name"),
		}
	}
	if extFile == "" {
		extFile = file
	}

	baseServices, resolvedFile, err := load(file, extFile)
	if err != nil {
		return nil, &errcat.ConfigurationError{
			File: file,
			Path: fmt.Sprintf("services.%s.extends", service),
			Cause: fmt.Errorf("loading extends file %q: %w", extFile, err),
		}
	}

	baseRaw, ok := baseServices[extService].(map[string]any)
	if !ok {
		return nil, &errcat.ConfigurationError{
			File: resolvedFile,
			Path: fmt.Sprintf("services.%s", extService),
			Cause: fmt.Errorf("extends references undefined service %q", extService),
		}
	}

	resolvedBase, err := resolveExtends(load, resolvedFile, extService, baseRaw, nextSeen)
	if err != nil {
		return nil, err
	}

	override := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "extends" {
			continue
		}
		override[k] = v
	}

	return mergeOneLayer(service, resolvedBase, override)
}
