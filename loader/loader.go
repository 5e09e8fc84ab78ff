// Package loader turns compose-style YAML documents into the ordered raw
// layer maps merge.Merge consumes: decoding (gopkg.in/yaml.v3), version-1
// root-as-services promotion, and net: -> network_mode translation (the
// value is copied unchanged: net: container:<x> becomes network_mode:
// container:<x> and is not rewritten into a service:<x> reference). This
// sits outside "the hard core" per
// spec.md's Non-goal on YAML parsing — merge/graph/convergence/executor/
// orchestrator never import gopkg.in/yaml.v3 themselves.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"evalgo.org/strata/errcat"
	"evalgo.org/strata/merge"
)

// reservedTopLevelKeys are the section names a version-2+ document uses;
// their presence (any of them, at the document root) is what distinguishes
// a v2+ document from a version-1 document, where every root key is a
// service name (§6.1).
var reservedTopLevelKeys = []string{"version", "services", "networks", "volumes", "secrets", "configs"}

// Load decodes one YAML document into a merge.Layer, ready to be combined
// with other layers and passed to merge.Merge.
func Load(file string, data []byte) (merge.Layer, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return merge.Layer{}, &errcat.ConfigurationError{File: file, Cause: fmt.Errorf("parsing yaml: %w", err)}
	}

	root = stringifyKeys(root)

	layer := merge.Layer{File: file}

	if isVersion1(root) {
		layer.Version = "1"
		layer.Services = promoteVersion1(root)
	} else {
		if v, ok := root["version"]; ok {
			s, _ := v.(string)
			layer.Version = s
		}
		layer.Services = toServiceMap(root["services"])
	}

	layer.Networks, _ = root["networks"].(map[string]any)
	layer.Volumes, _ = root["volumes"].(map[string]any)
	layer.Secrets, _ = root["secrets"].(map[string]any)
	layer.Configs, _ = root["configs"].(map[string]any)

	for name, raw := range layer.Services {
		layer.Services[name] = translateNet(raw)
	}

	return layer, nil
}

// LoadFile reads and decodes path into a merge.Layer.
func LoadFile(path string) (merge.Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return merge.Layer{}, &errcat.ConfigurationError{File: path, Cause: err}
	}
	return Load(path, data)
}

// FileDocumentLoader resolves merge.DocumentLoader's contract against the
// local filesystem: path is resolved relative to refFile's directory when
// it is not already absolute.
func FileDocumentLoader(refFile, path string) (map[string]any, string, error) {
	resolved := path
	if !filepath.IsAbs(path) {
		resolved = filepath.Join(filepath.Dir(refFile), path)
	}
	layer, err := LoadFile(resolved)
	if err != nil {
		return nil, resolved, err
	}
	return layer.Services, resolved, nil
}

// isVersion1 reports whether root has no version-2+ section key, meaning
// every key at the document root is itself a service name (§6.1).
func isVersion1(root map[string]any) bool {
	for _, k := range reservedTopLevelKeys {
		if _, present := root[k]; present {
			return false
		}
	}
	return len(root) > 0
}

// promoteVersion1 treats every root-level mapping entry as a service
// declaration, the version-1 compose shape (§6.1).
func promoteVersion1(root map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(root))
	for name, v := range root {
		if m, ok := v.(map[string]any); ok {
			out[name] = m
		}
	}
	return out
}

func toServiceMap(v any) map[string]map[string]any {
	raw, _ := v.(map[string]any)
	out := make(map[string]map[string]any, len(raw))
	for name, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			out[name] = m
		}
	}
	return out
}

// translateNet rewrites a legacy `net: container:<id>` or `net: bridge`
// field into the v2+ `network_mode` field before merge/graph ever see it
// (Open Question #2 in SPEC_FULL.md §4: the dependency graph always uses
// v2+ semantics).
func translateNet(raw map[string]any) map[string]any {
	netVal, ok := raw["net"]
	if !ok {
		return raw
	}
	if _, hasMode := raw["network_mode"]; !hasMode {
		if s, ok := netVal.(string); ok {
			raw["network_mode"] = s
		}
	}
	delete(raw, "net")
	return raw
}

// stringifyKeys recursively converts yaml.v3's map[string]interface{}
// decode result (already string-keyed at every level for mapping nodes) into
// a tree merge/interpolate can walk uniformly; it also normalizes any
// map[interface{}]interface{} nodes a nested custom unmarshaler might
// produce.
func stringifyKeys(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return normalizeTree(m).(map[string]any)
}

func normalizeTree(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = normalizeTree(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[fmt.Sprintf("%v", k)] = normalizeTree(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = normalizeTree(vv)
		}
		return out
	default:
		return v
	}
}
