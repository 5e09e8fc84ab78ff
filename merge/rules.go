// Package merge implements Component B: the config-model merge algebra
// (§4.1), extends resolution, interpolation, and path resolution. It
// consumes ordered layers of raw, decoded-YAML maps (the caller owns
// parsing/schema validation, per the Non-goals) and produces a normalized
// *project.Project.
package merge

import (
	"fmt"
	"sort"
)

// FieldKind classifies how one top-level service field merges across
// layers (§4.1's table), so the interpreter in Merge can dispatch on kind
// rather than branching on runtime type per field — the re-architecture
// §9 calls for in place of "dynamic dict merging".
type FieldKind int

const (
	KindScalar FieldKind = iota
	KindSimpleList
	KindPortList
	KindVolumeList
	KindMapping
	KindBuildArgs
	KindCacheFromSet
	KindDependsOn
	KindNetworksAttachment
	KindLogging
	KindDeploy
	KindHealthcheck
	KindResourceRefList // secrets/configs: merge-by-source, same shape as volume merge-by-target
	KindImageBuildPair // handled structurally, not per-field; see mergeImageBuildPair
)

// serviceFieldKinds is the §4.1 rule table, keyed by the raw YAML field
// name as it appears in a service mapping.
var serviceFieldKinds = map[string]FieldKind{
	"image":             KindScalar,
	"command":           KindScalar,
	"entrypoint":        KindScalar,
	"container_name":    KindScalar,
	"user":               KindScalar,
	"working_dir":       KindScalar,
	"stop_grace_period": KindScalar,
	"restart":           KindScalar,
	"mem_limit":         KindScalar,
	"mem_swap":          KindScalar,
	"cpus":              KindScalar,
	"pids_limit":        KindScalar,
	"scale":             KindScalar,
	"network_mode":      KindScalar,
	"pid":               KindScalar,
	"ipc":               KindScalar,

	"dns":            KindSimpleList,
	"expose":         KindSimpleList,
	"external_links": KindSimpleList,
	"profiles":       KindSimpleList,
	"env_file":       KindSimpleList,
	"devices":        KindSimpleList,
	"links":          KindSimpleList,

	"ports": KindPortList,

	"volumes": KindVolumeList,

	"environment": KindMapping,
	"labels":      KindMapping,
	"extra_hosts": KindMapping,
	"sysctls":     KindMapping,
	"ulimits":     KindMapping,

	"depends_on": KindDependsOn,
	"networks":   KindNetworksAttachment,
	"logging":    KindLogging,
	"deploy":     KindDeploy,
	"healthcheck": KindHealthcheck,

	"secrets": KindResourceRefList,
	"configs": KindResourceRefList,
}

// FieldKindOf reports the merge classification of a service field, and
// whether it is a recognized field at all.
func FieldKindOf(field string) (FieldKind, bool) {
	k, ok := serviceFieldKinds[field]
	return k, ok
}

// MergeServiceLayers merges an ordered list of raw per-service maps
// (base first, overrides last) into one normalized map, applying the
// per-field-kind rules of §4.1. The `build` sub-map's nested fields
// (`args`, `cache_from`) are merged by MergeServiceLayers itself since they
// are not top-level keys; all other nested structure is merged by the
// per-kind handler.
func MergeServiceLayers(serviceName string, layers []map[string]any) (map[string]any, error) {
	if len(layers) == 0 {
		return map[string]any{}, nil
	}

	result := map[string]any{}
	for _, layer := range layers {
		var err error
		result, err = mergeOneLayer(serviceName, result, layer)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeOneLayer(serviceName string, base, override map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}

	mergeImageBuildPair(out, override)

	for field, overrideVal := range override {
		if field == "image" || field == "build" {
			continue // handled by mergeImageBuildPair
		}

		baseVal, hadBase := out[field]
		kind, known := FieldKindOf(field)
		if !known {
			// Unrecognized fields (extension fields, `x-*`, anything the
			// rule table doesn't name) fall back to scalar-override —
			// the safest default per the "override wins if present" rule.
			out[field] = overrideVal
			continue
		}

		merged, err := mergeField(serviceName, field, kind, baseVal, hadBase, overrideVal)
		if err != nil {
			return nil, err
		}
		out[field] = merged
	}

	return out, nil
}

// mergeImageBuildPair applies §4.1's mutually-exclusive pair rule: if the
// override specifies `image`, drop base's `build`, and vice versa.
func mergeImageBuildPair(out, override map[string]any) {
	_, overrideHasImage := override["image"]
	_, overrideHasBuild := override["build"]

	if overrideHasImage {
		delete(out, "build")
	}
	if overrideHasBuild {
		delete(out, "image")
	}
	if overrideHasImage {
		out["image"] = override["image"]
	}
	if overrideHasBuild {
		out["build"] = mergeBuild(out["build"], override["build"])
	}
}

func mergeBuild(baseVal, overrideVal any) any {
	base, _ := baseVal.(map[string]any)
	override, _ := overrideVal.(map[string]any)
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		switch k {
		case "args":
			out[k] = mergeMapping(out["args"], v)
		case "cache_from":
			out[k] = mergeSimpleList(asStringList(out["cache_from"]), asStringList(v))
		default:
			out[k] = v
		}
	}
	return out
}

func mergeField(serviceName, field string, kind FieldKind, baseVal any, hadBase bool, overrideVal any) (any, error) {
	if !hadBase {
		return overrideVal, nil
	}

	switch kind {
	case KindScalar:
		return overrideVal, nil

	case KindSimpleList:
		return mergeSimpleList(asStringList(baseVal), asStringList(overrideVal)), nil

	case KindPortList:
		return mergePortList(asMapList(baseVal), asMapList(overrideVal)), nil

	case KindVolumeList:
		return mergeVolumeList(asMapList(baseVal), asMapList(overrideVal)), nil

	case KindMapping:
		return mergeMapping(baseVal, overrideVal), nil

	case KindDependsOn:
		return mergeDependsOn(baseVal, overrideVal), nil

	case KindNetworksAttachment:
		return mergeNetworksAttachment(baseVal, overrideVal), nil

	case KindLogging:
		return mergeLogging(baseVal, overrideVal), nil

	case KindDeploy:
		return mergeDeploy(baseVal, overrideVal), nil

	case KindHealthcheck:
		return mergeHealthcheck(baseVal, overrideVal), nil

	case KindResourceRefList:
		return mergeResourceRefList(normalizeResourceRefList(baseVal), normalizeResourceRefList(overrideVal)), nil

	default:
		return nil, fmt.Errorf("merge: service %q field %q: unhandled field kind %d", serviceName, field, kind)
	}
}

// mergeSimpleList concatenates, preserves order, and de-duplicates by value.
func mergeSimpleList(base, override []string) []string {
	seen := make(map[string]struct{}, len(base)+len(override))
	out := make([]string, 0, len(base)+len(override))
	for _, v := range base {
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, v := range override {
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// mergeMapping performs a deep key-wise merge where override wins per key,
// normalizing a `KEY=VAL` list form to mapping form first.
func mergeMapping(baseVal, overrideVal any) map[string]any {
	base := normalizeToMapping(baseVal)
	override := normalizeToMapping(overrideVal)

	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func normalizeToMapping(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case []any:
		out := make(map[string]any, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				continue
			}
			k, value := splitKeyEqualsValue(s)
			out[k] = value
		}
		return out
	default:
		return map[string]any{}
	}
}

func splitKeyEqualsValue(s string) (string, any) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:]
		}
	}
	return s, nil
}

func asStringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asMapList(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		if m, ok := v.([]map[string]any); ok {
			return m
		}
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// mergePortList concatenates then de-duplicates by the merge key
// (target, published, external_ip, protocol); a later entry with the same
// key replaces the earlier one entirely.
func mergePortList(base, override []map[string]any) []map[string]any {
	return mergeByKey(base, override, portMergeKey)
}

func portMergeKey(m map[string]any) string {
	return fmt.Sprintf("%v|%v|%v|%v", m["target"], m["published"], m["external_ip"], protoOr(m["protocol"]))
}

func protoOr(v any) any {
	if v == nil || v == "" {
		return "tcp"
	}
	return v
}

// mergeVolumeList overrides by target: later wins; non-overlapping targets
// concatenate.
func mergeVolumeList(base, override []map[string]any) []map[string]any {
	return mergeByKey(base, override, func(m map[string]any) string {
		return fmt.Sprintf("%v", m["target"])
	})
}

// mergeByKey preserves first-seen order, replacing any base entry whose key
// recurs in override, and appending override entries with new keys.
func mergeByKey(base, override []map[string]any, key func(map[string]any) string) []map[string]any {
	order := make([]string, 0, len(base)+len(override))
	byKey := make(map[string]map[string]any, len(base)+len(override))

	for _, m := range base {
		k := key(m)
		if _, exists := byKey[k]; !exists {
			order = append(order, k)
		}
		byKey[k] = m
	}
	for _, m := range override {
		k := key(m)
		if _, exists := byKey[k]; !exists {
			order = append(order, k)
		}
		byKey[k] = m
	}

	out := make([]map[string]any, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

// mergeDependsOn promotes the short list form to mapping form (condition
// service_started) on either side before key-wise merging.
func mergeDependsOn(baseVal, overrideVal any) map[string]any {
	base := promoteDependsOn(baseVal)
	override := promoteDependsOn(overrideVal)

	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func promoteDependsOn(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case []any:
		out := make(map[string]any, len(val))
		for _, item := range val {
			if name, ok := item.(string); ok {
				out[name] = map[string]any{"condition": "service_started"}
			}
		}
		return out
	default:
		return map[string]any{}
	}
}

// mergeNetworksAttachment merges per-network key-wise; aliases merge as a
// sorted set-union. A `None`/absent attachment normalizes to {} per
// SPEC_FULL.md's Open Question decision #1.
func mergeNetworksAttachment(baseVal, overrideVal any) map[string]any {
	base := normalizeNetworksAttachment(baseVal)
	override := normalizeNetworksAttachment(overrideVal)

	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for netName, overrideAttach := range override {
		baseAttach, _ := out[netName].(map[string]any)
		oa, _ := overrideAttach.(map[string]any)
		out[netName] = mergeOneNetworkAttachment(baseAttach, oa)
	}
	return out
}

func normalizeNetworksAttachment(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, attach := range val {
			if attach == nil {
				out[k] = map[string]any{}
			} else {
				out[k] = attach
			}
		}
		return out
	case []any:
		// short form: a bare list of network names.
		out := make(map[string]any, len(val))
		for _, item := range val {
			if name, ok := item.(string); ok {
				out[name] = map[string]any{}
			}
		}
		return out
	default:
		return map[string]any{}
	}
}

func mergeOneNetworkAttachment(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if k == "aliases" {
			aliases := mergeSimpleList(asStringList(out["aliases"]), asStringList(v))
			sort.Strings(aliases)
			out["aliases"] = aliases
			continue
		}
		out[k] = v
	}
	return out
}

// mergeLogging replaces base options wholesale if the driver differs;
// otherwise key-wise merges options.
func mergeLogging(baseVal, overrideVal any) map[string]any {
	base, _ := baseVal.(map[string]any)
	override, _ := overrideVal.(map[string]any)
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	out := map[string]any{}
	baseDriver, _ := base["driver"].(string)
	overrideDriver, hasOverrideDriver := override["driver"].(string)

	driver := baseDriver
	if hasOverrideDriver {
		driver = overrideDriver
	}
	out["driver"] = driver

	if hasOverrideDriver && overrideDriver != baseDriver && baseDriver != "" {
		// drivers differ: base options discarded.
		if opts, ok := override["options"]; ok {
			out["options"] = opts
		}
		return out
	}

	out["options"] = mergeMapping(base["options"], override["options"])
	return out
}

// mergeDeploy recursively merges the deploy sub-tree per §4.1.
func mergeDeploy(baseVal, overrideVal any) map[string]any {
	base, _ := baseVal.(map[string]any)
	override, _ := overrideVal.(map[string]any)
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		switch k {
		case "labels":
			out[k] = mergeMapping(out["labels"], v)
		case "placement":
			out[k] = mergePlacement(out["placement"], v)
		case "resources":
			out[k] = mergeMapping(out["resources"], v)
		case "restart_policy":
			out[k] = mergeMapping(out["restart_policy"], v)
		default:
			out[k] = v
		}
	}
	return out
}

func mergePlacement(baseVal, overrideVal any) map[string]any {
	base, _ := baseVal.(map[string]any)
	override, _ := overrideVal.(map[string]any)

	out := map[string]any{
		"constraints": mergeSimpleList(asStringList(base["constraints"]), asStringList(override["constraints"])),
		"preferences": mergeSimpleList(asStringList(base["preferences"]), asStringList(override["preferences"])),
	}
	return out
}

// mergeHealthcheck key-wise merges; disable:true on either side collapses
// the result to {disable: true} only.
func mergeHealthcheck(baseVal, overrideVal any) map[string]any {
	base, _ := baseVal.(map[string]any)
	override, _ := overrideVal.(map[string]any)

	if truthy(base["disable"]) || truthy(override["disable"]) {
		return map[string]any{"disable": true}
	}

	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// mergeResourceRefList merges secrets/configs references by source name,
// the same replace-wholesale-on-key-match shape as volume merge-by-target,
// normalizing the short string form (`- mysecret`) to {source: mysecret}.
func mergeResourceRefList(base, override []map[string]any) []map[string]any {
	return mergeByKey(base, override, func(m map[string]any) string {
		return fmt.Sprintf("%v", m["source"])
	})
}

func normalizeResourceRefList(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		switch val := item.(type) {
		case string:
			out = append(out, map[string]any{"source": val})
		case map[string]any:
			out = append(out, val)
		}
	}
	return out
}
