package merge

import (
	"fmt"

	"evalgo.org/strata/errcat"
)

// versionOrder totally orders recognized config versions (§4.1); index
// determines precedence for "minimum version" gating.
var versionOrder = map[string]int{
	"1":   0,
	"2":   1,
	"2.0": 1,
	"2.1": 2,
	"2.2": 3,
	"2.3": 4,
	"2.4": 5,
	"3":   6,
	"3.0": 6,
	"3.1": 7,
	"3.2": 8,
	"3.3": 9,
	"3.4": 10,
	"3.5": 11,
	"3.6": 12,
	"3.7": 13,
	"3.8": 14,
	"3.9": 15,
}

// minVersionByField gates fields that only make sense at or above a given
// schema version (a representative, non-exhaustive subset: the v2+
// dependency-graph semantics §9 mandates universally are handled separately
// in the loader's net: translation, not here).
var minVersionByField = map[string]string{
	"profiles":   "3.3",
	"deploy":     "3",
	"network_mode_service": "2",
}

// CheckVersion validates that version is recognized and, for each field
// present in raw, that it is permitted at or above its minimum version.
func CheckVersion(file, service, version string, raw map[string]any) error {
	order, ok := versionOrder[version]
	if !ok {
		return &errcat.ConfigurationError{
			File: file,
			Path: "version",
			Cause: fmt.Errorf("unrecognized config version %q", version),
		}
	}

	for field, minVersion := range minVersionByField {
		if _, present := raw[field]; !present {
			continue
		}
		minOrder, known := versionOrder[minVersion]
		if !known {
			continue
		}
		if order < minOrder {
			return &errcat.ConfigurationError{
				File: file,
				Path: fmt.Sprintf("services.%s.%s", service, field),
				Cause: fmt.Errorf("field %q requires config version >= %s, got %s", field, minVersion, version),
			}
		}
	}
	return nil
}

// AtLeast reports whether version is ordered at or above floor.
func AtLeast(version, floor string) bool {
	v, ok1 := versionOrder[version]
	f, ok2 := versionOrder[floor]
	return ok1 && ok2 && v >= f
}
