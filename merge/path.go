package merge

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath resolves a possibly-relative path (build.context, a host-bind
// volume source, an env_file entry) against fileDir, the directory of the
// config file that declared it, expanding a leading `~` to the invoking
// user's home directory first (§4.1).
func ResolvePath(fileDir, raw string) string {
	p := expandHome(raw)
	if filepath.IsAbs(p) || isWindowsDriveQualified(p) {
		return toSlash(p)
	}
	return toSlash(filepath.Join(fileDir, p))
}

func expandHome(p string) string {
	if p == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// isWindowsDriveQualified reports whether p looks like "C:\..." or "C:/...".
func isWindowsDriveQualified(p string) bool {
	if len(p) < 3 {
		return false
	}
	drive := p[0]
	isLetter := (drive >= 'A' && drive <= 'Z') || (drive >= 'a' && drive <= 'z')
	return isLetter && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

// toSlash rewrites a drive-qualified Windows path to forward-slash form
// before handing it to the engine, which always expects forward slashes
// (§4.1).
func toSlash(p string) string {
	if isWindowsDriveQualified(p) {
		return strings.ReplaceAll(p, "\\", "/")
	}
	return filepath.ToSlash(p)
}
