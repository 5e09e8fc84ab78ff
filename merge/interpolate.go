package merge

import "strings"

// InterpolationWarning records an unresolved variable reference with no
// default, which interpolates to empty but is reported rather than silent.
type InterpolationWarning struct {
	Variable string
}

// Interpolate substitutes `${VAR}` / `$VAR` references in s against env,
// supporting `${VAR:-default}` (use default if unset or empty) and
// `${VAR-default}` (use default only if unset). `$$` escapes to a literal
// `$`. Unresolved variables without a default become empty and produce a
// warning (§4.1).
func Interpolate(s string, env map[string]string) (string, []InterpolationWarning) {
	var out strings.Builder
	var warnings []InterpolationWarning

	i := 0
	for i < len(s) {
		c := s[i]
		if c != '$' {
			out.WriteByte(c)
			i++
			continue
		}

		// lone trailing '$'
		if i+1 >= len(s) {
			out.WriteByte('$')
			i++
			continue
		}

		next := s[i+1]
		switch {
		case next == '$':
			out.WriteByte('$')
			i += 2

		case next == '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				// unterminated brace: treat literally.
				out.WriteString(s[i:])
				i = len(s)
				continue
			}
			expr := s[i+2 : i+2+end]
			value, warn := resolveVarExpr(expr, env)
			out.WriteString(value)
			if warn != nil {
				warnings = append(warnings, *warn)
			}
			i = i + 2 + end + 1

		case isIdentStart(next):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			name := s[i+1 : j]
			value, ok := env[name]
			if !ok {
				warnings = append(warnings, InterpolationWarning{Variable: name})
			}
			out.WriteString(value)
			i = j

		default:
			out.WriteByte('$')
			i++
		}
	}

	return out.String(), warnings
}

// resolveVarExpr handles the body of a `${...}` expression: a bare name, or
// name with `:-default` / `-default`.
func resolveVarExpr(expr string, env map[string]string) (string, *InterpolationWarning) {
	if idx := strings.Index(expr, ":-"); idx >= 0 {
		name, def := expr[:idx], expr[idx+2:]
		if v, ok := env[name]; ok && v != "" {
			return v, nil
		}
		return def, nil
	}
	if idx := strings.Index(expr, "-"); idx >= 0 {
		name, def := expr[:idx], expr[idx+1:]
		if v, ok := env[name]; ok {
			return v, nil
		}
		return def, nil
	}

	v, ok := env[expr]
	if !ok {
		return "", &InterpolationWarning{Variable: expr}
	}
	return v, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// interpolateTree recursively applies Interpolate to every string leaf of a
// decoded-YAML value tree (maps, slices, scalars), collecting warnings
// across the whole tree. Map keys are left untouched — only values.
func interpolateTree(v any, env map[string]string) (any, []InterpolationWarning) {
	var warnings []InterpolationWarning

	switch val := v.(type) {
	case string:
		out, w := Interpolate(val, env)
		warnings = append(warnings, w...)
		return out, warnings

	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			iv, w := interpolateTree(item, env)
			out[k] = iv
			warnings = append(warnings, w...)
		}
		return out, warnings

	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			iv, w := interpolateTree(item, env)
			out[i] = iv
			warnings = append(warnings, w...)
		}
		return out, warnings

	default:
		return v, nil
	}
}
