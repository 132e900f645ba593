package config

import (
	"fmt"
	"regexp"
)

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// ExpandEnv substitutes ${NAME} and $NAME references in value. References
// the lookup cannot resolve are left in place verbatim.
func ExpandEnv(value string, lookup EnvLookup) string {
	if lookup == nil {
		lookup = DefaultEnvLookup
	}
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		if resolved, ok := lookup(name); ok {
			return resolved
		}
		return match
	})
}

// ExpandTree applies ExpandEnv to every string in a decoded YAML tree,
// descending into mappings and sequences. Mapping keys are normalised to
// strings; other scalars are returned unchanged.
func ExpandTree(value any, lookup EnvLookup) any {
	switch v := value.(type) {
	case string:
		return ExpandEnv(v, lookup)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = ExpandTree(item, lookup)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = ExpandTree(item, lookup)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ExpandTree(item, lookup)
		}
		return out
	default:
		return value
	}
}
