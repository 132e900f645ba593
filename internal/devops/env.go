package devops

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// MergeEnv folds KEY=VALUE layers into one environment list. Later layers
// win; the order of first appearance is kept.
func MergeEnv(layers ...[]string) []string {
	values := make(map[string]string)
	var order []string
	for _, layer := range layers {
		for _, entry := range layer {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || key == "" {
				continue
			}
			if _, seen := values[key]; !seen {
				order = append(order, key)
			}
			values[key] = value
		}
	}
	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, key+"="+values[key])
	}
	return out
}

// EnvValue returns the last value of key in env.
func EnvValue(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):], true
		}
	}
	return "", false
}

// DotenvLayer reads a dotenv file as an env layer. Keys already present in
// existing are skipped so the caller's environment keeps precedence. A
// missing file yields an empty layer.
func DotenvLayer(path string, existing []string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		if _, ok := EnvValue(existing, key); ok {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	layer := make([]string, 0, len(keys))
	for _, key := range keys {
		layer = append(layer, key+"="+values[key])
	}
	return layer, nil
}

// FlagLayer maps boolean switches to NAME=1 entries for the set ones.
func FlagLayer(flags map[string]bool) []string {
	keys := make([]string, 0, len(flags))
	for key, on := range flags {
		if on {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	layer := make([]string, 0, len(keys))
	for _, key := range keys {
		layer = append(layer, key+"=1")
	}
	return layer
}
