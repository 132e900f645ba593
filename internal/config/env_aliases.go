package config

import "os"

// EnvLookup resolves environment variables. Tests inject map-backed lookups.
type EnvLookup func(string) (string, bool)

// DefaultEnvLookup reads from the process environment.
func DefaultEnvLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// AliasEnvLookup wraps an EnvLookup with additional alias keys.
func AliasEnvLookup(base EnvLookup, aliases map[string][]string) EnvLookup {
	return func(key string) (string, bool) {
		if base == nil {
			base = DefaultEnvLookup
		}
		if value, ok := base(key); ok && value != "" {
			return value, true
		}
		for _, alias := range aliases[key] {
			if value, ok := base(alias); ok && value != "" {
				return value, true
			}
		}
		return base(key)
	}
}

// DefaultEnvAliases returns the legacy environment names still honoured.
func DefaultEnvAliases() map[string][]string {
	aliases := map[string][]string{
		"DASHSCOPE_API_KEY": {"QWEN_TOKEN"},
		EnvConfigDir:        {"AURA_CONFIG_PATH"},
	}

	copy := make(map[string][]string, len(aliases))
	for key, list := range aliases {
		copy[key] = append([]string(nil), list...)
	}
	return copy
}

// DefaultEnvLookupWithAliases composes DefaultEnvLookup with DefaultEnvAliases.
func DefaultEnvLookupWithAliases() EnvLookup {
	return AliasEnvLookup(DefaultEnvLookup, DefaultEnvAliases())
}
