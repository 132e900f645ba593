package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

var (
	versionOnce   sync.Once
	cachedVersion string
)

// appVersion returns the launcher version: the linked-in value, then
// AURA_VERSION, then Go build information, then a development fallback.
func appVersion() string {
	versionOnce.Do(func() {
		cachedVersion = detectVersion()
	})
	return cachedVersion
}

func detectVersion() string {
	if v := strings.TrimSpace(version); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("AURA_VERSION")); v != "" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				return fmt.Sprintf("dev-%s", setting.Value[:7])
			}
		}
	}
	return "development"
}
