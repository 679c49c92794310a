package version

import (
	"runtime"
	"runtime/debug"
)

var version = "dev"

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	GoVersion string `json:"go_version"`
}

// Version returns the build string embedded via -ldflags when available.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
		return info.Main.Version
	}
	return version
}

// Build reports the version together with the VCS revision stamped by the toolchain.
func Build() Info {
	out := Info{Version: Version(), GoVersion: runtime.Version()}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 12 {
				out.Revision = s.Value[:12]
			}
		}
	}
	return out
}

// Set assigns the exported version when ldflags are not provided (e.g. local dev).
func Set(v string) {
	if v != "" {
		version = v
	}
}
