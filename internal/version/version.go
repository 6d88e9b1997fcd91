// Package version holds the product version and the runtime facts printed by
// `rasa --version` and attached to telemetry context.
package version

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version is the product version. Overridden at release time with
// -ldflags "-X rasa/internal/version.Version=...".
var Version = "2.0.0"

// MinimumCompatibleVersion is the oldest model version this build can load.
var MinimumCompatibleVersion = "2.0.0"

// Info describes the running binary.
type Info struct {
	Version                  string
	MinimumCompatibleVersion string
	GoVersion                string
	OS                       string
	Arch                     string
	ExecutablePath           string
}

// Current collects Info for this process.
func Current() Info {
	exe, err := os.Executable()
	if err != nil {
		exe = "unknown"
	}
	return Info{
		Version:                  Version,
		MinimumCompatibleVersion: MinimumCompatibleVersion,
		GoVersion:                GoVersion(),
		OS:                       runtime.GOOS,
		Arch:                     runtime.GOARCH,
		ExecutablePath:           exe,
	}
}

// GoVersion returns the runtime version without the "go" prefix, e.g. "1.24.0".
func GoVersion() string {
	return strings.TrimPrefix(runtime.Version(), "go")
}

// String renders the multi-line block used by --version.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rasa Version               : %s\n", i.Version)
	fmt.Fprintf(&b, "Minimum Compatible Version : %s\n", i.MinimumCompatibleVersion)
	fmt.Fprintf(&b, "Go Version                 : %s\n", i.GoVersion)
	fmt.Fprintf(&b, "Operating System           : %s/%s\n", i.OS, i.Arch)
	fmt.Fprintf(&b, "Executable Path            : %s\n", i.ExecutablePath)
	return b.String()
}
