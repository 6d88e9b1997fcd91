package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestCurrent(t *testing.T) {
	info := Current()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", info.OS, runtime.GOOS)
	}
	if strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("GoVersion should not carry the go prefix: %q", info.GoVersion)
	}
}

func TestInfoString(t *testing.T) {
	out := Info{
		Version:                  "9.9.9",
		MinimumCompatibleVersion: "9.0.0",
		GoVersion:                "1.24.0",
		OS:                       "linux",
		Arch:                     "amd64",
		ExecutablePath:           "/usr/local/bin/rasa",
	}.String()

	for _, want := range []string{"Rasa Version", "9.9.9", "Go Version", "Operating System", "linux/amd64", "Executable Path"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}
