package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"
	"strings"

	"rasa/internal/version"
)

// Context field names every event carries.
const (
	ContextRuntimeField = "go"
	ContextProductField = "rasa_open_source"
)

// DefaultContextFields describes the platform the process runs on. Nothing in
// it identifies the user: the working directory is only reported as a hash.
func DefaultContextFields(inCI bool) map[string]interface{} {
	return map[string]interface{}{
		"os": map[string]interface{}{
			"name":    runtime.GOOS,
			"version": osRelease(),
		},
		"ci":                inCI,
		"directory":         hashDirectoryPath(workingDirectory()),
		ContextRuntimeField: version.GoVersion(),
		ContextProductField: version.Version,
		"cpu":               runtime.NumCPU(),
		"docker":            isDocker(),
	}
}

// WithDefaultContextFields merges overrides over the client's default fields.
// The defaults are never modified.
func (c *Client) WithDefaultContextFields(overrides map[string]interface{}) map[string]interface{} {
	c.contextOnce.Do(func() {
		c.defaultContext = DefaultContextFields(c.settings.InCI)
	})

	merged := make(map[string]interface{}, len(c.defaultContext)+len(overrides))
	for k, v := range c.defaultContext {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func workingDirectory() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return cwd
}

func hashDirectoryPath(path string) string {
	if path == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

// osRelease is the kernel release on Linux and empty elsewhere.
func osRelease() string {
	data, err := os.ReadFile("/proc/sys/kernel/osrelease")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func isDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	data, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "docker")
}
