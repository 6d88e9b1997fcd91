package telemetry

import (
	_ "embed"
	"encoding/json"
	"sync"

	"rasa/internal/config"
)

// keys.json is replaced with the production keys when a release is built.
//
//go:embed keys.json
var packagedKeysJSON []byte

type packagedKeys struct {
	Segment string `json:"segment"`
	Sentry  string `json:"sentry"`
}

var (
	keysOnce sync.Once
	keys     packagedKeys
)

func loadPackagedKeys() packagedKeys {
	keysOnce.Do(func() {
		// A malformed file leaves both keys empty, which disables delivery.
		_ = json.Unmarshal(packagedKeysJSON, &keys)
	})
	return keys
}

// TelemetryWriteKey returns the analytics write key. The environment always
// wins over the packaged key; "" means no key is available.
func TelemetryWriteKey(settings config.Settings) string {
	if settings.TelemetryWriteKey != "" {
		return settings.TelemetryWriteKey
	}
	return loadPackagedKeys().Segment
}

// ExceptionWriteKey returns the crash reporting DSN, environment first.
func ExceptionWriteKey(settings config.Settings) string {
	if settings.ExceptionWriteKey != "" {
		return settings.ExceptionWriteKey
	}
	return loadPackagedKeys().Sentry
}
