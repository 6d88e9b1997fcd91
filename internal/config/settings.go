package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Environment variables understood by the telemetry subsystem.
const (
	EnvTelemetryEnabled  = "RASA_TELEMETRY_ENABLED"
	EnvTelemetryDebug    = "RASA_TELEMETRY_DEBUG"
	EnvTelemetryWriteKey = "RASA_TELEMETRY_WRITE_KEY"
	EnvExceptionWriteKey = "RASA_EXCEPTION_WRITE_KEY"
	EnvGlobalConfigPath  = "RASA_GLOBAL_CONFIG_PATH"
)

// CIEnvironmentTells lists variables whose presence means we run inside a CI
// system. The value is irrelevant.
var CIEnvironmentTells = []string{
	"bamboo.buildKey",
	"BUILD_ID",
	"BUILD_NUMBER",
	"BUILDKITE",
	"CI",
	"CIRCLECI",
	"CONTINUOUS_INTEGRATION",
	"GITHUB_ACTIONS",
	"HUDSON_URL",
	"JENKINS_URL",
	"TEAMCITY_VERSION",
	"TRAVIS",
	"CODEBUILD_BUILD_ARN",
	"CODEBUILD_BUILD_ID",
	"CODEBUILD_BATCH_BUILD_IDENTIFIER",
}

// Settings are the environment overrides, resolved once at startup.
// Precedence for the enabled flag: TelemetryEnabled (when non-nil) > persisted
// value > first-run default.
type Settings struct {
	// TelemetryEnabled is nil when RASA_TELEMETRY_ENABLED is unset. Set but
	// empty counts as false.
	TelemetryEnabled *bool
	// TelemetryDebug routes events to a local printer instead of the network.
	TelemetryDebug bool
	// TelemetryWriteKey overrides the packaged analytics write key.
	TelemetryWriteKey string
	// ExceptionWriteKey overrides the packaged crash reporting DSN.
	ExceptionWriteKey string
	// GlobalConfigPath overrides DefaultGlobalConfigPath.
	GlobalConfigPath string
	// InCI is true when any of CIEnvironmentTells is present.
	InCI bool
}

// LoadSettings resolves Settings from the process environment.
func LoadSettings() Settings {
	v := viper.New()
	_ = v.BindEnv("telemetry_debug", EnvTelemetryDebug)
	_ = v.BindEnv("telemetry_write_key", EnvTelemetryWriteKey)
	_ = v.BindEnv("exception_write_key", EnvExceptionWriteKey)
	_ = v.BindEnv("global_config_path", EnvGlobalConfigPath)

	s := Settings{
		TelemetryDebug:    isTrue(v.GetString("telemetry_debug")),
		TelemetryWriteKey: v.GetString("telemetry_write_key"),
		ExceptionWriteKey: v.GetString("exception_write_key"),
		GlobalConfigPath:  v.GetString("global_config_path"),
		InCI:              InContinuousIntegration(),
	}
	// Presence forces the decision, an empty value included; viper reports
	// empty variables as unset.
	if value, ok := os.LookupEnv(EnvTelemetryEnabled); ok {
		enabled := isTrue(value)
		s.TelemetryEnabled = &enabled
	}
	return s
}

// Store returns the global config store these settings point at.
func (s Settings) Store() *Store {
	if s.GlobalConfigPath != "" {
		return NewStore(s.GlobalConfigPath)
	}
	return DefaultStore()
}

// InContinuousIntegration reports whether any CI indicator variable is set.
func InContinuousIntegration() bool {
	for _, name := range CIEnvironmentTells {
		if _, ok := os.LookupEnv(name); ok {
			return true
		}
	}
	return false
}

// isTrue matches the historical parsing: only "true", case-insensitive.
func isTrue(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}
