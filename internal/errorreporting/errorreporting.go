// Package errorreporting sends crash reports with local paths stripped.
package errorreporting

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// UnknownServerName is reported when no telemetry identifier exists.
const UnknownServerName = "UNKNOWN"

// DefaultFlushTimeout bounds Flush when no timeout is given.
const DefaultFlushTimeout = 2 * time.Second

// Integrations left out of the default set. ContextifyFrames reads local
// source files into the report.
var droppedIntegrations = map[string]bool{
	"ContextifyFrames": true,
	"Modules":          true,
}

// Options configure Init.
type Options struct {
	DSN         string
	TelemetryID string
	// Version is the product version; reports carry release "rasa-<Version>".
	Version     string
	Environment string
	Logger      *zap.Logger
}

// Init configures the process-wide reporter. Without a DSN reporting stays
// off and Init returns false.
func Init(opts Options) (bool, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DSN == "" {
		logger.Debug("Error reporting disabled, no key configured")
		return false, nil
	}

	if err := sentry.Init(clientOptions(opts)); err != nil {
		return false, fmt.Errorf("failed to initialize error reporting: %w", err)
	}
	logger.Debug("Error reporting initialized", zap.String("server_name", serverName(opts.TelemetryID)))
	return true, nil
}

func clientOptions(opts Options) sentry.ClientOptions {
	environment := opts.Environment
	if environment == "" {
		environment = "production"
	}
	return sentry.ClientOptions{
		Dsn:              opts.DSN,
		Release:          "rasa-" + opts.Version,
		Environment:      environment,
		ServerName:       serverName(opts.TelemetryID),
		SendDefaultPII:   false,
		AttachStacktrace: true,
		BeforeSend:       beforeSend,
		Integrations:     filterIntegrations,
	}
}

func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	return StripSensitiveData(event)
}

func filterIntegrations(defaults []sentry.Integration) []sentry.Integration {
	kept := make([]sentry.Integration, 0, len(defaults))
	for _, integration := range defaults {
		if droppedIntegrations[integration.Name()] {
			continue
		}
		kept = append(kept, integration)
	}
	return kept
}

func serverName(telemetryID string) string {
	if telemetryID == "" {
		return UnknownServerName
	}
	return telemetryID
}

// CaptureError reports err. It does nothing if Init was not successful.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CapturePanic reports a recovered panic value and waits for delivery.
func CapturePanic(r interface{}, timeout time.Duration) {
	if r == nil {
		return
	}
	sentry.CurrentHub().Recover(r)
	Flush(timeout)
}

// Flush waits up to timeout for queued reports.
func Flush(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultFlushTimeout
	}
	return sentry.Flush(timeout)
}
