// Package telemetry reports anonymous usage events.
//
// Events are delivered in the background and never block or fail the caller:
// every error inside the package is logged at debug level and dropped.
// Reporting is controlled by the persisted flag in the global config file and
// can be forced on or off for a single process with RASA_TELEMETRY_ENABLED.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"rasa/internal/config"
)

// DefaultMaxInFlight caps concurrent deliveries; events beyond it are dropped.
const DefaultMaxInFlight = 16

// State of the lifecycle controller.
type State int

const (
	StateUninitialized State = iota
	StateEnabled
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	default:
		return "uninitialized"
	}
}

// Options configure a Client.
type Options struct {
	// Store holds the persisted flag and identifier. Defaults to Settings.Store().
	Store *config.Store
	// Settings are the resolved environment overrides.
	Settings config.Settings
	// Transport delivers events. Defaults to a DebugTransport on Out in debug
	// mode and to an HTTPTransport otherwise.
	Transport Transport
	// Logger receives debug diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
	// Out receives the first-run notice and debug events. Defaults to stdout.
	Out io.Writer
	// MaxInFlight defaults to DefaultMaxInFlight.
	MaxInFlight int64
	// Timeout bounds each delivery. Defaults to SegmentRequestTimeout.
	Timeout time.Duration
}

// Client decides whether to report and delivers events.
type Client struct {
	store     *config.Store
	settings  config.Settings
	transport Transport
	logger    *zap.Logger
	out       io.Writer
	timeout   time.Duration
	now       func() time.Time

	inflight *semaphore.Weighted
	wg       sync.WaitGroup

	mu    sync.Mutex
	state State

	contextOnce    sync.Once
	defaultContext map[string]interface{}
}

// New builds a Client. It does not touch the config file; call Initialize.
func New(opts Options) *Client {
	c := &Client{
		store:     opts.Store,
		settings:  opts.Settings,
		transport: opts.Transport,
		logger:    opts.Logger,
		out:       opts.Out,
		timeout:   opts.Timeout,
		now:       time.Now,
	}
	if c.store == nil {
		c.store = opts.Settings.Store()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.timeout <= 0 {
		c.timeout = SegmentRequestTimeout
	}
	if c.transport == nil {
		if opts.Settings.TelemetryDebug {
			c.transport = NewDebugTransport(c.out)
		} else {
			c.transport = NewHTTPTransport(TelemetryWriteKey(opts.Settings))
		}
	}
	maxInFlight := opts.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	c.inflight = semaphore.NewWeighted(maxInFlight)
	return c
}

// Initialize resolves whether telemetry is enabled: the environment override
// wins and is never persisted, then the stored flag. On first run a default
// configuration (enabled, fresh identifier) is written and the notice printed.
func (c *Client) Initialize() bool {
	enabled := c.enabledInConfiguration()
	if override := c.settings.TelemetryEnabled; override != nil {
		enabled = *override
	}
	c.setState(enabled)
	return enabled
}

// State returns the controller state after the last Initialize or Toggle.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enabled {
		c.state = StateEnabled
	} else {
		c.state = StateDisabled
	}
}

func (c *Client) enabledInConfiguration() bool {
	cfg, err := c.store.ReadTelemetry()
	if err == nil {
		return cfg.Enabled
	}
	if !errors.Is(err, config.ErrNoTelemetryConfig) {
		c.logger.Debug("Could not read telemetry settings, using defaults", zap.Error(err))
	}
	return c.writeDefaultConfiguration()
}

func (c *Client) writeDefaultConfiguration() bool {
	cfg := config.TelemetryConfig{
		Enabled: true,
		UserID:  newID(),
		Date:    c.now().UTC(),
	}
	if err := c.store.WriteTelemetry(cfg); err != nil {
		c.logger.Debug("Could not write default telemetry settings", zap.Error(err))
		return false
	}
	// Nobody asked: the user decided through the environment.
	if c.settings.TelemetryEnabled == nil {
		PrintReportingInfo(c.out)
	}
	return true
}

// Enabled resolves the flag for a single decision without writing anything.
func (c *Client) Enabled() bool {
	if override := c.settings.TelemetryEnabled; override != nil {
		return *override
	}
	cfg, err := c.store.ReadTelemetry()
	if err != nil {
		return false
	}
	return cfg.Enabled
}

// Toggle persists the flag, creating the configuration if needed. Events
// already handed to the transport are not affected.
func (c *Client) Toggle(enable bool) error {
	cfg, err := c.store.ReadTelemetry()
	if err != nil {
		cfg = config.TelemetryConfig{UserID: newID(), Date: c.now().UTC()}
	}
	cfg.Enabled = enable
	if err := c.store.WriteTelemetry(cfg); err != nil {
		return fmt.Errorf("failed to toggle telemetry reporting: %w", err)
	}
	if c.settings.TelemetryEnabled == nil {
		c.setState(enable)
	}
	return nil
}

// TelemetryID returns the anonymous identifier, or "" if none is stored.
func (c *Client) TelemetryID() string {
	cfg, err := c.store.ReadTelemetry()
	if err != nil {
		return ""
	}
	return cfg.UserID
}

// Settings returns the resolved environment settings.
func (c *Client) Settings() config.Settings {
	return c.settings
}

// newID returns a random identifier as 32 hex characters.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type contextKey struct{}

// NewContext returns a context carrying the client.
func NewContext(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the client stored by NewContext, or nil.
func FromContext(ctx context.Context) *Client {
	c, _ := ctx.Value(contextKey{}).(*Client)
	return c
}
