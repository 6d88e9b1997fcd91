package telemetry

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rasa/internal/config"
)

type recordingTransport struct {
	mu     sync.Mutex
	events []Event
	err    error
	// delays holds a per-event-name delay applied before recording.
	delays map[string]time.Duration
}

func (r *recordingTransport) Send(ctx context.Context, event Event) error {
	if d := r.delays[event.Event]; d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingTransport) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type panickingTransport struct{}

func (panickingTransport) Send(context.Context, Event) error {
	panic("transport exploded")
}

// blockingTransport holds every delivery until release is closed or ctx ends.
type blockingTransport struct {
	release chan struct{}
	mu      sync.Mutex
	sent    int
}

func (b *blockingTransport) Send(ctx context.Context, _ Event) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.mu.Lock()
	b.sent++
	b.mu.Unlock()
	return nil
}

func boolPtr(b bool) *bool { return &b }

func newTestClient(t *testing.T, settings config.Settings, transport Transport) (*Client, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	c := New(Options{
		Store:     config.NewStore(filepath.Join(t.TempDir(), "global.yml")),
		Settings:  settings,
		Transport: transport,
		Out:       out,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	})
	return c, out
}

func flush(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
