package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// SegmentRequestTimeout bounds a single delivery.
const SegmentRequestTimeout = 5 * time.Second

// ErrNoWriteKey is returned by HTTPTransport when no write key is configured.
var ErrNoWriteKey = errors.New("telemetry write key not set")

// Transport delivers one event. Implementations must honour ctx.
type Transport interface {
	Send(ctx context.Context, event Event) error
}

// TransportError reports a non-success answer from the collector.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("segment request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("segment request failed with status %d", e.StatusCode)
}

// HTTPTransport posts events to the Segment track API.
type HTTPTransport struct {
	// Endpoint defaults to SegmentEndpoint.
	Endpoint string
	WriteKey string

	client *http.Client
}

// NewHTTPTransport returns a transport with its own connection pool. Proxy
// settings are read from the environment when the transport is created.
func NewHTTPTransport(writeKey string) *HTTPTransport {
	proxy := httpproxy.FromEnvironment().ProxyFunc()
	rt := http.DefaultTransport.(*http.Transport).Clone()
	rt.Proxy = func(req *http.Request) (*url.URL, error) {
		return proxy(req.URL)
	}
	return &HTTPTransport{
		Endpoint: SegmentEndpoint,
		WriteKey: writeKey,
		client: &http.Client{
			Transport: rt,
			Timeout:   SegmentRequestTimeout,
		},
	}
}

// Send posts event. Any answer other than 200 with {"success": true} is an error.
func (t *HTTPTransport) Send(ctx context.Context, event Event) error {
	if t.WriteKey == "" {
		return ErrNoWriteKey
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = SegmentEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range SegmentRequestHeader(t.WriteKey) {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("segment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode segment response: %w", err)
	}
	if !result.Success {
		return &TransportError{StatusCode: resp.StatusCode, Message: "collector did not report success"}
	}
	return nil
}

// CloseIdleConnections releases pooled connections.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

// DebugTransport prints events instead of sending them.
type DebugTransport struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDebugTransport prints to out.
func NewDebugTransport(out io.Writer) *DebugTransport {
	return &DebugTransport{out: out}
}

func (t *DebugTransport) Send(_ context.Context, event Event) error {
	data, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err = fmt.Fprintf(t.out, "Telemetry Event: %s\n", data)
	return err
}
