package telemetry

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Track reports an event in the background. It is a no-op when telemetry is
// disabled and never returns or panics on delivery failure. properties is
// copied before metrics_id is added.
func (c *Client) Track(event string, properties, contextFields map[string]interface{}) {
	c.track(event, properties, contextFields, nil)
}

// track schedules the delivery after `after` is closed (if non-nil). The
// returned channel is closed once the event is delivered or dropped.
func (c *Client) track(event string, properties, contextFields map[string]interface{}, after <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})

	if !c.Enabled() {
		close(done)
		return done
	}
	id := c.TelemetryID()
	if id == "" {
		c.logger.Debug("Will not report telemetry events as no ID was found.")
		close(done)
		return done
	}

	props := make(map[string]interface{}, len(properties)+1)
	for k, v := range properties {
		props[k] = v
	}
	props[MetricsIDProperty] = id

	if !c.inflight.TryAcquire(1) {
		c.logger.Debug("Dropping telemetry event, too many deliveries in flight", zap.String("event", event))
		close(done)
		return done
	}

	contextFields = c.WithDefaultContextFields(contextFields)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.inflight.Release(1)
		defer close(done)

		if after != nil {
			<-after
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		c.SendEvent(ctx, id, event, props, contextFields)
	}()
	return done
}

// SendEvent builds the payload and hands it to the transport, discarding any
// failure, including a panicking transport.
func (c *Client) SendEvent(ctx context.Context, userID, event string, properties, contextFields map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("Skipping telemetry reporting", zap.String("event", event), zap.Error(fmt.Errorf("panic: %v", r)))
		}
	}()

	payload := SegmentRequestPayload(userID, event, properties, contextFields)
	if err := c.transport.Send(ctx, payload); err != nil {
		c.logger.Debug("Skipping telemetry reporting", zap.String("event", event), zap.Error(err))
	}
}

// Flush waits for scheduled deliveries. It returns ctx.Err() if ctx ends first;
// the remaining deliveries keep running until their own timeout.
func (c *Client) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes and releases idle connections of the HTTP transport.
func (c *Client) Close(ctx context.Context) error {
	err := c.Flush(ctx)
	if t, ok := c.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
	return err
}

// TrackTelemetryDisabled reports that the user turned telemetry off. Call it
// before persisting the flag, otherwise the event is suppressed.
func (c *Client) TrackTelemetryDisabled() {
	c.Track(TelemetryDisabledEvent, nil, nil)
}
