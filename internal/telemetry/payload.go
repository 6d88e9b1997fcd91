package telemetry

import "encoding/base64"

// SegmentEndpoint is the analytics collector all events are posted to.
const SegmentEndpoint = "https://api.segment.io/v1/track"

// MetricsIDProperty is injected into the properties of every tracked event.
const MetricsIDProperty = "metrics_id"

// Event names.
const (
	TrainingStartedEvent   = "Training Started"
	TrainingCompletedEvent = "Training Completed"
	TelemetryDisabledEvent = "Telemetry Disabled"
)

// Event is the JSON body of a Segment track call.
type Event struct {
	UserID     string                 `json:"userId"`
	Event      string                 `json:"event"`
	Properties map[string]interface{} `json:"properties"`
	Context    map[string]interface{} `json:"context"`
}

// SegmentRequestHeader builds the headers authenticating with writeKey: basic
// auth with the key as user name and an empty password.
func SegmentRequestHeader(writeKey string) map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(writeKey+":")),
	}
}

// SegmentRequestPayload composes an Event. It does not copy the maps.
func SegmentRequestPayload(userID, event string, properties, context map[string]interface{}) Event {
	return Event{
		UserID:     userID,
		Event:      event,
		Properties: properties,
		Context:    context,
	}
}
