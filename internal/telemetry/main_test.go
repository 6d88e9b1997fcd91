package telemetry

import (
	"testing"

	"go.uber.org/goleak"
)

// Every delivery goroutine must be gone once the tests flushed their clients.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
