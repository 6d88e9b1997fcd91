package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"rasa/internal/config"
)

// setupTestEnv points the global config at a temp file and routes telemetry
// to the debug printer so no test reaches the network.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	logger = zap.NewNop()

	configPath := filepath.Join(t.TempDir(), "global.yml")
	t.Setenv(config.EnvGlobalConfigPath, configPath)
	t.Setenv(config.EnvTelemetryDebug, "true")
	for _, name := range []string{config.EnvTelemetryEnabled, config.EnvExceptionWriteKey} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return configPath
}

// runCLI executes a fresh command tree and returns everything printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var err error
	output := captureOutput(t, func() {
		err = execute(newRootCmd(), args)
	})
	return output, err
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		_, _ = io.Copy(&buf, rErr)
		done <- buf.String()
	}()

	fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = origOut
	os.Stderr = origErr
	return <-done
}
