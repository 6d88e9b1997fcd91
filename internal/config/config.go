// Package config owns the per-user global configuration file and the
// environment settings that override it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// telemetrySection is the top-level key holding telemetry settings in global.yml.
const telemetrySection = "metrics"

// ErrNoTelemetryConfig is returned when the global config file or its
// telemetry section does not exist yet.
var ErrNoTelemetryConfig = errors.New("no telemetry configuration stored")

// TelemetryConfig is the persisted telemetry state.
type TelemetryConfig struct {
	Enabled bool      `yaml:"enabled"`
	UserID  string    `yaml:"rasa_user_id"`
	Date    time.Time `yaml:"date,omitempty"`
}

type globalFile struct {
	Metrics *TelemetryConfig `yaml:"metrics"`
}

// Store reads and writes the global user config file. The zero value is not
// usable; create one with NewStore or DefaultStore.
type Store struct {
	path string
}

// NewStore returns a store backed by the YAML file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore returns the store at DefaultGlobalConfigPath.
func DefaultStore() *Store {
	return NewStore(DefaultGlobalConfigPath())
}

// DefaultGlobalConfigPath returns ~/.config/rasa/global.yml.
func DefaultGlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "rasa", "global.yml")
	}
	return filepath.Join(home, ".config", "rasa", "global.yml")
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// ReadTelemetry loads the telemetry section. A missing file or section yields
// ErrNoTelemetryConfig; unreadable or corrupt files yield a wrapped error.
func (s *Store) ReadTelemetry() (TelemetryConfig, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return TelemetryConfig{}, ErrNoTelemetryConfig
		}
		return TelemetryConfig{}, fmt.Errorf("failed to read global config: %w", err)
	}

	var gf globalFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return TelemetryConfig{}, fmt.Errorf("failed to parse global config: %w", err)
	}
	if gf.Metrics == nil {
		return TelemetryConfig{}, ErrNoTelemetryConfig
	}
	return *gf.Metrics, nil
}

// WriteTelemetry replaces the telemetry section, keeping every other key of
// the file. A corrupt file is overwritten.
func (s *Store) WriteTelemetry(cfg TelemetryConfig) error {
	doc := map[string]interface{}{}
	if data, err := os.ReadFile(s.path); err == nil {
		if err := yaml.Unmarshal(data, &doc); err != nil || doc == nil {
			doc = map[string]interface{}{}
		}
	}
	doc[telemetrySection] = cfg

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal global config: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes to a sibling temp file and renames it over path so
// concurrent readers never observe a partial document.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write global config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move global config into place: %w", err)
	}
	return nil
}
