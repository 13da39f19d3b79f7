package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Color modes for the execution tracer
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Settings represents a clox.yaml file.
type Settings struct {
	// Trace enables the per-instruction stack/disassembly printout.
	Trace bool `yaml:"trace"`

	// Color controls ANSI colouring of trace output: auto, always or never.
	// Defaults to auto, which colours only when stderr is a terminal.
	Color string `yaml:"color,omitempty"`

	// Verbosity is added to the --verbose count and passed to commonlog
	// (0 = notices and above, 2 = debug).
	Verbosity int `yaml:"verbosity,omitempty"`
}

// DefaultSettings returns the settings used when no clox.yaml is found.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.setDefaults()
	return s
}

// LoadSettings reads and parses a clox.yaml file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	return ParseSettings(data, path)
}

// ParseSettings parses clox.yaml content from bytes.
// The path argument is used only for error messages.
func ParseSettings(data []byte, path string) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := s.validate(path); err != nil {
		return nil, err
	}
	s.setDefaults()
	return &s, nil
}

// FindSettings searches for clox.yaml starting from dir and walking up
// to parent directories. Returns an empty path and nil error if none exists.
func FindSettings(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, SettingsFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (s *Settings) validate(path string) error {
	switch s.Color {
	case "", ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%s: color must be one of %s, %s, %s (got %q)",
			path, ColorAuto, ColorAlways, ColorNever, s.Color)
	}
	if s.Verbosity < 0 {
		return fmt.Errorf("%s: verbosity must not be negative", path)
	}
	return nil
}

func (s *Settings) setDefaults() {
	if s.Color == "" {
		s.Color = ColorAuto
	}
}
