// Package config loads and validates run settings and scenario files.
// Malformed configuration is startup-fatal: nothing gets partially built.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings are the run-level knobs, independent of any scenario.
type Settings struct {
	Steps   int            `yaml:"steps"`
	Seed    int64          `yaml:"seed"`
	LogDir  string         `yaml:"log_dir"`
	Offline bool           `yaml:"offline"`
	Oracle  OracleSettings `yaml:"oracle"`
}

// OracleSettings configures the text-completion provider.
type OracleSettings struct {
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// DefaultSettings returns the settings used when no file overrides them.
func DefaultSettings() Settings {
	return Settings{
		Steps:  20,
		Seed:   42,
		LogDir: "logs",
		Oracle: OracleSettings{
			Model:          "gemini-2.0-flash",
			Temperature:    0.8,
			MaxTokens:      512,
			TimeoutSeconds: 30,
		},
	}
}

// LoadSettings reads a settings file over the defaults. The GEMINI_API_KEY
// environment variable fills the API key when the file leaves it empty.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("config: read settings: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("config: parse settings: %w", err)
		}
	}
	if s.Oracle.APIKey == "" {
		s.Oracle.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) validate() error {
	if s.Steps < 0 {
		return fmt.Errorf("config: steps must be non-negative, got %d", s.Steps)
	}
	if s.Oracle.Temperature < 0 || s.Oracle.Temperature > 2 {
		return fmt.Errorf("config: oracle temperature %.2f out of range [0,2]", s.Oracle.Temperature)
	}
	if s.Oracle.MaxTokens <= 0 {
		return fmt.Errorf("config: oracle max_tokens must be positive")
	}
	if s.Oracle.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: oracle timeout_seconds must be positive")
	}
	return nil
}
