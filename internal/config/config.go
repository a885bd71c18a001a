package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Streaming StreamingConfig `yaml:"streaming"`
	Engines   EnginesConfig   `yaml:"engines"`
	Auth      AuthConfig      `yaml:"auth"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int  `yaml:"port"`
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// StreamingConfig contains the engine's sizing and timing knobs.
type StreamingConfig struct {
	TranscriptionWorkers int `yaml:"transcription_workers"`
	SynthesisWorkers     int `yaml:"synthesis_workers"`
	BufferMaxBytes       int `yaml:"buffer_max_bytes"`
	QueueDepth           int `yaml:"queue_depth"`
	SessionTimeout       int `yaml:"session_timeout"`  // seconds
	CleanupInterval      int `yaml:"cleanup_interval"` // seconds
}

// EnginesConfig selects collaborator implementations. Credentials come from
// the environment, not this file.
type EnginesConfig struct {
	SpeechToText string `yaml:"speech_to_text"` // google | mock
	TextToSpeech string `yaml:"text_to_speech"` // elevenlabs | gemini | mock
}

// AuthConfig controls stream-token validation on the websocket endpoint.
type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ArchiveConfig controls conversation event archival. URI may carry
// credentials, so the MONGODB_URI environment variable overrides it.
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			MetricsEnabled: true,
		},
		Streaming: StreamingConfig{
			TranscriptionWorkers: 2,
			SynthesisWorkers:     2,
			BufferMaxBytes:       10 * 1024 * 1024,
			QueueDepth:           256,
			SessionTimeout:       3600,
			CleanupInterval:      60,
		},
		Engines: EnginesConfig{
			SpeechToText: "mock",
			TextToSpeech: "mock",
		},
	}
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Streaming.Validate(); err != nil {
		return fmt.Errorf("streaming config: %w", err)
	}
	if err := c.Engines.Validate(); err != nil {
		return fmt.Errorf("engines config: %w", err)
	}
	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	return nil
}

// Validate validates streaming configuration.
func (s *StreamingConfig) Validate() error {
	if s.TranscriptionWorkers < 1 {
		return fmt.Errorf("transcription_workers must be at least 1, got %d", s.TranscriptionWorkers)
	}
	if s.SynthesisWorkers < 1 {
		return fmt.Errorf("synthesis_workers must be at least 1, got %d", s.SynthesisWorkers)
	}
	if s.BufferMaxBytes < 1024 {
		return fmt.Errorf("buffer_max_bytes must be at least 1024, got %d", s.BufferMaxBytes)
	}
	if s.QueueDepth < 1 {
		return fmt.Errorf("queue_depth must be at least 1, got %d", s.QueueDepth)
	}
	if s.SessionTimeout < 1 {
		return fmt.Errorf("session_timeout must be at least 1 second, got %d", s.SessionTimeout)
	}
	if s.CleanupInterval < 1 {
		return fmt.Errorf("cleanup_interval must be at least 1 second, got %d", s.CleanupInterval)
	}
	return nil
}

// Validate validates engine selection.
func (e *EnginesConfig) Validate() error {
	validSTT := map[string]bool{"google": true, "mock": true}
	if !validSTT[e.SpeechToText] {
		return fmt.Errorf("speech_to_text must be one of [google, mock], got '%s'", e.SpeechToText)
	}
	validTTS := map[string]bool{"elevenlabs": true, "gemini": true, "mock": true}
	if !validTTS[e.TextToSpeech] {
		return fmt.Errorf("text_to_speech must be one of [elevenlabs, gemini, mock], got '%s'", e.TextToSpeech)
	}
	return nil
}

// GetSessionTimeout returns the session timeout as a time.Duration.
func (s *StreamingConfig) GetSessionTimeout() time.Duration {
	return time.Duration(s.SessionTimeout) * time.Second
}

// GetCleanupInterval returns the expiry interval as a time.Duration.
func (s *StreamingConfig) GetCleanupInterval() time.Duration {
	return time.Duration(s.CleanupInterval) * time.Second
}
