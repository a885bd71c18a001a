package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config should validate, got: %v", err)
	}
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
streaming:
  transcription_workers: 4
  synthesis_workers: 1
  buffer_max_bytes: 2048
  queue_depth: 16
  session_timeout: 120
  cleanup_interval: 5
engines:
  speech_to_text: mock
  text_to_speech: mock
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Streaming.TranscriptionWorkers != 4 {
		t.Errorf("Expected 4 transcription workers, got %d", cfg.Streaming.TranscriptionWorkers)
	}
	if cfg.Streaming.GetSessionTimeout() != 2*time.Minute {
		t.Errorf("Expected 2m session timeout, got %v", cfg.Streaming.GetSessionTimeout())
	}
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9191
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Streaming.TranscriptionWorkers != 2 {
		t.Errorf("Expected default worker count 2, got %d", cfg.Streaming.TranscriptionWorkers)
	}
	if cfg.Engines.SpeechToText != "mock" {
		t.Errorf("Expected default stt engine mock, got %s", cfg.Engines.SpeechToText)
	}
}

func TestLoadArchiveSection(t *testing.T) {
	path := writeConfig(t, `
archive:
  enabled: true
  uri: mongodb://db.internal:27017
  database: conversations
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.Archive.Enabled {
		t.Error("Expected archive to be enabled")
	}
	if cfg.Archive.URI != "mongodb://db.internal:27017" {
		t.Errorf("Expected archive URI from file, got %q", cfg.Archive.URI)
	}
	if cfg.Archive.Database != "conversations" {
		t.Errorf("Expected archive database from file, got %q", cfg.Archive.Database)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero workers", func(c *Config) { c.Streaming.TranscriptionWorkers = 0 }},
		{"tiny buffer", func(c *Config) { c.Streaming.BufferMaxBytes = 100 }},
		{"zero timeout", func(c *Config) { c.Streaming.SessionTimeout = 0 }},
		{"unknown stt", func(c *Config) { c.Engines.SpeechToText = "whisper-9000" }},
		{"unknown tts", func(c *Config) { c.Engines.TextToSpeech = "festival" }},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
