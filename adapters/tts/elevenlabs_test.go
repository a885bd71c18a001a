package tts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// Test without API key
	os.Unsetenv("ELEVEN_LABS_API_KEY")
	config := NewElevenLabsConfigFromEnv()
	_, err := NewElevenLabsTTS(config, logger)
	if err == nil {
		t.Error("Expected error when API key is not set")
	}

	// Test with API key
	os.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	defer os.Unsetenv("ELEVEN_LABS_API_KEY")

	config = NewElevenLabsConfigFromEnv()
	tts, err := NewElevenLabsTTS(config, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.apiKey)
	}
	if tts.voiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, tts.voiceID)
	}
}

func TestElevenLabsTTS_SetVoiceSettings(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	tts.SetVoiceSettings(0.8, 0.9)

	if tts.stability != 0.8 {
		t.Errorf("Expected stability 0.8, got %f", tts.stability)
	}
	if tts.clarity != 0.9 {
		t.Errorf("Expected clarity 0.9, got %f", tts.clarity)
	}
}

func TestElevenLabsTTS_Synthesize_EmptyText(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ctx := context.Background()
	if _, err := tts.Synthesize(ctx, "", "en"); err == nil {
		t.Error("Expected error for empty text")
	}
	if _, err := tts.Synthesize(ctx, "   ", "en"); err == nil {
		t.Error("Expected error for whitespace-only text")
	}
}

func TestElevenLabsTTS_Synthesize(t *testing.T) {
	logger := zaptest.NewLogger(t)
	fakeAudio := []byte{0x52, 0x49, 0x46, 0x46, 0x01, 0x02}

	var gotRequest ElevenLabsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-api-key" {
			t.Error("Expected api key header")
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotRequest); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write(fakeAudio)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	audio, err := tts.Synthesize(context.Background(), "hello world", "en")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(audio) != len(fakeAudio) {
		t.Errorf("Expected %d audio bytes, got %d", len(fakeAudio), len(audio))
	}
	if gotRequest.Text != "hello world" {
		t.Errorf("Expected request text to pass through, got %q", gotRequest.Text)
	}
	if gotRequest.LanguageCode != "en" {
		t.Errorf("Expected language code en, got %q", gotRequest.LanguageCode)
	}
}

func TestElevenLabsTTS_SynthesizeAPIError(t *testing.T) {
	logger := zaptest.NewLogger(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":"rate limited"}`))
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if _, err := tts.Synthesize(context.Background(), "hello", "en"); err == nil {
		t.Error("Expected error for non-200 response")
	}
}

func TestSynthesisLanguageStripsAuto(t *testing.T) {
	if got := synthesisLanguage("auto"); got != "" {
		t.Errorf("Expected empty code for auto, got %q", got)
	}
	if got := synthesisLanguage("id"); got != "id" {
		t.Errorf("Expected passthrough, got %q", got)
	}
}

func TestMockSynthesize(t *testing.T) {
	engine := NewMockTextToSpeech(zaptest.NewLogger(t))

	audio, err := engine.Synthesize(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(audio) != 5*bytesPerRune {
		t.Errorf("Expected %d bytes, got %d", 5*bytesPerRune, len(audio))
	}

	if _, err := engine.Synthesize(context.Background(), " ", "en"); err == nil {
		t.Error("Expected error for blank text")
	}
}
