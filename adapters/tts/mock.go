package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sonara-ai/sonara/domain/repositories"
)

// bytesPerRune sizes the synthetic payload so longer text yields longer
// audio, roughly 20ms of 16kHz PCM per character.
const bytesPerRune = 640

// MockTextToSpeech is a placeholder engine for development and tests.
type MockTextToSpeech struct {
	logger *zap.Logger
}

// NewMockTextToSpeech creates a new mock text-to-speech engine
func NewMockTextToSpeech(logger *zap.Logger) repositories.TextToSpeech {
	return &MockTextToSpeech{logger: logger}
}

// Synthesize returns a deterministic synthetic payload.
func (m *MockTextToSpeech) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	m.logger.Debug("Producing mock speech",
		zap.Int("textLength", len(text)),
		zap.String("language", language))

	audio := make([]byte, len([]rune(text))*bytesPerRune)
	for i := range audio {
		audio[i] = byte(i % 251)
	}
	return audio, nil
}
