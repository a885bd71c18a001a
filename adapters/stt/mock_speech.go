package stt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sonara-ai/sonara/domain/entities"
	"github.com/sonara-ai/sonara/domain/repositories"
)

// MockSpeechToText is a placeholder engine for development and tests.
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text engine
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{logger: logger}
}

// Transcribe returns a canned transcript keyed on the chunk size.
func (s *MockSpeechToText) Transcribe(ctx context.Context, audioData []byte, language string) (*entities.TranscriptionResult, error) {
	if len(audioData) == 0 {
		return nil, fmt.Errorf("no audio data received")
	}

	s.logger.Debug("Processing mock transcription",
		zap.Int("audioSize", len(audioData)),
		zap.String("language", language))

	// Mock different responses based on audio size
	var text string
	switch {
	case len(audioData) > 10000:
		text = "Hello there, I have quite a lot to say about how today went."
	case len(audioData) > 5000:
		text = "Thanks for listening to me."
	case len(audioData) > 1000:
		text = "Hello!"
	default:
		text = "Hi"
	}

	duration := float64(len(audioData)) / 32000.0
	return &entities.TranscriptionResult{
		Text:            text,
		Language:        language,
		Confidence:      0.92,
		DurationSeconds: duration,
		Segments: []entities.TranscriptSegment{
			{StartSeconds: 0, EndSeconds: duration, Text: text, Confidence: 0.92},
		},
	}, nil
}
