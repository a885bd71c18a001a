package repositories

import (
	"context"

	"github.com/sonara-ai/sonara/domain/entities"
)

// SpeechToText abstracts the transcription engine. Audio is opaque bytes;
// the language hint is a tag like "auto", "en" or "zh". Implementations are
// treated as blocking I/O and are called off the dispatch path.
type SpeechToText interface {
	Transcribe(ctx context.Context, audioData []byte, language string) (*entities.TranscriptionResult, error)
}
