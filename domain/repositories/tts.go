package repositories

import "context"

// TextToSpeech abstracts the synthesis engine.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}
