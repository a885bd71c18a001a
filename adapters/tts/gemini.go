package tts

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/sonara-ai/sonara/domain/repositories"
)

const (
	geminiTTSModel     = "gemini-2.5-flash-preview-tts"
	geminiDefaultVoice = "Kore"
)

// GeminiTTS implements TextToSpeech using Google's Gemini speech generation.
type GeminiTTS struct {
	client *genai.Client
	logger *zap.Logger
	model  string
	voice  string
}

var _ repositories.TextToSpeech = (*GeminiTTS)(nil)

// NewGeminiTTS creates a new Gemini TTS instance
func NewGeminiTTS(logger *zap.Logger) (*GeminiTTS, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	voice := os.Getenv("GEMINI_TTS_VOICE")
	if voice == "" {
		voice = geminiDefaultVoice
	}

	return &GeminiTTS{
		client: client,
		logger: logger,
		model:  geminiTTSModel,
		voice:  voice,
	}, nil
}

// Synthesize converts text to speech and returns the raw PCM payload.
func (g *GeminiTTS) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: g.voice,
				},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), config)
	if err != nil {
		return nil, fmt.Errorf("speech generation failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("speech generation returned no candidates")
	}

	var audio []byte
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil {
			audio = append(audio, part.InlineData.Data...)
		}
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech generation returned no audio")
	}

	g.logger.Debug("Synthesized speech via Gemini",
		zap.Int("textLength", len(text)),
		zap.Int("audioBytes", len(audio)))
	return audio, nil
}
