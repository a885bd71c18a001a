// Package stt provides speech-to-text engines.
package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/sonara-ai/sonara/domain/entities"
	"github.com/sonara-ai/sonara/domain/repositories"
)

// GoogleSpeechToText implements SpeechToText using Google Cloud Speech.
type GoogleSpeechToText struct {
	client *speech.Client
	logger *zap.Logger

	sampleRate int32
	encoding   speechpb.RecognitionConfig_AudioEncoding
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates a Google Cloud Speech client. Credentials
// come from the environment (GOOGLE_APPLICATION_CREDENTIALS).
func NewGoogleSpeechToText(ctx context.Context, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return &GoogleSpeechToText{
		client:     client,
		logger:     logger,
		sampleRate: 16000,
		encoding:   speechpb.RecognitionConfig_LINEAR16,
	}, nil
}

// Close releases the underlying client.
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

// Transcribe runs synchronous recognition over one audio chunk.
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, audioData []byte, language string) (*entities.TranscriptionResult, error) {
	if len(audioData) == 0 {
		return nil, fmt.Errorf("no audio data received")
	}

	languageCode := recognitionLanguage(language)
	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        g.encoding,
			SampleRateHertz: g.sampleRate,
			LanguageCode:    languageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("recognition failed: %w", err)
	}

	result := assembleResult(resp, language)
	g.logger.Debug("Google recognition completed",
		zap.String("language", languageCode),
		zap.Int("segments", len(result.Segments)))
	return result, nil
}

// assembleResult flattens the recognition response into a single result with
// per-utterance segments.
func assembleResult(resp *speechpb.RecognizeResponse, language string) *entities.TranscriptionResult {
	result := &entities.TranscriptionResult{Language: language}

	var texts []string
	var confidenceSum float64
	var start float64

	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		best := r.GetAlternatives()[0]
		end := r.GetResultEndTime().AsDuration().Seconds()

		texts = append(texts, best.GetTranscript())
		confidenceSum += float64(best.GetConfidence())
		result.Segments = append(result.Segments, entities.TranscriptSegment{
			StartSeconds: start,
			EndSeconds:   end,
			Text:         best.GetTranscript(),
			Confidence:   entities.ClampConfidence(float64(best.GetConfidence())),
		})
		start = end
	}

	result.Text = strings.Join(texts, " ")
	if n := len(result.Segments); n > 0 {
		result.Confidence = entities.ClampConfidence(confidenceSum / float64(n))
		result.DurationSeconds = result.Segments[n-1].EndSeconds
	}
	return result
}

// recognitionLanguage maps short language hints to BCP-47 codes the API
// expects. Full codes pass through untouched.
func recognitionLanguage(language string) string {
	if strings.Contains(language, "-") {
		return language
	}
	switch language {
	case "en":
		return "en-US"
	case "zh":
		return "cmn-Hans-CN"
	case "id":
		return "id-ID"
	case "ja":
		return "ja-JP"
	case "es":
		return "es-ES"
	case "fr":
		return "fr-FR"
	case "de":
		return "de-DE"
	default:
		return "en-US"
	}
}
