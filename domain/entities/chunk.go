package entities

import (
	"time"

	"github.com/google/uuid"
)

// AudioChunk is one discrete unit of streamed audio. It is created by the
// gateway on receipt of an audio_chunk frame and owned by the session buffer
// that holds it until eviction.
type AudioChunk struct {
	ID         string
	SessionID  string
	Payload    []byte
	ReceivedAt time.Time
	ChunkIndex int
	IsFinal    bool

	// Processed implies Result != nil. A failed transcription still marks
	// the chunk processed, with an empty result.
	Processed bool
	Result    *TranscriptionResult
}

// NewAudioChunk creates a chunk with a fresh ID and receipt timestamp.
func NewAudioChunk(sessionID string, payload []byte, chunkIndex int, isFinal bool) *AudioChunk {
	return &AudioChunk{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Payload:    payload,
		ReceivedAt: time.Now(),
		ChunkIndex: chunkIndex,
		IsFinal:    isFinal,
	}
}

// Size returns the payload size in bytes.
func (c *AudioChunk) Size() int {
	return len(c.Payload)
}

// TranscriptSegment is one timed span of a transcription.
type TranscriptSegment struct {
	StartSeconds float64 `json:"start"`
	EndSeconds   float64 `json:"end"`
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
}

// TranscriptionResult is the output of the speech-to-text collaborator for
// one chunk.
type TranscriptionResult struct {
	Text            string              `json:"text"`
	Language        string              `json:"language"`
	Confidence      float64             `json:"confidence"`
	DurationSeconds float64             `json:"duration"`
	Segments        []TranscriptSegment `json:"segments"`
}

// ClampConfidence bounds an engine-reported score into [0, 1].
func ClampConfidence(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
