package entities

import "time"

// EventType tags an entry in a session's conversation history.
type EventType string

const (
	EventTranscription  EventType = "transcription"
	EventSpeechResponse EventType = "tts_response"
)

// ConversationEvent is one entry in a session's append-only audit trail.
type ConversationEvent struct {
	Type       EventType `json:"type" bson:"type"`
	ChunkID    string    `json:"chunk_id,omitempty" bson:"chunk_id,omitempty"`
	Text       string    `json:"text" bson:"text"`
	Language   string    `json:"language" bson:"language"`
	Confidence float64   `json:"confidence,omitempty" bson:"confidence,omitempty"`
	AudioBytes int       `json:"audio_size,omitempty" bson:"audio_size,omitempty"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

// SpeechRequest is a queued text-to-speech job. It is created when a
// text_request frame arrives and consumed exactly once by a synthesis worker.
type SpeechRequest struct {
	Text        string
	Language    string
	RequestedAt time.Time
}
