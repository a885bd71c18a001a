package domain

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/sonara-ai/sonara/domain/entities"
)

// FrameType identifies a protocol frame on the stream connection.
type FrameType string

// Inbound frame types.
const (
	FrameAudioChunk  FrameType = "audio_chunk"
	FrameTextRequest FrameType = "text_request"
	FrameControl     FrameType = "control"
)

// Outbound frame types.
const (
	FrameConnectionEstablished FrameType = "connection_established"
	FrameChunkReceived         FrameType = "chunk_received"
	FrameTranscription         FrameType = "transcription"
	FrameTTSQueued             FrameType = "tts_queued"
	FrameAudioResponse         FrameType = "audio_response"
	FramePong                  FrameType = "pong"
	FrameStatsResponse         FrameType = "stats_response"
	FrameResetComplete         FrameType = "reset_complete"
	FrameError                 FrameType = "error"
)

// Control commands.
const (
	CommandPing  = "ping"
	CommandStats = "stats"
	CommandReset = "reset"
)

// Envelope is the outer shape of every inbound frame.
type Envelope struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// AudioChunkData carries one hex-encoded audio chunk.
type AudioChunkData struct {
	AudioData  string `json:"audio_data"`
	IsFinal    bool   `json:"is_final"`
	ChunkIndex int    `json:"chunk_index"`
}

// DecodePayload decodes the hex audio payload.
func (d *AudioChunkData) DecodePayload() ([]byte, error) {
	return hex.DecodeString(d.AudioData)
}

// TextRequestData carries a text-to-speech request.
type TextRequestData struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// ControlData carries a control command.
type ControlData struct {
	Command string `json:"command"`
}

// TTSPreviewLen bounds the echoed text in tts_queued acknowledgments.
const TTSPreviewLen = 50

// Preview clips text for the tts_queued acknowledgment.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= TTSPreviewLen {
		return text
	}
	return string(runes[:TTSPreviewLen]) + "..."
}

func marshal(v interface{}) []byte {
	payload, _ := json.Marshal(v)
	return payload
}

func now() int64 {
	return time.Now().Unix()
}

// ConnectionEstablishedFrame greets a freshly attached connection.
func ConnectionEstablishedFrame(sessionID string) []byte {
	return marshal(map[string]interface{}{
		"type":       FrameConnectionEstablished,
		"session_id": sessionID,
		"message":    "stream connected",
		"timestamp":  now(),
	})
}

// ChunkReceivedFrame acknowledges an accepted audio chunk.
func ChunkReceivedFrame(chunkID string, chunkIndex, size int, isFinal bool) []byte {
	return marshal(map[string]interface{}{
		"type":        FrameChunkReceived,
		"chunk_id":    chunkID,
		"chunk_index": chunkIndex,
		"size":        size,
		"is_final":    isFinal,
		"timestamp":   now(),
	})
}

// TranscriptionFrame publishes a transcription result.
func TranscriptionFrame(sessionID string, result *entities.TranscriptionResult) []byte {
	return marshal(map[string]interface{}{
		"type":       FrameTranscription,
		"data":       result,
		"session_id": sessionID,
		"timestamp":  now(),
	})
}

// TTSQueuedFrame acknowledges a queued speech request.
func TTSQueuedFrame(text, language string) []byte {
	return marshal(map[string]interface{}{
		"type":      FrameTTSQueued,
		"text":      Preview(text),
		"language":  language,
		"timestamp": now(),
	})
}

// AudioResponseFrame publishes synthesized audio, hex-encoded for the JSON
// transport.
func AudioResponseFrame(sessionID, text, language string, audio []byte) []byte {
	return marshal(map[string]interface{}{
		"type": FrameAudioResponse,
		"data": map[string]interface{}{
			"audio_data": hex.EncodeToString(audio),
			"text":       text,
			"language":   language,
			"size":       len(audio),
		},
		"session_id": sessionID,
		"timestamp":  now(),
	})
}

// PongFrame answers a ping control command.
func PongFrame() []byte {
	return marshal(map[string]interface{}{
		"type":      FramePong,
		"timestamp": now(),
	})
}

// StatsResponseFrame answers a stats control command.
func StatsResponseFrame(stats entities.SessionStats) []byte {
	return marshal(map[string]interface{}{
		"type":      FrameStatsResponse,
		"stats":     stats,
		"timestamp": now(),
	})
}

// ResetCompleteFrame acknowledges a reset command. The command mutates
// nothing; see the gateway dispatch.
func ResetCompleteFrame() []byte {
	return marshal(map[string]interface{}{
		"type":      FrameResetComplete,
		"message":   "session buffers reset",
		"timestamp": now(),
	})
}

// ErrorFrame reports a protocol-level error. The message must already be
// sanitized by the caller before it carries any client-supplied text.
func ErrorFrame(message string) []byte {
	return marshal(map[string]interface{}{
		"type":      FrameError,
		"message":   message,
		"timestamp": now(),
	})
}
