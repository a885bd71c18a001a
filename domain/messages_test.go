package domain

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sonara-ai/sonara/domain/entities"
)

func decode(t *testing.T, payload []byte) map[string]interface{} {
	t.Helper()
	var frame map[string]interface{}
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("Failed to decode frame %s: %v", payload, err)
	}
	return frame
}

func TestPreview(t *testing.T) {
	if got := Preview("short"); got != "short" {
		t.Errorf("Short text should pass through, got %q", got)
	}

	long := strings.Repeat("a", TTSPreviewLen+10)
	got := Preview(long)
	if len([]rune(got)) != TTSPreviewLen+3 {
		t.Errorf("Expected clipped preview of %d runes, got %d", TTSPreviewLen+3, len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Clipped preview should end with ellipsis, got %q", got)
	}

	// Clipping must respect rune boundaries for multibyte text.
	wide := strings.Repeat("你", TTSPreviewLen+1)
	if got := Preview(wide); !strings.HasSuffix(got, "...") {
		t.Errorf("Multibyte preview should be clipped, got %q", got)
	}
}

func TestEnvelopeDecoding(t *testing.T) {
	raw := []byte(`{"type":"audio_chunk","data":{"audio_data":"0a0b","is_final":true,"chunk_index":3}}`)

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if envelope.Type != FrameAudioChunk {
		t.Errorf("Expected audio_chunk, got %s", envelope.Type)
	}

	var data AudioChunkData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("Failed to decode chunk data: %v", err)
	}
	payload, err := data.DecodePayload()
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if len(payload) != 2 || payload[0] != 0x0a {
		t.Errorf("Unexpected payload %v", payload)
	}
	if !data.IsFinal || data.ChunkIndex != 3 {
		t.Errorf("Metadata not decoded: %+v", data)
	}
}

func TestAudioResponseFrameHexEncodesPayload(t *testing.T) {
	audio := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	frame := decode(t, AudioResponseFrame("sess-1", "hello", "en", audio))

	if frame["type"] != string(FrameAudioResponse) {
		t.Fatalf("Expected audio_response, got %v", frame["type"])
	}
	data := frame["data"].(map[string]interface{})
	if data["audio_data"] != hex.EncodeToString(audio) {
		t.Errorf("Audio payload should be hex encoded, got %v", data["audio_data"])
	}
	if data["size"].(float64) != 4 {
		t.Errorf("Expected size 4, got %v", data["size"])
	}
}

func TestTranscriptionFrameCarriesResult(t *testing.T) {
	result := &entities.TranscriptionResult{Text: "hi there", Language: "en", Confidence: 0.8}
	frame := decode(t, TranscriptionFrame("sess-1", result))

	if frame["session_id"] != "sess-1" {
		t.Errorf("Expected session ID, got %v", frame["session_id"])
	}
	data := frame["data"].(map[string]interface{})
	if data["text"] != "hi there" {
		t.Errorf("Expected transcription text, got %v", data["text"])
	}
	if _, ok := frame["timestamp"].(float64); !ok {
		t.Error("Frames must carry a Unix timestamp")
	}
}
