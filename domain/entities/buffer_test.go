package entities

import (
	"errors"
	"testing"
)

func makeChunk(sessionID string, size int) *AudioChunk {
	return NewAudioChunk(sessionID, make([]byte, size), 0, false)
}

func TestBufferAddChunk(t *testing.T) {
	buf := NewSessionBuffer(100)

	chunk := makeChunk("s1", 40)
	if err := buf.AddChunk(chunk); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}

	if buf.TotalBytes() != 40 {
		t.Errorf("Expected 40 buffered bytes, got %d", buf.TotalBytes())
	}

	if buf.Len() != 1 {
		t.Errorf("Expected 1 chunk, got %d", buf.Len())
	}
}

func TestBufferCapInvariant(t *testing.T) {
	buf := NewSessionBuffer(100)

	// Arbitrary mixed sequence; the cap must hold after every call.
	for i := 0; i < 20; i++ {
		chunk := makeChunk("s1", 30)
		err := buf.AddChunk(chunk)
		if err == nil && i%2 == 0 {
			buf.MarkProcessed(chunk.ID, &TranscriptionResult{Text: "ok"})
		}
		if buf.TotalBytes() > buf.MaxBytes() {
			t.Fatalf("Buffer exceeded cap after insert %d: %d > %d", i, buf.TotalBytes(), buf.MaxBytes())
		}
	}
}

func TestBufferEvictsOnlyProcessed(t *testing.T) {
	buf := NewSessionBuffer(100)

	unprocessed := makeChunk("s1", 40)
	processed := makeChunk("s1", 40)
	if err := buf.AddChunk(unprocessed); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}
	if err := buf.AddChunk(processed); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}
	buf.MarkProcessed(processed.ID, &TranscriptionResult{Text: "done"})

	// Needs 40 bytes: only the processed chunk may go.
	if err := buf.AddChunk(makeChunk("s1", 40)); err != nil {
		t.Fatalf("AddChunk should succeed after evicting processed chunk: %v", err)
	}

	pending := buf.UnprocessedChunks()
	found := false
	for _, c := range pending {
		if c.ID == unprocessed.ID {
			found = true
		}
	}
	if !found {
		t.Error("Unprocessed chunk was evicted")
	}
}

func TestBufferRejectsWhenOnlyUnprocessed(t *testing.T) {
	buf := NewSessionBuffer(100)

	if err := buf.AddChunk(makeChunk("s1", 60)); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}

	err := buf.AddChunk(makeChunk("s1", 60))
	if !errors.Is(err, ErrBufferFull) {
		t.Errorf("Expected ErrBufferFull, got %v", err)
	}

	if buf.TotalBytes() != 60 {
		t.Errorf("Rejected chunk must not count, got %d bytes", buf.TotalBytes())
	}
}

func TestBufferRejectsOversizedChunk(t *testing.T) {
	buf := NewSessionBuffer(100)

	err := buf.AddChunk(makeChunk("s1", 101))
	if !errors.Is(err, ErrBufferFull) {
		t.Errorf("Expected ErrBufferFull for oversized chunk, got %v", err)
	}
}

func TestBufferMarkProcessedAbsentChunk(t *testing.T) {
	buf := NewSessionBuffer(100)

	// Must be a no-op, not a panic.
	buf.MarkProcessed("no-such-chunk", &TranscriptionResult{})

	if buf.Len() != 0 {
		t.Errorf("Expected empty buffer, got %d chunks", buf.Len())
	}
}

func TestBufferMarkProcessedSetsEmptyResult(t *testing.T) {
	buf := NewSessionBuffer(100)
	chunk := makeChunk("s1", 10)
	if err := buf.AddChunk(chunk); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}

	buf.MarkProcessed(chunk.ID, nil)

	if !chunk.Processed {
		t.Error("Chunk should be processed")
	}
	if chunk.Result == nil {
		t.Error("Processed chunk must carry a result, even an empty one")
	}
}

func TestBufferRemove(t *testing.T) {
	buf := NewSessionBuffer(100)
	chunk := makeChunk("s1", 30)
	if err := buf.AddChunk(chunk); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}

	buf.Remove(chunk.ID)

	if buf.Len() != 0 || buf.TotalBytes() != 0 {
		t.Errorf("Expected empty buffer after Remove, got %d chunks / %d bytes", buf.Len(), buf.TotalBytes())
	}
}

func TestUnprocessedChunksOrder(t *testing.T) {
	buf := NewSessionBuffer(1000)

	var ids []string
	for i := 0; i < 5; i++ {
		chunk := makeChunk("s1", 10)
		if err := buf.AddChunk(chunk); err != nil {
			t.Fatalf("AddChunk failed: %v", err)
		}
		ids = append(ids, chunk.ID)
	}

	pending := buf.UnprocessedChunks()
	if len(pending) != 5 {
		t.Fatalf("Expected 5 pending chunks, got %d", len(pending))
	}
	for i, c := range pending {
		if c.ID != ids[i] {
			t.Errorf("Pending chunk %d out of order", i)
		}
	}
}
