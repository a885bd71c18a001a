package entities

import (
	"errors"
	"sync"
)

// DefaultBufferMaxBytes caps a session's audio buffer at 10 MiB.
const DefaultBufferMaxBytes = 10 * 1024 * 1024

// ErrBufferFull signals backpressure: the buffer holds too much unprocessed
// audio and the client must slow down.
var ErrBufferFull = errors.New("session buffer full")

// SessionBuffer is a byte-capped holding area for a session's audio chunks.
// When an insertion would exceed the cap, the oldest processed chunks are
// evicted first; unprocessed chunks are never evicted.
type SessionBuffer struct {
	mu         sync.Mutex
	chunks     []*AudioChunk
	totalBytes int
	maxBytes   int
}

// NewSessionBuffer creates a buffer with the given byte cap. A non-positive
// cap falls back to DefaultBufferMaxBytes.
func NewSessionBuffer(maxBytes int) *SessionBuffer {
	if maxBytes <= 0 {
		maxBytes = DefaultBufferMaxBytes
	}
	return &SessionBuffer{
		chunks:   make([]*AudioChunk, 0, 16),
		maxBytes: maxBytes,
	}
}

// AddChunk appends a chunk, reclaiming space from processed chunks if
// necessary. Returns ErrBufferFull when not enough space can be reclaimed.
func (b *SessionBuffer) AddChunk(chunk *AudioChunk) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := chunk.Size()
	if size > b.maxBytes {
		return ErrBufferFull
	}
	if b.totalBytes+size > b.maxBytes {
		b.reclaim(b.totalBytes + size - b.maxBytes)
	}
	if b.totalBytes+size > b.maxBytes {
		return ErrBufferFull
	}

	b.chunks = append(b.chunks, chunk)
	b.totalBytes += size
	return nil
}

// reclaim evicts least-recently-added processed chunks until at least needed
// bytes are freed or no processed chunks remain. Caller holds b.mu.
func (b *SessionBuffer) reclaim(needed int) {
	freed := 0
	kept := b.chunks[:0]
	for _, chunk := range b.chunks {
		if freed < needed && chunk.Processed {
			freed += chunk.Size()
			b.totalBytes -= chunk.Size()
			continue
		}
		kept = append(kept, chunk)
	}
	b.chunks = kept
}

// MarkProcessed flips the processed flag and attaches the result. No-op when
// the chunk has already been evicted.
func (b *SessionBuffer) MarkProcessed(chunkID string, result *TranscriptionResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, chunk := range b.chunks {
		if chunk.ID == chunkID {
			if result == nil {
				result = &TranscriptionResult{}
			}
			chunk.Processed = true
			chunk.Result = result
			return
		}
	}
}

// Remove drops a chunk regardless of its processed state. Used to roll back
// an insertion whose downstream enqueue failed.
func (b *SessionBuffer) Remove(chunkID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, chunk := range b.chunks {
		if chunk.ID == chunkID {
			b.totalBytes -= chunk.Size()
			b.chunks = append(b.chunks[:i], b.chunks[i+1:]...)
			return
		}
	}
}

// UnprocessedChunks returns a snapshot of chunks still awaiting
// transcription, in receipt order.
func (b *SessionBuffer) UnprocessedChunks() []*AudioChunk {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending := make([]*AudioChunk, 0, len(b.chunks))
	for _, chunk := range b.chunks {
		if !chunk.Processed {
			pending = append(pending, chunk)
		}
	}
	return pending
}

// Len returns the number of chunks currently held.
func (b *SessionBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// TotalBytes returns the current buffered byte count.
func (b *SessionBuffer) TotalBytes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalBytes
}

// MaxBytes returns the configured byte cap.
func (b *SessionBuffer) MaxBytes() int {
	return b.maxBytes
}
