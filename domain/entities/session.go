package entities

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// HistoryCap bounds a session's conversation history; oldest entries drop.
const HistoryCap = 50

// StreamSender is the session's view of an attached connection. The gateway
// implements it; workers use it to push result frames without knowing the
// transport.
type StreamSender interface {
	Send(payload []byte) error
	Close() error
}

// SessionStats is a point-in-time snapshot of one session.
type SessionStats struct {
	SessionID             string `json:"session_id"`
	CreatedAt             int64  `json:"created_at"`
	LastActivity          int64  `json:"last_activity"`
	IsActive              bool   `json:"is_active"`
	Language              string `json:"language"`
	ConversationEntries   int    `json:"conversation_entries"`
	BufferChunks          int    `json:"buffer_chunks"`
	BufferSize            int    `json:"buffer_size"`
	PendingTranscriptions int    `json:"pending_transcriptions"`
	PendingResponses      int    `json:"pending_responses"`
}

// ConversationSession is the per-conversation state machine: identity,
// language hint, audio buffer, work queues, attached connection, bounded
// history, and activity clock. At most one live connection is bound at a
// time, and lastActivity never moves backwards.
type ConversationSession struct {
	ID        string
	Language  string
	CreatedAt time.Time

	buffer   *SessionBuffer
	inbound  chan *AudioChunk
	outbound chan *SpeechRequest

	mu           sync.Mutex
	lastActivity time.Time
	history      []ConversationEvent
	sender       StreamSender
	active       bool

	// Single-consumer markers: a worker must hold the marker for the
	// direction it drains, so chunks complete in FIFO order per session.
	transcribing sync.Mutex
	synthesizing sync.Mutex
}

// NewConversationSession creates an active session with empty queues.
func NewConversationSession(language string, bufferMaxBytes, queueDepth int) *ConversationSession {
	if language == "" {
		language = "auto"
	}
	if queueDepth <= 0 {
		queueDepth = 256
	}
	now := time.Now()
	return &ConversationSession{
		ID:           uuid.NewString(),
		Language:     language,
		CreatedAt:    now,
		lastActivity: now,
		buffer:       NewSessionBuffer(bufferMaxBytes),
		inbound:      make(chan *AudioChunk, queueDepth),
		outbound:     make(chan *SpeechRequest, queueDepth),
		history:      make([]ConversationEvent, 0, 8),
		active:       true,
	}
}

// Buffer exposes the session's audio buffer.
func (s *ConversationSession) Buffer() *SessionBuffer {
	return s.buffer
}

// Inbound is the queue of audio chunks awaiting transcription.
func (s *ConversationSession) Inbound() <-chan *AudioChunk {
	return s.inbound
}

// Outbound is the queue of speech requests awaiting synthesis.
func (s *ConversationSession) Outbound() <-chan *SpeechRequest {
	return s.outbound
}

// EnqueueChunk adds a chunk to the buffer and the inbound queue. The buffer
// cap is the sole backpressure mechanism: a full buffer or queue rejects the
// chunk with ErrBufferFull.
func (s *ConversationSession) EnqueueChunk(chunk *AudioChunk) error {
	if err := s.buffer.AddChunk(chunk); err != nil {
		return err
	}
	select {
	case s.inbound <- chunk:
		s.Touch()
		return nil
	default:
		s.buffer.Remove(chunk.ID)
		return ErrBufferFull
	}
}

// EnqueueSpeech queues a text-to-speech request.
func (s *ConversationSession) EnqueueSpeech(req *SpeechRequest) error {
	select {
	case s.outbound <- req:
		s.Touch()
		return nil
	default:
		return ErrBufferFull
	}
}

// Touch advances the activity clock. Never moves it backwards.
func (s *ConversationSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now := time.Now(); now.After(s.lastActivity) {
		s.lastActivity = now
	}
}

// LastActivity returns the activity clock reading.
func (s *ConversationSession) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// SetLastActivity rewinds or advances the clock directly. Test hook.
func (s *ConversationSession) SetLastActivity(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = t
}

// Expired reports whether the session has been idle longer than timeout.
func (s *ConversationSession) Expired(timeout time.Duration) bool {
	return time.Since(s.LastActivity()) > timeout
}

// Active reports whether the session still accepts work.
func (s *ConversationSession) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Deactivate stops further dispatch. In-flight collaborator calls are not
// aborted; their results are discarded on completion.
func (s *ConversationSession) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// AttachSender binds a connection, replacing any previous one.
func (s *ConversationSession) AttachSender(sender StreamSender) {
	s.mu.Lock()
	s.sender = sender
	s.mu.Unlock()
	s.Touch()
}

// DetachSender clears the bound connection without deactivating the session,
// so a client can reconnect later. Only the sender that is still bound may
// detach itself: a stale connection's teardown must not clear a replacement
// attached by a reconnect.
func (s *ConversationSession) DetachSender(sender StreamSender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sender == sender {
		s.sender = nil
	}
}

// Sender returns the currently bound connection, or nil.
func (s *ConversationSession) Sender() StreamSender {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sender
}

// AppendEvent records a history entry, dropping the oldest past HistoryCap.
func (s *ConversationSession) AppendEvent(event ConversationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, event)
	if len(s.history) > HistoryCap {
		s.history = s.history[len(s.history)-HistoryCap:]
	}
}

// History returns a copy of the conversation history.
func (s *ConversationSession) History() []ConversationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConversationEvent, len(s.history))
	copy(out, s.history)
	return out
}

// TryBeginTranscribe acquires the transcription marker. Returns false when
// another worker already drains this session.
func (s *ConversationSession) TryBeginTranscribe() bool {
	return s.transcribing.TryLock()
}

// EndTranscribe releases the transcription marker.
func (s *ConversationSession) EndTranscribe() {
	s.transcribing.Unlock()
}

// TryBeginSynthesize acquires the synthesis marker.
func (s *ConversationSession) TryBeginSynthesize() bool {
	return s.synthesizing.TryLock()
}

// EndSynthesize releases the synthesis marker.
func (s *ConversationSession) EndSynthesize() {
	s.synthesizing.Unlock()
}

// Stats snapshots the session for the control API and stats frames.
func (s *ConversationSession) Stats() SessionStats {
	s.mu.Lock()
	entries := len(s.history)
	active := s.active
	last := s.lastActivity
	s.mu.Unlock()

	return SessionStats{
		SessionID:             s.ID,
		CreatedAt:             s.CreatedAt.Unix(),
		LastActivity:          last.Unix(),
		IsActive:              active,
		Language:              s.Language,
		ConversationEntries:   entries,
		BufferChunks:          s.buffer.Len(),
		BufferSize:            s.buffer.TotalBytes(),
		PendingTranscriptions: len(s.inbound),
		PendingResponses:      len(s.outbound),
	}
}
