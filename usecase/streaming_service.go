package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sonara-ai/sonara/domain/entities"
	"github.com/sonara-ai/sonara/domain/repositories"
	"github.com/sonara-ai/sonara/internal/metrics"
	"github.com/sonara-ai/sonara/internal/sanitize"
)

// Service-level errors surfaced to the control API and the gateway.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyAudio      = errors.New("no audio data provided")
	ErrEmptyText       = errors.New("no text provided")
)

// StreamingOptions configures a StreamingService.
type StreamingOptions struct {
	BufferMaxBytes  int
	QueueDepth      int
	SessionTimeout  time.Duration
	CleanupInterval time.Duration

	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	EventStore repositories.EventStore

	// Worker counts reported in aggregate stats. The pools themselves are
	// started separately.
	TranscriptionWorkers int
	SynthesisWorkers     int
}

// AggregateStats summarizes the whole registry.
type AggregateStats struct {
	TotalSessions  int           `json:"total_sessions"`
	ActiveSessions []string      `json:"active_sessions"`
	Service        ServiceStatus `json:"service_status"`
}

// ServiceStatus reports engine-level counters inside AggregateStats.
type ServiceStatus struct {
	TranscriptionWorkers int `json:"transcription_workers"`
	SynthesisWorkers     int `json:"tts_workers"`
	BufferedBytes        int `json:"buffered_bytes"`
}

// StreamingService is the process-wide session registry: it creates, looks
// up and destroys conversation sessions and drives periodic expiry. The
// internal lock guards only the map; it is never held across a collaborator
// call.
type StreamingService struct {
	mu       sync.RWMutex
	sessions map[string]*entities.ConversationSession

	opts   StreamingOptions
	logger *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewStreamingService creates an empty registry.
func NewStreamingService(opts StreamingOptions) *StreamingService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = time.Hour
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}
	return &StreamingService{
		sessions: make(map[string]*entities.ConversationSession),
		opts:     opts,
		logger:   opts.Logger,
		stopChan: make(chan struct{}),
	}
}

// CreateSession allocates and registers a new active session.
func (s *StreamingService) CreateSession(language string) *entities.ConversationSession {
	session := entities.NewConversationSession(language, s.opts.BufferMaxBytes, s.opts.QueueDepth)

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.opts.Metrics.RecordSessionCreated()
	s.logger.Info("Created new session",
		zap.String("sessionID", session.ID),
		zap.String("language", session.Language))
	return session
}

// GetSession looks up a session by ID.
func (s *StreamingService) GetSession(sessionID string) (*entities.ConversationSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// AttachConnection binds a stream sender to the session.
func (s *StreamingService) AttachConnection(sessionID string, sender entities.StreamSender) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	session.AttachSender(sender)
	s.logger.Info("Connection attached to session", zap.String("sessionID", sessionID))
	return nil
}

// DetachConnection clears the session's sender without deactivating it, so
// the client may reconnect. The caller identifies itself; a detach from a
// connection that has already been replaced is a no-op.
func (s *StreamingService) DetachConnection(sessionID string, sender entities.StreamSender) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return
	}
	session.DetachSender(sender)
	s.logger.Info("Connection detached from session", zap.String("sessionID", sessionID))
}

// CloseSession deactivates a session, closes any bound connection and
// removes it from the registry. Idempotent.
func (s *StreamingService) CloseSession(sessionID string) {
	s.closeSession(sessionID, false)
}

func (s *StreamingService) closeSession(sessionID string, expired bool) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	session.Deactivate()
	if sender := session.Sender(); sender != nil {
		if err := sender.Close(); err != nil {
			s.logger.Warn("Failed to close session connection",
				zap.String("sessionID", sessionID),
				zap.Error(err))
		}
		session.DetachSender(sender)
	}

	s.opts.Metrics.RecordSessionClosed(expired)
	s.logger.Info("Closed session",
		zap.String("sessionID", sessionID),
		zap.Bool("expired", expired))
}

// EnqueueAudio creates a chunk from an inbound audio frame and queues it for
// transcription. The buffer cap is the backpressure boundary.
func (s *StreamingService) EnqueueAudio(sessionID string, payload []byte, chunkIndex int, isFinal bool) (*entities.AudioChunk, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyAudio
	}

	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	chunk := entities.NewAudioChunk(sessionID, payload, chunkIndex, isFinal)
	if err := session.EnqueueChunk(chunk); err != nil {
		s.opts.Metrics.RecordChunkRejected()
		return nil, err
	}

	s.opts.Metrics.RecordChunkReceived()
	return chunk, nil
}

// QueueSpeech queues a text-to-speech request for the session. Empty or
// whitespace-only text is rejected without touching any queue.
func (s *StreamingService) QueueSpeech(sessionID, text, language string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}

	if language == "" {
		language = session.Language
	}
	return session.EnqueueSpeech(&entities.SpeechRequest{
		Text:        text,
		Language:    language,
		RequestedAt: time.Now(),
	})
}

// RecordEvent appends to the session history and archives the event when an
// event store is configured. Archival never blocks the caller.
func (s *StreamingService) RecordEvent(session *entities.ConversationSession, event entities.ConversationEvent) {
	session.AppendEvent(event)

	store := s.opts.EventStore
	if store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Archive(ctx, session.ID, event); err != nil {
			s.logger.Warn("Failed to archive conversation event",
				zap.String("sessionID", session.ID),
				zap.String("eventType", string(event.Type)),
				zap.Error(err))
		}
	}()
}

// ActiveSessions snapshots the sessions currently accepting work.
func (s *StreamingService) ActiveSessions() []*entities.ConversationSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.ConversationSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		if session.Active() {
			out = append(out, session)
		}
	}
	return out
}

// Stats returns one session's statistics.
func (s *StreamingService) Stats(sessionID string) (entities.SessionStats, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return entities.SessionStats{}, err
	}
	return session.Stats(), nil
}

// AllStats aggregates counts across the registry.
func (s *StreamingService) AllStats() AggregateStats {
	s.mu.RLock()
	sessions := make([]*entities.ConversationSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	stats := AggregateStats{
		TotalSessions:  len(sessions),
		ActiveSessions: make([]string, 0, len(sessions)),
		Service: ServiceStatus{
			TranscriptionWorkers: s.opts.TranscriptionWorkers,
			SynthesisWorkers:     s.opts.SynthesisWorkers,
		},
	}
	for _, session := range sessions {
		if session.Active() {
			stats.ActiveSessions = append(stats.ActiveSessions, session.ID)
		}
		stats.Service.BufferedBytes += session.Buffer().TotalBytes()
	}
	return stats
}

// StartExpiryLoop launches the periodic cleanup of idle sessions. Only this
// loop destroys sessions unilaterally.
func (s *StreamingService) StartExpiryLoop() {
	go s.expiryLoop()
	s.logger.Info("Session expiry loop started",
		zap.Duration("interval", s.opts.CleanupInterval),
		zap.Duration("timeout", s.opts.SessionTimeout))
}

// Stop halts the expiry loop and closes every remaining session.
func (s *StreamingService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})

	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.CloseSession(id)
	}
}

func (s *StreamingService) expiryLoop() {
	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.ExpireSessions()
		}
	}
}

// ExpireSessions closes every session idle longer than the timeout. Exposed
// so tests can trigger a pass without waiting for the ticker.
func (s *StreamingService) ExpireSessions() {
	s.mu.RLock()
	expired := make([]string, 0)
	for id, session := range s.sessions {
		if session.Expired(s.opts.SessionTimeout) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range expired {
		s.closeSession(id, true)
		s.logger.Info("Cleaned up expired session", zap.String("sessionID", sanitize.LogString(id)))
	}
}
