package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sonara-ai/sonara/domain"
	"github.com/sonara-ai/sonara/domain/entities"
	"github.com/sonara-ai/sonara/domain/repositories"
	"github.com/sonara-ai/sonara/internal/metrics"
	"github.com/sonara-ai/sonara/internal/sanitize"
)

const (
	popTimeout = 100 * time.Millisecond
	idleSleep  = 10 * time.Millisecond
)

// TranscriptionPool runs N workers that sweep active sessions and transcribe
// queued audio chunks. Per-session markers ensure at most one worker drains a
// given session, so results complete in arrival order.
type TranscriptionPool struct {
	service *StreamingService
	engine  repositories.SpeechToText
	logger  *zap.Logger
	metrics *metrics.Metrics
	workers int

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewTranscriptionPool builds a pool; call Start to launch the workers.
func NewTranscriptionPool(service *StreamingService, engine repositories.SpeechToText, workers int, logger *zap.Logger, m *metrics.Metrics) *TranscriptionPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &TranscriptionPool{
		service:  service,
		engine:   engine,
		logger:   logger,
		metrics:  m,
		workers:  workers,
		stopChan: make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (p *TranscriptionPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	p.logger.Info("Transcription workers started", zap.Int("count", p.workers))
}

// Stop signals the workers and waits for them to exit.
func (p *TranscriptionPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	p.wg.Wait()
}

func (p *TranscriptionPool) run(id int) {
	defer p.wg.Done()
	logger := p.logger.With(zap.Int("worker", id))

	for {
		select {
		case <-p.stopChan:
			return
		default:
		}

		for _, session := range p.service.ActiveSessions() {
			if !session.TryBeginTranscribe() {
				continue
			}
			p.drainOne(session, logger)
			session.EndTranscribe()
		}

		select {
		case <-p.stopChan:
			return
		case <-time.After(idleSleep):
		}
	}
}

// drainOne pops and processes at most one chunk while holding the session's
// transcription marker.
func (p *TranscriptionPool) drainOne(session *entities.ConversationSession, logger *zap.Logger) {
	timer := time.NewTimer(popTimeout)
	defer timer.Stop()

	var chunk *entities.AudioChunk
	select {
	case <-p.stopChan:
		return
	case <-timer.C:
		return
	case chunk = <-session.Inbound():
	}

	if !session.Active() {
		return
	}

	start := time.Now()
	result, err := p.engine.Transcribe(context.Background(), chunk.Payload, session.Language)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		// Failed chunks are still marked processed so the buffer can
		// reclaim them; there is no retry and no frame to the client.
		logger.Warn("Transcription failed",
			zap.String("sessionID", session.ID),
			zap.String("chunkID", chunk.ID),
			zap.Error(err))
		p.metrics.RecordTranscription(false, elapsed)
		session.Buffer().MarkProcessed(chunk.ID, nil)
		return
	}
	p.metrics.RecordTranscription(true, elapsed)

	if result == nil {
		result = &entities.TranscriptionResult{}
	}
	result.Confidence = entities.ClampConfidence(result.Confidence)
	if result.Language == "" {
		result.Language = session.Language
	}

	// The session may have closed while the engine was busy; discard the
	// result instead of publishing into a dead session.
	if !session.Active() {
		return
	}

	session.Buffer().MarkProcessed(chunk.ID, result)
	session.Touch()

	// Empty transcripts (silence, noise) still get a frame so the client
	// sees the chunk was handled; only the history skips them.
	if result.Text != "" {
		p.service.RecordEvent(session, entities.ConversationEvent{
			Type:       entities.EventTranscription,
			ChunkID:    chunk.ID,
			Text:       result.Text,
			Language:   result.Language,
			Confidence: result.Confidence,
		})
	}

	if sender := session.Sender(); sender != nil {
		if err := sender.Send(domain.TranscriptionFrame(session.ID, result)); err != nil {
			logger.Warn("Failed to deliver transcription",
				zap.String("sessionID", session.ID),
				zap.Error(err))
		}
	}

	logger.Debug("Transcribed audio chunk",
		zap.String("sessionID", session.ID),
		zap.String("chunkID", chunk.ID),
		zap.String("text", sanitize.LogString(result.Text)))
}
