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

// SynthesisPool runs N workers that sweep active sessions and turn queued
// speech requests into audio frames. Mirrors TranscriptionPool, including the
// per-session marker that keeps requests in order.
type SynthesisPool struct {
	service *StreamingService
	engine  repositories.TextToSpeech
	logger  *zap.Logger
	metrics *metrics.Metrics
	workers int

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSynthesisPool builds a pool; call Start to launch the workers.
func NewSynthesisPool(service *StreamingService, engine repositories.TextToSpeech, workers int, logger *zap.Logger, m *metrics.Metrics) *SynthesisPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &SynthesisPool{
		service:  service,
		engine:   engine,
		logger:   logger,
		metrics:  m,
		workers:  workers,
		stopChan: make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (p *SynthesisPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	p.logger.Info("Synthesis workers started", zap.Int("count", p.workers))
}

// Stop signals the workers and waits for them to exit.
func (p *SynthesisPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	p.wg.Wait()
}

func (p *SynthesisPool) run(id int) {
	defer p.wg.Done()
	logger := p.logger.With(zap.Int("worker", id))

	for {
		select {
		case <-p.stopChan:
			return
		default:
		}

		for _, session := range p.service.ActiveSessions() {
			if !session.TryBeginSynthesize() {
				continue
			}
			p.drainOne(session, logger)
			session.EndSynthesize()
		}

		select {
		case <-p.stopChan:
			return
		case <-time.After(idleSleep):
		}
	}
}

func (p *SynthesisPool) drainOne(session *entities.ConversationSession, logger *zap.Logger) {
	timer := time.NewTimer(popTimeout)
	defer timer.Stop()

	var req *entities.SpeechRequest
	select {
	case <-p.stopChan:
		return
	case <-timer.C:
		return
	case req = <-session.Outbound():
	}

	if !session.Active() {
		return
	}

	start := time.Now()
	audio, err := p.engine.Synthesize(context.Background(), req.Text, req.Language)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		// A failed synthesis produces no frame and no history entry.
		logger.Warn("Speech synthesis failed",
			zap.String("sessionID", session.ID),
			zap.String("text", sanitize.LogString(req.Text)),
			zap.Error(err))
		p.metrics.RecordSynthesis(false, elapsed)
		return
	}
	p.metrics.RecordSynthesis(true, elapsed)

	if !session.Active() {
		return
	}
	session.Touch()

	p.service.RecordEvent(session, entities.ConversationEvent{
		Type:       entities.EventSpeechResponse,
		Text:       req.Text,
		Language:   req.Language,
		AudioBytes: len(audio),
	})

	if sender := session.Sender(); sender != nil {
		if err := sender.Send(domain.AudioResponseFrame(session.ID, req.Text, req.Language, audio)); err != nil {
			logger.Warn("Failed to deliver synthesized audio",
				zap.String("sessionID", session.ID),
				zap.Error(err))
		}
	}

	logger.Debug("Synthesized speech",
		zap.String("sessionID", session.ID),
		zap.Int("bytes", len(audio)))
}
