package usecase

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sonara-ai/sonara/domain/entities"
)

// recordingSender captures frames pushed to a session connection.
type recordingSender struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (r *recordingSender) Send(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	r.frames = append(r.frames, buf)
	return nil
}

func (r *recordingSender) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSender) Frames() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.frames))
	copy(out, r.frames)
	return out
}

func (r *recordingSender) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func newTestService() *StreamingService {
	return NewStreamingService(StreamingOptions{
		BufferMaxBytes:  1 << 20,
		QueueDepth:      32,
		SessionTimeout:  time.Hour,
		CleanupInterval: time.Minute,
	})
}

func TestCreateAndGetSession(t *testing.T) {
	svc := newTestService()
	session := svc.CreateSession("en")

	got, err := svc.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != session {
		t.Error("GetSession returned a different session")
	}
	if !got.Active() {
		t.Error("New session should be active")
	}
}

func TestGetSessionUnknown(t *testing.T) {
	svc := newTestService()
	if _, err := svc.GetSession("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestCloseSessionIdempotent(t *testing.T) {
	svc := newTestService()
	session := svc.CreateSession("en")

	sender := &recordingSender{}
	if err := svc.AttachConnection(session.ID, sender); err != nil {
		t.Fatalf("AttachConnection failed: %v", err)
	}

	svc.CloseSession(session.ID)
	svc.CloseSession(session.ID)

	if session.Active() {
		t.Error("Closed session should be inactive")
	}
	if !sender.Closed() {
		t.Error("Closing a session should close its connection")
	}
	if _, err := svc.GetSession(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Closed session should be removed from the registry")
	}
}

func TestDetachKeepsSessionAlive(t *testing.T) {
	svc := newTestService()
	session := svc.CreateSession("en")

	sender := &recordingSender{}
	if err := svc.AttachConnection(session.ID, sender); err != nil {
		t.Fatalf("AttachConnection failed: %v", err)
	}
	svc.DetachConnection(session.ID, sender)

	if !session.Active() {
		t.Error("Detaching should not deactivate the session")
	}
	if session.Sender() != nil {
		t.Error("Detaching should clear the sender")
	}
	if sender.Closed() {
		t.Error("Detaching should not close the connection")
	}
}

func TestStaleDetachKeepsReconnectedSender(t *testing.T) {
	svc := newTestService()
	session := svc.CreateSession("en")

	first := &recordingSender{}
	if err := svc.AttachConnection(session.ID, first); err != nil {
		t.Fatalf("AttachConnection failed: %v", err)
	}
	second := &recordingSender{}
	if err := svc.AttachConnection(session.ID, second); err != nil {
		t.Fatalf("Reconnect AttachConnection failed: %v", err)
	}

	svc.DetachConnection(session.ID, first)

	if session.Sender() == nil {
		t.Fatal("Stale detach must not clear the reconnected sender")
	}
	if err := session.Sender().Send([]byte(`{}`)); err != nil {
		t.Errorf("Reconnected sender should still accept frames: %v", err)
	}
	if len(second.Frames()) != 1 {
		t.Error("Frame should reach the reconnected sender")
	}
}

func TestEnqueueAudioRejectsEmpty(t *testing.T) {
	svc := newTestService()
	session := svc.CreateSession("en")

	if _, err := svc.EnqueueAudio(session.ID, nil, 0, false); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Expected ErrEmptyAudio, got %v", err)
	}
}

func TestEnqueueAudioBackpressure(t *testing.T) {
	svc := NewStreamingService(StreamingOptions{BufferMaxBytes: 1024, QueueDepth: 32})
	session := svc.CreateSession("en")

	payload := bytes.Repeat([]byte{0xAB}, 600)
	if _, err := svc.EnqueueAudio(session.ID, payload, 0, false); err != nil {
		t.Fatalf("First chunk should fit: %v", err)
	}
	if _, err := svc.EnqueueAudio(session.ID, payload, 1, false); !errors.Is(err, entities.ErrBufferFull) {
		t.Errorf("Expected ErrBufferFull, got %v", err)
	}
}

func TestQueueSpeechDefaultsLanguage(t *testing.T) {
	svc := newTestService()
	session := svc.CreateSession("zh")

	if err := svc.QueueSpeech(session.ID, "你好", ""); err != nil {
		t.Fatalf("QueueSpeech failed: %v", err)
	}

	select {
	case req := <-session.Outbound():
		if req.Language != "zh" {
			t.Errorf("Expected session language zh, got %s", req.Language)
		}
	default:
		t.Fatal("Expected a queued speech request")
	}
}

func TestQueueSpeechRejectsBlank(t *testing.T) {
	svc := newTestService()
	session := svc.CreateSession("en")

	if err := svc.QueueSpeech(session.ID, "   \n", "en"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Expected ErrEmptyText, got %v", err)
	}
}

func TestExpireSessionsClosesIdleOnly(t *testing.T) {
	svc := NewStreamingService(StreamingOptions{
		BufferMaxBytes: 1 << 20,
		SessionTimeout: time.Minute,
	})
	idle := svc.CreateSession("en")
	fresh := svc.CreateSession("en")

	idle.SetLastActivity(time.Now().Add(-2 * time.Minute))
	svc.ExpireSessions()

	if _, err := svc.GetSession(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Idle session should have been expired")
	}
	if _, err := svc.GetSession(fresh.ID); err != nil {
		t.Errorf("Fresh session should survive expiry: %v", err)
	}
}

func TestStopClosesEverything(t *testing.T) {
	svc := newTestService()
	a := svc.CreateSession("en")
	b := svc.CreateSession("zh")

	svc.Stop()

	if a.Active() || b.Active() {
		t.Error("Stop should deactivate every session")
	}
	if len(svc.AllStats().ActiveSessions) != 0 {
		t.Error("Stop should empty the registry")
	}
}

func TestAllStatsAggregates(t *testing.T) {
	svc := NewStreamingService(StreamingOptions{
		BufferMaxBytes:       1 << 20,
		QueueDepth:           32,
		TranscriptionWorkers: 3,
		SynthesisWorkers:     2,
	})
	session := svc.CreateSession("en")
	if _, err := svc.EnqueueAudio(session.ID, []byte{1, 2, 3, 4}, 0, false); err != nil {
		t.Fatalf("EnqueueAudio failed: %v", err)
	}

	stats := svc.AllStats()
	if stats.TotalSessions != 1 {
		t.Errorf("Expected 1 session, got %d", stats.TotalSessions)
	}
	if len(stats.ActiveSessions) != 1 || stats.ActiveSessions[0] != session.ID {
		t.Errorf("Expected active session %s, got %v", session.ID, stats.ActiveSessions)
	}
	if stats.Service.TranscriptionWorkers != 3 || stats.Service.SynthesisWorkers != 2 {
		t.Error("Worker counts should be reported in aggregate stats")
	}
	if stats.Service.BufferedBytes != 4 {
		t.Errorf("Expected 4 buffered bytes, got %d", stats.Service.BufferedBytes)
	}
}

func TestSessionStatsSnapshot(t *testing.T) {
	svc := newTestService()
	session := svc.CreateSession("en")
	if _, err := svc.EnqueueAudio(session.ID, []byte{1, 2, 3}, 0, false); err != nil {
		t.Fatalf("EnqueueAudio failed: %v", err)
	}

	stats, err := svc.Stats(session.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.SessionID != session.ID {
		t.Error("Stats should carry the session ID")
	}
	if stats.PendingTranscriptions != 1 || stats.BufferChunks != 1 {
		t.Errorf("Expected one pending chunk, got %+v", stats)
	}
}
