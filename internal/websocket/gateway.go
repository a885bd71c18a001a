// Package websocket is the stream gateway: it upgrades HTTP connections,
// binds them to conversation sessions and translates between wire frames and
// the streaming service.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sonara-ai/sonara/domain"
	"github.com/sonara-ai/sonara/domain/entities"
	"github.com/sonara-ai/sonara/internal/sanitize"
	"github.com/sonara-ai/sonara/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Hex-encoded audio doubles the
	// raw payload, so this bounds chunks at roughly 256KB of audio.
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var (
	errClientClosed   = errors.New("client connection closed")
	errSendBufferFull = errors.New("client send buffer full")
)

// Gateway wires websocket connections to the streaming service.
type Gateway struct {
	service *usecase.StreamingService
	logger  *zap.Logger
}

// NewGateway creates a gateway over the given service.
func NewGateway(service *usecase.StreamingService, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{service: service, logger: logger}
}

// Client is one live connection bound to a session. It implements
// entities.StreamSender so workers can push frames through it.
type Client struct {
	gateway   *Gateway
	conn      *websocket.Conn
	sessionID string
	logger    *zap.Logger

	// Buffered channel of outbound frames.
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// Send queues a frame for delivery. Frames to a slow client are dropped
// rather than blocking a worker.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return errSendBufferFull
	}
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	})
	return nil
}

// HandleConnection upgrades the request and binds the connection to the
// session. The session must already exist; unknown IDs are rejected before
// the upgrade.
func (g *Gateway) HandleConnection(c echo.Context, session *entities.ConversationSession) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		g.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		gateway:   g,
		conn:      conn,
		sessionID: session.ID,
		logger:    g.logger.With(zap.String("sessionID", session.ID)),
		send:      make(chan []byte, 256),
		done:      make(chan struct{}),
	}

	if err := g.service.AttachConnection(session.ID, client); err != nil {
		client.Close()
		return err
	}

	if err := client.Send(domain.ConnectionEstablishedFrame(session.ID)); err != nil {
		client.logger.Warn("Failed to queue greeting frame", zap.Error(err))
	}

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps frames from the connection into the streaming service.
func (c *Client) readPump() {
	defer func() {
		c.gateway.service.DetachConnection(c.sessionID, c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.sendError("expected a JSON text frame")
			continue
		}
		c.dispatch(message)
	}
}

// writePump pumps queued frames to the connection and keeps it alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Error("Failed to write frame", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound frame.
func (c *Client) dispatch(message []byte) {
	var envelope domain.Envelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		c.sendError("invalid JSON frame")
		return
	}

	switch envelope.Type {
	case domain.FrameAudioChunk:
		c.handleAudioChunk(envelope.Data)
	case domain.FrameTextRequest:
		c.handleTextRequest(envelope.Data)
	case domain.FrameControl:
		c.handleControl(envelope.Data)
	default:
		c.sendError(fmt.Sprintf("unknown message type: %s", sanitize.Message(string(envelope.Type))))
	}
}

func (c *Client) handleAudioChunk(data json.RawMessage) {
	var payload domain.AudioChunkData
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("invalid audio_chunk data")
		return
	}

	audio, err := payload.DecodePayload()
	if err != nil {
		c.sendError("audio_data must be hex encoded")
		return
	}

	chunk, err := c.gateway.service.EnqueueAudio(c.sessionID, audio, payload.ChunkIndex, payload.IsFinal)
	switch {
	case errors.Is(err, usecase.ErrEmptyAudio):
		c.sendError("no audio data provided")
		return
	case errors.Is(err, entities.ErrBufferFull):
		c.sendError("audio buffer full, chunk rejected")
		return
	case err != nil:
		c.sendError("failed to accept audio chunk")
		return
	}

	c.Send(domain.ChunkReceivedFrame(chunk.ID, chunk.ChunkIndex, chunk.Size(), chunk.IsFinal))
}

func (c *Client) handleTextRequest(data json.RawMessage) {
	var payload domain.TextRequestData
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("invalid text_request data")
		return
	}

	err := c.gateway.service.QueueSpeech(c.sessionID, payload.Text, payload.Language)
	switch {
	case errors.Is(err, usecase.ErrEmptyText):
		c.sendError("no text provided")
		return
	case errors.Is(err, entities.ErrBufferFull):
		c.sendError("speech queue full, request rejected")
		return
	case err != nil:
		c.sendError("failed to queue speech request")
		return
	}

	language := payload.Language
	if language == "" {
		if session, err := c.gateway.service.GetSession(c.sessionID); err == nil {
			language = session.Language
		}
	}
	c.Send(domain.TTSQueuedFrame(sanitize.Message(payload.Text), language))
}

func (c *Client) handleControl(data json.RawMessage) {
	var payload domain.ControlData
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("invalid control data")
		return
	}

	switch payload.Command {
	case domain.CommandPing:
		c.Send(domain.PongFrame())

	case domain.CommandStats:
		stats, err := c.gateway.service.Stats(c.sessionID)
		if err != nil {
			c.sendError("session not found")
			return
		}
		c.Send(domain.StatsResponseFrame(stats))

	case domain.CommandReset:
		// Reset acknowledges without mutating state. Buffers reclaim
		// processed chunks on their own; dropping unprocessed chunks here
		// would race the workers.
		c.Send(domain.ResetCompleteFrame())

	default:
		c.sendError(fmt.Sprintf("unknown command: %s", sanitize.Message(payload.Command)))
	}
}

func (c *Client) sendError(message string) {
	if err := c.Send(domain.ErrorFrame(message)); err != nil {
		c.logger.Debug("Dropped error frame", zap.Error(err))
	}
}
