package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sonara-ai/sonara/internal/auth"
	"github.com/sonara-ai/sonara/internal/websocket"
	"github.com/sonara-ai/sonara/usecase"
)

// Options configures the HTTP surface.
type Options struct {
	// StreamAuth requires a stream token on websocket connections.
	StreamAuth bool

	// MetricsEnabled exposes /metrics.
	MetricsEnabled bool
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, service *usecase.StreamingService, gateway *websocket.Gateway, opts Options, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "sonara-server",
		})
	})

	if opts.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	// Session control APIs
	v1 := e.Group("/api/v1")

	v1.POST("/sessions", func(c echo.Context) error {
		return createSession(c, service, opts, logger)
	})
	v1.GET("/sessions", func(c echo.Context) error {
		return c.JSON(http.StatusOK, service.AllStats())
	})
	v1.GET("/sessions/:session_id/stats", func(c echo.Context) error {
		return getSessionStats(c, service)
	})
	v1.GET("/sessions/:session_id/history", func(c echo.Context) error {
		return getSessionHistory(c, service)
	})
	v1.DELETE("/sessions/:session_id", func(c echo.Context) error {
		return deleteSession(c, service)
	})

	// Stream endpoint
	e.GET("/ws/:session_id", func(c echo.Context) error {
		return streamSession(c, service, gateway, opts, logger)
	})
}

func createSession(c echo.Context, service *usecase.StreamingService, opts Options, logger *zap.Logger) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	session := service.CreateSession(req.Language)

	resp := CreateSessionResponse{
		SessionID:      session.ID,
		Language:       session.Language,
		CreatedAt:      session.CreatedAt.Unix(),
		StreamEndpoint: "/ws/" + session.ID,
	}
	if opts.StreamAuth {
		token, err := auth.GenerateStreamToken(session.ID)
		if err != nil {
			logger.Error("Failed to generate stream token",
				zap.String("sessionID", session.ID),
				zap.Error(err))
			service.CloseSession(session.ID)
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "token_generation_failed",
				Message: "Failed to generate stream token",
			})
		}
		resp.StreamToken = token
	}

	return c.JSON(http.StatusCreated, resp)
}

func getSessionStats(c echo.Context, service *usecase.StreamingService) error {
	stats, err := service.Stats(c.Param("session_id"))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func getSessionHistory(c echo.Context, service *usecase.StreamingService) error {
	session, err := service.GetSession(c.Param("session_id"))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": session.ID,
		"history":    session.History(),
	})
}

func deleteSession(c echo.Context, service *usecase.StreamingService) error {
	sessionID := c.Param("session_id")
	if _, err := service.GetSession(sessionID); err != nil {
		return sessionError(c, err)
	}
	service.CloseSession(sessionID)
	return c.JSON(http.StatusOK, map[string]string{
		"session_id": sessionID,
		"status":     "closed",
	})
}

func streamSession(c echo.Context, service *usecase.StreamingService, gateway *websocket.Gateway, opts Options, logger *zap.Logger) error {
	sessionID := c.Param("session_id")
	session, err := service.GetSession(sessionID)
	if err != nil {
		return sessionError(c, err)
	}

	if opts.StreamAuth {
		token := c.QueryParam("token")
		if token == "" {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "missing_token",
				Message: "Stream token is required",
			})
		}
		if err := auth.ValidateStreamToken(token, sessionID); err != nil {
			logger.Warn("Stream connection rejected: invalid token",
				zap.String("sessionID", sessionID),
				zap.Error(err))
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "Invalid or expired stream token",
			})
		}
	}

	return gateway.HandleConnection(c, session)
}

func sessionError(c echo.Context, err error) error {
	if errors.Is(err, usecase.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "No session with that ID",
		})
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: err.Error(),
	})
}
