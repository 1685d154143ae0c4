package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/internal/events"
	"github.com/sanhakwon/metrocast/internal/worker"
	"github.com/sanhakwon/metrocast/usecase"
)

// Handlers bundles the services the HTTP layer dispatches into.
type Handlers struct {
	Sessions *usecase.SessionService
	Keywords *usecase.KeywordService
	Results  *usecase.ResultsBuilder
	Pool     *worker.Pool
	Runner   *usecase.Orchestrator
	Hub      *events.Hub
	Logger   *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handlers) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "metrocast",
		})
	})

	api := e.Group("/api")

	// Session lifecycle
	api.POST("/sessions", h.createSession)
	api.GET("/sessions/:id", h.getSession)
	api.DELETE("/sessions/:id", h.deleteSession)
	api.GET("/sessions/:id/status", h.sessionStatus)
	api.GET("/sessions/:id/results", h.sessionResults)
	api.GET("/sessions/:id/stream", h.streamSession)

	// Chunk intake
	api.POST("/chunks", h.uploadChunk)

	// Keyword management
	api.POST("/keywords", h.registerKeywords)
	api.GET("/keywords", h.listKeywords)
	api.DELETE("/keywords/:id", h.deleteKeyword)

	// WebSocket event stream
	e.GET("/ws/sessions/:id", h.sessionWebSocket)
}

func (h *Handlers) createSession(c echo.Context) error {
	session, err := h.Sessions.Create(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

func (h *Handlers) getSession(c echo.Context) error {
	session, err := h.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handlers) deleteSession(c echo.Context) error {
	if err := h.Sessions.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"detail": "session deleted",
	})
}

func (h *Handlers) sessionStatus(c echo.Context) error {
	status, err := h.Sessions.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}

	alerts := status.Alerts
	if alerts == nil {
		alerts = []*entities.Alert{}
	}
	return c.JSON(http.StatusOK, SessionStatusResponse{
		SessionID:     status.Session.ID,
		Status:        string(status.Session.Status),
		Progress:      status.Session.Progress,
		DoneChunks:    status.DoneChunks,
		TotalChunks:   status.Total,
		TotalAlerts:   len(alerts),
		KeywordAlerts: alerts,
	})
}

func (h *Handlers) sessionResults(c echo.Context) error {
	sessionID := c.Param("id")
	if _, err := h.Sessions.Get(c.Request().Context(), sessionID); err != nil {
		return h.fail(c, err)
	}

	results, err := h.Results.Build(c.Request().Context(), sessionID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, results)
}

// uploadChunk accepts a multipart audio upload and hands the processing to
// the worker pool. The response only acknowledges intake; recognition results
// arrive on the session's event stream.
func (h *Handlers) uploadChunk(c echo.Context) error {
	sessionID := c.FormValue("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "session_id is required",
		})
	}

	file, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "audio file is required",
		})
	}

	src, err := file.Open()
	if err != nil {
		return h.fail(c, err)
	}
	defer src.Close()

	chunk, err := h.Sessions.AcceptChunk(c.Request().Context(), sessionID, src)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.Pool.Submit(&chunkJob{runner: h.Runner, chunkID: chunk.ID}); err != nil {
		h.Logger.Warn("Chunk queue full, processing inline",
			zap.String("chunk_id", chunk.ID),
			zap.Error(err))
		go func() {
			if perr := h.Runner.ProcessChunk(context.Background(), chunk.ID); perr != nil {
				h.Logger.Error("Inline chunk processing failed",
					zap.String("chunk_id", chunk.ID),
					zap.Error(perr))
			}
		}()
	}

	return c.JSON(http.StatusAccepted, ChunkUploadResponse{
		ChunkID:   chunk.ID,
		SessionID: chunk.SessionID,
		Status:    string(chunk.Status),
	})
}

func (h *Handlers) registerKeywords(c echo.Context) error {
	var req RegisterKeywordsRequest
	if err := c.Bind(&req); err != nil {
		h.Logger.Error("Failed to bind keyword request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	}

	registered, err := h.Keywords.Register(c.Request().Context(), req.SessionID, req.Words)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, keywordResponses(registered))
}

func (h *Handlers) listKeywords(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "session_id query parameter is required",
		})
	}

	keywords, err := h.Keywords.List(c.Request().Context(), sessionID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, keywordResponses(keywords))
}

func (h *Handlers) deleteKeyword(c echo.Context) error {
	id := c.Param("id")
	word, err := h.Keywords.Delete(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, KeywordDeletedResponse{
		ID:     id,
		Word:   word,
		Detail: "keyword deleted",
	})
}

// streamSession serves the session's events over Server-Sent Events for
// clients that cannot hold a WebSocket.
func (h *Handlers) streamSession(c echo.Context) error {
	sessionID := c.Param("id")
	if _, err := h.Sessions.Get(c.Request().Context(), sessionID); err != nil {
		return h.fail(c, err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	sub := h.Hub.Subscribe(sessionID)
	defer h.Hub.Unsubscribe(sub)

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("Failed to marshal event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

func (h *Handlers) sessionWebSocket(c echo.Context) error {
	sessionID := c.Param("id")
	if _, err := h.Sessions.Get(c.Request().Context(), sessionID); err != nil {
		return h.fail(c, err)
	}
	return events.ServeWebSocket(h.Hub, c, sessionID, h.Logger)
}

// fail maps domain errors onto HTTP status codes.
func (h *Handlers) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Resource not found",
		})
	case errors.Is(err, entities.ErrExpired):
		return c.JSON(http.StatusGone, ErrorResponse{
			Error:   "session_expired",
			Message: "Session expired and was removed",
		})
	default:
		h.Logger.Error("Request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Unexpected server error",
		})
	}
}

// chunkJob adapts a chunk ID to the worker pool's job interface.
type chunkJob struct {
	runner  *usecase.Orchestrator
	chunkID string
}

func (j *chunkJob) ID() string {
	return j.chunkID
}

func (j *chunkJob) Execute(ctx context.Context) error {
	return j.runner.ProcessChunk(ctx, j.chunkID)
}
