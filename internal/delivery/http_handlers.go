package delivery

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/internal/usecase"
	"adsinsight/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	serviceName    = "adsinsight"
	serviceVersion = "1.0.0"
)

// handles HTTP requests
type HTTPHandlers struct {
	chatService *usecase.ChatService
	logger      *logger.Logger
}

func NewHTTPHandlers(chatService *usecase.ChatService, logger *logger.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		chatService: chatService,
		logger:      logger,
	}
}

// accepts either "message" or the older "query" field
type chatRequest struct {
	SessionID string       `json:"session_id"`
	Message   string       `json:"message"`
	Query     string       `json:"query"`
	Rows      []domain.Row `json:"rows"`
}

type chatResponse struct {
	*usecase.AskResponse
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
}

// answers a chat question
func (h *HTTPHandlers) Chat(c *gin.Context) {
	requestID := c.GetString("request_id")
	ctx := c.Request.Context()

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid request body",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	question := strings.TrimSpace(req.Message)
	if question == "" {
		question = strings.TrimSpace(req.Query)
	}

	resp, err := h.chatService.Ask(ctx, usecase.AskRequest{
		SessionID: req.SessionID,
		Question:  question,
		Rows:      req.Rows,
	})
	if err != nil {
		h.writeError(c, err, "Chat failed")
		return
	}

	c.JSON(http.StatusOK, chatResponse{AskResponse: resp, Success: true, RequestID: requestID})
}

type analyzeRequest struct {
	Question string       `json:"question"`
	Rows     []domain.Row `json:"rows" binding:"required"`
}

// returns the aggregate bundle for caller supplied rows
func (h *HTTPHandlers) Analyze(c *gin.Context) {
	requestID := c.GetString("request_id")
	ctx := c.Request.Context()

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid request body",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	bundle, err := h.chatService.Analyze(ctx, usecase.AnalyzeRequest{Question: req.Question, Rows: req.Rows})
	if err != nil {
		h.writeError(c, err, "Analysis failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bundle":     bundle,
		"request_id": requestID,
	})
}

func (h *HTTPHandlers) GetHistory(c *gin.Context) {
	requestID := c.GetString("request_id")
	sessionID := c.Param("session_id")

	messages, err := h.chatService.History(c.Request.Context(), sessionID)
	if err != nil {
		h.writeError(c, err, "Failed to get history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":   sessionID,
		"chat_history": messages,
		"count":        len(messages),
		"request_id":   requestID,
	})
}

func (h *HTTPHandlers) DeleteHistory(c *gin.Context) {
	requestID := c.GetString("request_id")
	sessionID := c.Param("session_id")

	if err := h.chatService.ClearHistory(c.Request.Context(), sessionID); err != nil {
		h.writeError(c, err, "Failed to delete history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "History deleted",
		"session_id": sessionID,
		"request_id": requestID,
	})
}

type cacheEntryResponse struct {
	Key              string  `json:"key"`
	Rows             int     `json:"rows"`
	AgeSeconds       float64 `json:"age_seconds"`
	ExpiresInSeconds float64 `json:"expires_in_seconds"`
	Expired          bool    `json:"expired"`
}

func (h *HTTPHandlers) CacheStatus(c *gin.Context) {
	requestID := c.GetString("request_id")

	entries, err := h.chatService.CacheStatus(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to get cache status")
		return
	}

	out := make([]cacheEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = cacheEntryResponse{
			Key:              e.Key,
			Rows:             e.Rows,
			AgeSeconds:       e.Age.Seconds(),
			ExpiresInSeconds: e.ExpiresIn.Seconds(),
			Expired:          e.Expired,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":    out,
		"count":      len(out),
		"request_id": requestID,
	})
}

func (h *HTTPHandlers) ClearCache(c *gin.Context) {
	requestID := c.GetString("request_id")

	n, err := h.chatService.ClearCache(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to clear cache")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Cache cleared",
		"cleared":    n,
		"request_id": requestID,
	})
}

// GetAPIInfo returns API v1 information and available endpoints
func (h *HTTPHandlers) GetAPIInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"api_version": "v1",
		"service":     serviceName,
		"version":     serviceVersion,
		"description": "Question answering over advertising performance worksheets",
		"endpoints": gin.H{
			"chat": gin.H{
				"path":        "/api/v1/chat",
				"methods":     []string{"POST"},
				"description": "Answer a question about the configured or supplied worksheet rows",
				"body":        gin.H{"session_id": "optional", "message": "question text", "rows": "optional row objects"},
			},
			"analyze": gin.H{
				"path":        "/api/v1/analyze",
				"methods":     []string{"POST"},
				"description": "Return the aggregate bundle for supplied rows",
				"body":        gin.H{"question": "question text", "rows": "row objects"},
			},
			"history": gin.H{
				"path":    "/api/v1/history/:session_id",
				"methods": []string{"GET", "DELETE"},
			},
			"cache": gin.H{
				"status": "/api/v1/cache/status",
				"clear":  "/api/v1/cache/clear",
			},
			"health":  "/health",
			"metrics": "/metrics",
		},
		"request_id": c.GetString("request_id"),
	})
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    serviceName,
		"version":    serviceVersion,
		"request_id": c.GetString("request_id"),
	})
}

func (h *HTTPHandlers) writeError(c *gin.Context, err error, message string) {
	requestID := c.GetString("request_id")
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, usecase.ErrNoRows), errors.Is(err, usecase.ErrNoSources):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	case errors.Is(err, context.Canceled):
		status = 499
	}

	log := h.logger.WithContext(c.Request.Context()).WithError(err)
	if status >= http.StatusInternalServerError {
		log.Error(message)
	} else {
		log.Warn(message)
	}

	c.Error(err)
	c.JSON(status, gin.H{
		"error":      message,
		"message":    err.Error(),
		"request_id": requestID,
	})
}
