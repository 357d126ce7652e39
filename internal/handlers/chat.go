package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studyhall-app/studyhall/internal/middleware"
	"github.com/studyhall-app/studyhall/internal/realtime"
	"github.com/studyhall-app/studyhall/internal/services"
	appErrors "github.com/studyhall-app/studyhall/pkg/errors"
	"github.com/studyhall-app/studyhall/pkg/response"
)

// ChatHandler serves conversation endpoints and fans messages out to the
// realtime hub.
type ChatHandler struct {
	chat *services.ChatService
	hub  *realtime.Hub
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(chat *services.ChatService, hub *realtime.Hub) *ChatHandler {
	return &ChatHandler{chat: chat, hub: hub}
}

type postMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// POST /api/relations/:id/messages
func (h *ChatHandler) Post(c *gin.Context) {
	if h.chat == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req postMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	relationID := c.Param("id")
	message, err := h.chat.Post(requestContext(c), userID, relationID, req.Body)
	if err != nil {
		if errors.Is(err, services.ErrChatNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.NewBadRequest(err.Error()))
		return
	}

	if h.hub != nil {
		h.hub.BroadcastStream(realtime.ChatStream(relationID), realtime.Message{
			Event: realtime.EventChatMessage,
			Data:  message,
		})
	}

	response.Success(c, http.StatusCreated, gin.H{"message": message})
}

// GET /api/relations/:id/messages
//
// Supports `limit` and a `before` RFC 3339 cursor for walking history.
func (h *ChatHandler) List(c *gin.Context) {
	if h.chat == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.NewBadRequest("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	var before time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("before must be an RFC 3339 timestamp"))
			return
		}
		before = parsed
	}

	messages, err := h.chat.List(requestContext(c), userID, c.Param("id"), limit, before)
	if err != nil {
		if errors.Is(err, services.ErrChatNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"messages": messages})
}

// POST /api/relations/:id/messages/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	if h.chat == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	relationID := c.Param("id")
	receipted, err := h.chat.MarkRead(requestContext(c), userID, relationID)
	if err != nil {
		if errors.Is(err, services.ErrChatNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	if h.hub != nil && receipted > 0 {
		h.hub.BroadcastStream(realtime.ChatStream(relationID), realtime.Message{
			Event: realtime.EventChatRead,
			Data: map[string]any{
				"relation_id": relationID,
				"reader_id":   userID,
				"count":       receipted,
			},
		})
	}

	response.Success(c, http.StatusOK, gin.H{"read": receipted})
}

// GET /api/chat/unread
func (h *ChatHandler) UnreadCounts(c *gin.Context) {
	if h.chat == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	counts, err := h.chat.UnreadCounts(requestContext(c), userID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unread": counts})
}
