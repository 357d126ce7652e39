package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyhall-app/studyhall/internal/middleware"
	"github.com/studyhall-app/studyhall/internal/realtime"
	"github.com/studyhall-app/studyhall/internal/services"
	appErrors "github.com/studyhall-app/studyhall/pkg/errors"
	"github.com/studyhall-app/studyhall/pkg/response"
)

// BoardHandler serves shared whiteboard endpoints.
type BoardHandler struct {
	boards *services.BoardService
	hub    *realtime.Hub
}

// NewBoardHandler constructs a BoardHandler.
func NewBoardHandler(boards *services.BoardService, hub *realtime.Hub) *BoardHandler {
	return &BoardHandler{boards: boards, hub: hub}
}

type createBoardRequest struct {
	RelationID string          `json:"relation_id" validate:"required,uuid4"`
	LessonID   *string         `json:"lesson_id" validate:"omitempty,uuid4"`
	Title      string          `json:"title" validate:"required,max=200"`
	Content    json.RawMessage `json:"content"`
}

type updateBoardContentRequest struct {
	Content json.RawMessage `json:"content" validate:"required"`
}

type renameBoardRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// POST /api/boards
func (h *BoardHandler) Create(c *gin.Context) {
	if h.boards == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createBoardRequest
	if !bindAndValidate(c, &req) {
		return
	}

	board, err := h.boards.Create(requestContext(c), userID, services.CreateBoardInput{
		RelationID: req.RelationID,
		LessonID:   req.LessonID,
		Title:      req.Title,
		Content:    req.Content,
	})
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.NewBadRequest(err.Error()))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"board": board})
}

// GET /api/boards/:id
func (h *BoardHandler) Get(c *gin.Context) {
	if h.boards == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	board, err := h.boards.Get(requestContext(c), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"board": board})
}

// GET /api/relations/:id/boards
func (h *BoardHandler) ListForRelation(c *gin.Context) {
	if h.boards == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	boards, err := h.boards.ListForRelation(requestContext(c), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"boards": boards})
}

// PUT /api/boards/:id/content
func (h *BoardHandler) UpdateContent(c *gin.Context) {
	if h.boards == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updateBoardContentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	board, err := h.boards.UpdateContent(requestContext(c), c.Param("id"), userID, req.Content)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.NewBadRequest(err.Error()))
		return
	}

	if h.hub != nil {
		h.hub.BroadcastStream(realtime.BoardStream(board.ID), realtime.Message{
			Event: realtime.EventBoardUpdated,
			Data: map[string]any{
				"board_id":   board.ID,
				"updated_by": userID,
			},
		})
	}

	response.Success(c, http.StatusOK, gin.H{"board": board})
}

// PATCH /api/boards/:id
func (h *BoardHandler) Rename(c *gin.Context) {
	if h.boards == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req renameBoardRequest
	if !bindStrict(c, &req) {
		return
	}

	board, err := h.boards.Rename(requestContext(c), c.Param("id"), userID, req.Title)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.NewBadRequest(err.Error()))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"board": board})
}

// DELETE /api/boards/:id
func (h *BoardHandler) Delete(c *gin.Context) {
	if h.boards == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.boards.Delete(requestContext(c), c.Param("id"), userID); err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
