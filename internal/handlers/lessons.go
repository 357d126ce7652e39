package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studyhall-app/studyhall/internal/middleware"
	"github.com/studyhall-app/studyhall/internal/services"
	appErrors "github.com/studyhall-app/studyhall/pkg/errors"
	"github.com/studyhall-app/studyhall/pkg/response"
)

// LessonHandler serves lesson scheduling and management endpoints.
type LessonHandler struct {
	lessons *services.LessonService
}

// NewLessonHandler constructs a LessonHandler.
func NewLessonHandler(lessons *services.LessonService) *LessonHandler {
	return &LessonHandler{lessons: lessons}
}

type scheduleLessonRequest struct {
	RelationID      string    `json:"relation_id" validate:"required,uuid4"`
	Title           string    `json:"title" validate:"required,max=200"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
	Notes           string    `json:"notes" validate:"omitempty,max=2000"`
}

// POST /api/lessons
func (h *LessonHandler) Schedule(c *gin.Context) {
	if h.lessons == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req scheduleLessonRequest
	if !bindAndValidate(c, &req) {
		return
	}

	lesson, err := h.lessons.Schedule(requestContext(c), userID, services.ScheduleLessonInput{
		RelationID:      req.RelationID,
		Title:           req.Title,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		if errors.Is(err, services.ErrLessonNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.NewBadRequest(err.Error()))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"lesson": lesson})
}

// GET /api/relations/:id/lessons
func (h *LessonHandler) ListForRelation(c *gin.Context) {
	if h.lessons == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	lessons, err := h.lessons.ListForRelation(requestContext(c), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, services.ErrLessonNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"lessons": lessons})
}

// GET /api/lessons/upcoming
func (h *LessonHandler) ListUpcoming(c *gin.Context) {
	if h.lessons == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	lessons, err := h.lessons.ListUpcoming(requestContext(c), userID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"lessons": lessons})
}

// PATCH /api/lessons/:id
func (h *LessonHandler) Update(c *gin.Context) {
	if h.lessons == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var patch services.LessonPatch
	if !bindStrict(c, &patch) {
		return
	}

	lesson, err := h.lessons.Update(requestContext(c), c.Param("id"), userID, patch)
	if err != nil {
		if errors.Is(err, services.ErrLessonNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.NewBadRequest(err.Error()))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"lesson": lesson})
}

// POST /api/lessons/:id/cancel
func (h *LessonHandler) Cancel(c *gin.Context) {
	if h.lessons == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	lesson, err := h.lessons.Cancel(requestContext(c), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, services.ErrLessonNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"lesson": lesson})
}
