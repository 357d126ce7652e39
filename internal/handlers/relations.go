package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyhall-app/studyhall/internal/middleware"
	"github.com/studyhall-app/studyhall/internal/services"
	appErrors "github.com/studyhall-app/studyhall/pkg/errors"
	"github.com/studyhall-app/studyhall/pkg/response"
)

// RelationHandler serves the teacher-student relation endpoints.
type RelationHandler struct {
	relations *services.RelationService
}

// NewRelationHandler constructs a RelationHandler.
func NewRelationHandler(relations *services.RelationService) *RelationHandler {
	return &RelationHandler{relations: relations}
}

// GET /api/relations
func (h *RelationHandler) List(c *gin.Context) {
	if h.relations == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	listing, err := h.relations.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, listing)
}

// GET /api/relations/:id
func (h *RelationHandler) Get(c *gin.Context) {
	if h.relations == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	relation, err := h.relations.GetLive(requestContext(c), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, services.ErrRelationNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"relation": relation})
}

// PATCH /api/relations/:id
//
// The payload is decoded strictly so requests carrying fields outside the
// allow-list fail instead of being silently ignored.
func (h *RelationHandler) Update(c *gin.Context) {
	if h.relations == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var patch services.RelationPatch
	if !bindStrict(c, &patch) {
		return
	}

	relation, err := h.relations.Update(requestContext(c), c.Param("id"), userID, patch)
	if err != nil {
		if errors.Is(err, services.ErrRelationNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"relation": relation})
}

// DELETE /api/relations/:id
func (h *RelationHandler) Delete(c *gin.Context) {
	if h.relations == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	relation, err := h.relations.SoftDelete(requestContext(c), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, services.ErrRelationNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"relation": relation})
}
