package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studyhall-app/studyhall/internal/middleware"
	"github.com/studyhall-app/studyhall/internal/models"
	"github.com/studyhall-app/studyhall/internal/services"
	appErrors "github.com/studyhall-app/studyhall/pkg/errors"
	"github.com/studyhall-app/studyhall/pkg/metrics"
	"github.com/studyhall-app/studyhall/pkg/response"
)

// InviteHandler serves invite issuance, lookup, and acceptance.
type InviteHandler struct {
	invites *services.InviteService
}

// NewInviteHandler constructs an InviteHandler.
func NewInviteHandler(invites *services.InviteService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

type createInviteRequest struct {
	Type           string `json:"type" validate:"omitempty,oneof=STUDENT_TO_TEACHER TEACHER_TO_STUDENT"`
	Message        string `json:"message" validate:"omitempty,max=500"`
	ExpiresInHours int    `json:"expires_in_hours" validate:"omitempty,min=1,max=2160"`
}

type acceptInviteRequest struct {
	Code string `json:"code" validate:"required"`
}

type inviteDTO struct {
	Code      string            `json:"code"`
	Type      models.InviteType `json:"type"`
	Message   string            `json:"message,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedBy *userDTO          `json:"created_by,omitempty"`
}

// POST /api/invites
func (h *InviteHandler) Create(c *gin.Context) {
	if h.invites == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	code, err := h.invites.Issue(requestContext(c), services.IssueInviteInput{
		CreatedByID: userID,
		Type:        models.InviteType(req.Type),
		Message:     req.Message,
		ExpiresIn:   time.Duration(req.ExpiresInHours) * time.Hour,
	})
	if err != nil {
		if errors.Is(err, services.ErrInviteInvalidType) {
			response.Error(c, appErrors.NewBadRequest("Unknown invite type"))
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"code": code})
}

// GET /api/invites/:code
func (h *InviteHandler) Resolve(c *gin.Context) {
	if h.invites == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	invite, err := h.invites.Resolve(requestContext(c), c.Param("code"))
	if err != nil {
		if errors.Is(err, services.ErrInviteNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"invite": toInviteDTO(invite)})
}

// POST /api/invites/accept
func (h *InviteHandler) Accept(c *gin.Context) {
	if h.invites == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req acceptInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	relation, err := h.invites.Activate(requestContext(c), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInviteNotFound):
			metrics.InviteActivations.WithLabelValues("not_found").Inc()
			response.Error(c, appErrors.ErrNotFound)
		case errors.Is(err, services.ErrInviteSelfAccept):
			metrics.InviteActivations.WithLabelValues("self_accept").Inc()
			response.Error(c, appErrors.NewInvalidOperation("You cannot accept your own invite"))
		default:
			metrics.InviteActivations.WithLabelValues("error").Inc()
			response.Error(c, appErrors.ErrInternalServer)
		}
		return
	}

	metrics.InviteActivations.WithLabelValues("accepted").Inc()
	response.Success(c, http.StatusCreated, gin.H{"relation": relation})
}

// GET /api/invites
func (h *InviteHandler) List(c *gin.Context) {
	if h.invites == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	invites, err := h.invites.ListCreatedBy(requestContext(c), userID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	items := make([]inviteDTO, 0, len(invites))
	for i := range invites {
		items = append(items, toInviteDTO(&invites[i]))
	}

	response.Success(c, http.StatusOK, gin.H{"invites": items})
}

func toInviteDTO(invite *models.InviteLink) inviteDTO {
	dto := inviteDTO{
		Code:      invite.Code,
		Type:      invite.Type,
		Message:   invite.Message,
		ExpiresAt: invite.ExpiresAt,
	}
	if invite.CreatedBy != nil {
		creator := toUserDTO(invite.CreatedBy)
		dto.CreatedBy = &creator
	}
	return dto
}
