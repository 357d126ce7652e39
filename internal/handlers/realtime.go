package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/studyhall-app/studyhall/internal/auth"
	"github.com/studyhall-app/studyhall/internal/middleware"
	"github.com/studyhall-app/studyhall/internal/realtime"
	"github.com/studyhall-app/studyhall/internal/services"
	appErrors "github.com/studyhall-app/studyhall/pkg/errors"
	"github.com/studyhall-app/studyhall/pkg/response"
)

// RealtimeHandler upgrades websocket clients into the hub and reports presence.
type RealtimeHandler struct {
	hub       *realtime.Hub
	jwt       *iauth.JWTService
	relations *services.RelationService
	boards    *services.BoardService
}

// NewRealtimeHandler constructs a RealtimeHandler.
func NewRealtimeHandler(hub *realtime.Hub, jwt *iauth.JWTService, relations *services.RelationService, boards *services.BoardService) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, jwt: jwt, relations: relations, boards: boards}
}

// GET /api/realtime/ws
//
// Browsers cannot set an Authorization header on websocket upgrades, so the
// access token is carried in the `token` query parameter instead. Initial
// subscriptions come from the comma separated `streams` parameter; clients can
// adjust them later with subscribe/unsubscribe control frames.
func (h *RealtimeHandler) Serve(c *gin.Context) {
	if h.hub == nil || h.jwt == nil || h.relations == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	allowed, err := h.allowedStreams(c, claims.UserID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	streams := gatherStreams(c.Query("streams"))
	if len(streams) == 0 {
		streams = []string{realtime.StreamPresence}
	}

	h.hub.Serve(claims.UserID, streams, allowed, c.Writer, c.Request)
}

// GET /api/realtime/presence
//
// Returns the online state of every counterparty across the caller's live
// relations.
func (h *RealtimeHandler) Presence(c *gin.Context) {
	if h.hub == nil || h.relations == nil {
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

	presence := map[string]bool{}
	for _, relation := range listing.AsTeacher {
		presence[relation.StudentID] = h.hub.IsOnline(relation.StudentID)
	}
	for _, relation := range listing.AsStudent {
		presence[relation.TeacherID] = h.hub.IsOnline(relation.TeacherID)
	}

	response.Success(c, http.StatusOK, gin.H{"online": presence})
}

// allowedStreams builds the subscription allow-list for a user: the presence
// stream, one chat stream per live relation, and the board streams inside
// those relations.
func (h *RealtimeHandler) allowedStreams(c *gin.Context, userID string) (map[string]struct{}, error) {
	listing, err := h.relations.ListForUser(requestContext(c), userID)
	if err != nil {
		return nil, err
	}

	allowed := map[string]struct{}{
		realtime.StreamPresence: {},
	}

	relationIDs := make([]string, 0, len(listing.AsTeacher)+len(listing.AsStudent))
	for _, relation := range listing.AsTeacher {
		relationIDs = append(relationIDs, relation.ID)
	}
	for _, relation := range listing.AsStudent {
		relationIDs = append(relationIDs, relation.ID)
	}

	for _, relationID := range relationIDs {
		allowed[realtime.ChatStream(relationID)] = struct{}{}

		if h.boards == nil {
			continue
		}
		boards, err := h.boards.ListForRelation(requestContext(c), relationID, userID)
		if err != nil {
			return nil, err
		}
		for _, board := range boards {
			allowed[realtime.BoardStream(board.ID)] = struct{}{}
		}
	}

	return allowed, nil
}

func gatherStreams(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	streams := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			streams = append(streams, part)
		}
	}
	return streams
}
