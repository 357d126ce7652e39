package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studyhall-app/studyhall/internal/middleware"
	"github.com/studyhall-app/studyhall/internal/services"
	appErrors "github.com/studyhall-app/studyhall/pkg/errors"
	"github.com/studyhall-app/studyhall/pkg/response"
)

// AttachmentHandler serves file upload and download endpoints.
type AttachmentHandler struct {
	attachments *services.AttachmentService
}

// NewAttachmentHandler constructs an AttachmentHandler.
func NewAttachmentHandler(attachments *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

// POST /api/relations/:id/attachments
//
// Multipart upload with the content under the "file" field. An optional
// "lesson_id" form value links the attachment to a lesson.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	if h.attachments == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("a file field is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("unable to read upload"))
		return
	}
	defer file.Close()

	var lessonID *string
	if value := strings.TrimSpace(c.PostForm("lesson_id")); value != "" {
		lessonID = &value
	}

	attachment, err := h.attachments.Save(requestContext(c), userID, services.SaveAttachmentInput{
		RelationID:  c.Param("id"),
		LessonID:    lessonID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Reader:      file,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAttachmentNotFound):
			response.Error(c, appErrors.ErrNotFound)
		case errors.Is(err, services.ErrAttachmentTooLarge):
			response.Error(c, appErrors.NewBadRequest("file exceeds the maximum upload size"))
		default:
			response.Error(c, appErrors.ErrInternalServer)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attachment": attachment})
}

// GET /api/relations/:id/attachments
func (h *AttachmentHandler) ListForRelation(c *gin.Context) {
	if h.attachments == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	attachments, err := h.attachments.ListForRelation(requestContext(c), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, services.ErrAttachmentNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attachments": attachments})
}

// GET /api/attachments/:id/download
func (h *AttachmentHandler) Download(c *gin.Context) {
	if h.attachments == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	attachment, err := h.attachments.Get(requestContext(c), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, services.ErrAttachmentNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	if attachment.ContentType != "" {
		c.Header("Content-Type", attachment.ContentType)
	}
	c.FileAttachment(attachment.StoragePath, attachment.Filename)
}

// DELETE /api/attachments/:id
func (h *AttachmentHandler) Delete(c *gin.Context) {
	if h.attachments == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.attachments.Delete(requestContext(c), c.Param("id"), userID); err != nil {
		if errors.Is(err, services.ErrAttachmentNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
