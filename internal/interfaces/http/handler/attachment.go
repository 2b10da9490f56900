package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	meteringapp "github.com/waterworks/backend/internal/application/metering"
)

// AttachmentHandler handles reading photo API endpoints. Uploads are
// presigned: the handler never sees file bytes, only the metadata and
// the confirmation that the client finished the PUT.
type AttachmentHandler struct {
	BaseHandler
	attachmentService *meteringapp.AttachmentService
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(attachmentService *meteringapp.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
	}
}

// InitiateUpload creates a pending photo for a reading and returns the
// presigned upload URL
func (h *AttachmentHandler) InitiateUpload(c *gin.Context) {
	readingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reading ID format")
		return
	}

	var req meteringapp.InitiatePhotoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var uploadedBy *uuid.UUID
	if userID, err := getUserID(c); err == nil && userID != uuid.Nil {
		uploadedBy = &userID
	}

	response, err := h.attachmentService.InitiateUpload(c.Request.Context(), readingID, req, uploadedBy)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, response)
}

// ConfirmUpload verifies the upload completed and activates the photo
func (h *AttachmentHandler) ConfirmUpload(c *gin.Context) {
	attachmentID, err := uuid.Parse(c.Param("attachmentId"))
	if err != nil {
		h.BadRequest(c, "Invalid attachment ID format")
		return
	}

	response, err := h.attachmentService.ConfirmUpload(c.Request.Context(), attachmentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, response)
}

// ListByReading retrieves a reading's photos
func (h *AttachmentHandler) ListByReading(c *gin.Context) {
	readingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reading ID format")
		return
	}

	responses, err := h.attachmentService.ListByReading(c.Request.Context(), readingID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, responses)
}

// Delete soft deletes a photo
func (h *AttachmentHandler) Delete(c *gin.Context) {
	attachmentID, err := uuid.Parse(c.Param("attachmentId"))
	if err != nil {
		h.BadRequest(c, "Invalid attachment ID format")
		return
	}

	if err := h.attachmentService.Delete(c.Request.Context(), attachmentID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
