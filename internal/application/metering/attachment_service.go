package metering

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AllowedPhotoContentTypes is the whitelist of photo content types accepted
// for reading evidence. SVG is excluded; it can carry scripts.
var AllowedPhotoContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// ObjectStorageService defines the interface for object storage operations.
// Implemented by the infrastructure layer (S3-compatible backends).
type ObjectStorageService interface {
	// GenerateUploadURL generates a presigned URL for uploading a file.
	// Returns the upload URL and expiration time.
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL generates a presigned URL for downloading a file.
	// Returns the download URL and expiration time.
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject deletes an object from storage
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists checks if an object exists in storage
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// AttachmentServiceConfig holds configuration for the attachment service
type AttachmentServiceConfig struct {
	// UploadURLExpiry is the duration for which upload URLs are valid
	UploadURLExpiry time.Duration
	// DownloadURLExpiry is the duration for which download URLs are valid
	DownloadURLExpiry time.Duration
	// MaxPhotosPerReading caps pending plus active photos on one reading
	MaxPhotosPerReading int
}

// DefaultAttachmentServiceConfig returns the default configuration
func DefaultAttachmentServiceConfig() AttachmentServiceConfig {
	return AttachmentServiceConfig{
		UploadURLExpiry:     15 * time.Minute,
		DownloadURLExpiry:   1 * time.Hour,
		MaxPhotosPerReading: 5,
	}
}

// AttachmentService manages photos attached to readings as field evidence.
// Uploads are presigned: the record is created pending, the client PUTs the
// bytes straight to object storage, and confirmation activates the photo
// only once the object is verified to exist.
type AttachmentService struct {
	attachmentRepo metering.ReadingAttachmentRepository
	readingRepo    metering.ReadingRepository
	storage        ObjectStorageService
	logger         *zap.Logger
	config         AttachmentServiceConfig
}

// NewAttachmentService creates a new AttachmentService
func NewAttachmentService(
	attachmentRepo metering.ReadingAttachmentRepository,
	readingRepo metering.ReadingRepository,
	storage ObjectStorageService,
	logger *zap.Logger,
) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		readingRepo:    readingRepo,
		storage:        storage,
		logger:         logger,
		config:         DefaultAttachmentServiceConfig(),
	}
}

// SetConfig sets the service configuration
func (s *AttachmentService) SetConfig(config AttachmentServiceConfig) {
	s.config = config
}

// InitiateUpload creates a pending photo record and returns a presigned
// upload URL the client PUTs the file to
func (s *AttachmentService) InitiateUpload(ctx context.Context, readingID uuid.UUID, req InitiatePhotoUploadRequest, uploadedBy *uuid.UUID) (*InitiatePhotoUploadResponse, error) {
	reading, err := s.readingRepo.FindByID(ctx, readingID)
	if err != nil {
		return nil, err
	}

	count, err := s.attachmentRepo.CountActiveByReading(ctx, reading.ID)
	if err != nil {
		return nil, err
	}
	if count >= int64(s.config.MaxPhotosPerReading) {
		return nil, shared.NewValidationError("a reading can have at most %d photos", s.config.MaxPhotosPerReading)
	}

	if !AllowedPhotoContentTypes[strings.ToLower(req.ContentType)] {
		return nil, shared.NewValidationError("content type %q is not allowed; use JPEG, PNG, WebP or HEIC", req.ContentType)
	}

	storageKey := photoStorageKey(reading.ID, req.FileName)

	attachment, err := metering.NewReadingAttachment(reading.ID, req.FileName, req.FileSize, req.ContentType, storageKey, uploadedBy)
	if err != nil {
		return nil, err
	}

	if err := s.attachmentRepo.Save(ctx, attachment); err != nil {
		return nil, err
	}

	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, storageKey, req.ContentType, s.config.UploadURLExpiry)
	if err != nil {
		// Drop the pending record; it would never be confirmable.
		if cleanupErr := s.attachmentRepo.Delete(ctx, attachment.ID); cleanupErr != nil {
			s.logger.Warn("failed to clean up photo record after presign failure",
				zap.String("attachment_id", attachment.ID.String()),
				zap.Error(cleanupErr))
		}
		return nil, shared.NewInternalError("failed to generate upload URL")
	}

	return &InitiatePhotoUploadResponse{
		AttachmentID: attachment.ID,
		UploadURL:    uploadURL,
		ExpiresAt:    expiresAt,
	}, nil
}

// ConfirmUpload verifies the file landed in storage and activates the photo
func (s *AttachmentService) ConfirmUpload(ctx context.Context, attachmentID uuid.UUID) (*AttachmentResponse, error) {
	attachment, err := s.attachmentRepo.FindByID(ctx, attachmentID)
	if err != nil {
		return nil, err
	}

	exists, err := s.storage.ObjectExists(ctx, attachment.StorageKey)
	if err != nil {
		return nil, shared.NewInternalError("failed to verify upload")
	}
	if !exists {
		return nil, shared.NewValidationError("no uploaded file found for photo %s; upload the file first", attachment.FileName)
	}

	if err := attachment.Confirm(); err != nil {
		return nil, err
	}

	if err := s.attachmentRepo.Save(ctx, attachment); err != nil {
		return nil, err
	}

	response := ToAttachmentResponse(attachment)
	s.enrichWithURL(ctx, &response, attachment)

	return &response, nil
}

// GetByID retrieves a photo by id
func (s *AttachmentService) GetByID(ctx context.Context, attachmentID uuid.UUID) (*AttachmentResponse, error) {
	attachment, err := s.attachmentRepo.FindByID(ctx, attachmentID)
	if err != nil {
		return nil, err
	}

	response := ToAttachmentResponse(attachment)
	s.enrichWithURL(ctx, &response, attachment)

	return &response, nil
}

// ListByReading retrieves a reading's photos, oldest first, with download
// URLs on the confirmed ones
func (s *AttachmentService) ListByReading(ctx context.Context, readingID uuid.UUID) ([]AttachmentResponse, error) {
	if _, err := s.readingRepo.FindByID(ctx, readingID); err != nil {
		return nil, err
	}

	attachments, err := s.attachmentRepo.FindByReading(ctx, readingID)
	if err != nil {
		return nil, err
	}

	responses := ToAttachmentResponses(attachments)
	for i, a := range attachments {
		s.enrichWithURL(ctx, &responses[i], a)
	}

	return responses, nil
}

// Delete soft deletes a photo; the stored object is kept
func (s *AttachmentService) Delete(ctx context.Context, attachmentID uuid.UUID) error {
	attachment, err := s.attachmentRepo.FindByID(ctx, attachmentID)
	if err != nil {
		return err
	}

	if err := attachment.Delete(); err != nil {
		return err
	}

	return s.attachmentRepo.Save(ctx, attachment)
}

// PermanentDelete removes the photo record and its storage object
func (s *AttachmentService) PermanentDelete(ctx context.Context, attachmentID uuid.UUID) error {
	attachment, err := s.attachmentRepo.FindByID(ctx, attachmentID)
	if err != nil {
		return err
	}

	// The object may already be gone; that is not a reason to keep the row.
	if err := s.storage.DeleteObject(ctx, attachment.StorageKey); err != nil {
		s.logger.Warn("failed to delete photo from storage",
			zap.String("attachment_id", attachment.ID.String()),
			zap.String("storage_key", attachment.StorageKey),
			zap.Error(err))
	}

	return s.attachmentRepo.Delete(ctx, attachmentID)
}

// enrichWithURL adds a presigned download URL to a confirmed photo response
func (s *AttachmentService) enrichWithURL(ctx context.Context, response *AttachmentResponse, attachment *metering.ReadingAttachment) {
	if !attachment.IsActive() {
		return
	}

	url, _, err := s.storage.GenerateDownloadURL(ctx, attachment.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		s.logger.Warn("failed to presign photo download",
			zap.String("attachment_id", attachment.ID.String()),
			zap.Error(err))
		return
	}
	response.URL = url
}

// photoStorageKey builds the object key for a reading photo
func photoStorageKey(readingID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("readings/%s/photos/%s%s", readingID.String(), uuid.New().String(), ext)
}
