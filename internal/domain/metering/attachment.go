package metering

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/shared"
)

// MaxPhotoFileSize is the maximum allowed photo size (10MB)
const MaxPhotoFileSize = 10 * 1024 * 1024

// AttachmentStatus represents the lifecycle state of a reading photo
type AttachmentStatus string

const (
	AttachmentStatusPending AttachmentStatus = "pending"
	AttachmentStatusActive  AttachmentStatus = "active"
	AttachmentStatusDeleted AttachmentStatus = "deleted"
)

// IsValid checks if the attachment status is valid
func (s AttachmentStatus) IsValid() bool {
	switch s {
	case AttachmentStatusPending, AttachmentStatusActive, AttachmentStatusDeleted:
		return true
	default:
		return false
	}
}

// ReadingAttachment is a photo taken at the meter when a reading was
// collected, kept as evidence for disputed consumption values. A photo is
// created pending and becomes active only after the upload to object
// storage is confirmed; unconfirmed records never surface in listings.
type ReadingAttachment struct {
	shared.BaseAggregateRoot
	ReadingID   uuid.UUID
	Status      AttachmentStatus
	FileName    string
	FileSize    int64
	ContentType string
	StorageKey  string
	UploadedBy  *uuid.UUID
}

// NewReadingAttachment creates a photo record in pending status
func NewReadingAttachment(
	readingID uuid.UUID,
	fileName string,
	fileSize int64,
	contentType string,
	storageKey string,
	uploadedBy *uuid.UUID,
) (*ReadingAttachment, error) {
	if readingID == uuid.Nil {
		return nil, shared.NewValidationError("reading id is required")
	}
	if err := validatePhotoFileName(fileName); err != nil {
		return nil, err
	}
	if err := validatePhotoFileSize(fileSize); err != nil {
		return nil, err
	}
	if err := validatePhotoContentType(contentType); err != nil {
		return nil, err
	}
	if err := validateStorageKey(storageKey); err != nil {
		return nil, err
	}

	attachment := &ReadingAttachment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReadingID:         readingID,
		Status:            AttachmentStatusPending,
		FileName:          fileName,
		FileSize:          fileSize,
		ContentType:       contentType,
		StorageKey:        storageKey,
		UploadedBy:        uploadedBy,
	}

	attachment.AddDomainEvent(NewReadingPhotoAddedEvent(attachment))

	return attachment, nil
}

// Confirm activates the photo once the file is known to exist in storage
func (a *ReadingAttachment) Confirm() error {
	if a.Status == AttachmentStatusActive {
		return shared.NewConflictError("photo %s is already confirmed", a.FileName)
	}
	if a.Status == AttachmentStatusDeleted {
		return shared.NewValidationError("photo %s is deleted and cannot be confirmed", a.FileName)
	}

	a.Status = AttachmentStatusActive
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewReadingPhotoConfirmedEvent(a))

	return nil
}

// Delete marks the photo as deleted (soft delete)
func (a *ReadingAttachment) Delete() error {
	if a.Status == AttachmentStatusDeleted {
		return shared.NewValidationError("photo %s is already deleted", a.FileName)
	}

	old := a.Status
	a.Status = AttachmentStatusDeleted
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewReadingPhotoDeletedEvent(a, old))

	return nil
}

// IsPending returns true if the photo upload has not been confirmed yet
func (a *ReadingAttachment) IsPending() bool {
	return a.Status == AttachmentStatusPending
}

// IsActive returns true if the photo is confirmed and visible
func (a *ReadingAttachment) IsActive() bool {
	return a.Status == AttachmentStatusActive
}

// IsDeleted returns true if the photo is soft deleted
func (a *ReadingAttachment) IsDeleted() bool {
	return a.Status == AttachmentStatusDeleted
}

func validatePhotoFileName(name string) error {
	if name == "" {
		return shared.NewValidationError("file name cannot be empty")
	}
	if len(name) > 255 {
		return shared.NewValidationError("file name cannot exceed 255 characters")
	}
	for _, r := range name {
		if r < 32 || r == 127 {
			return shared.NewValidationError("file name contains invalid characters")
		}
	}
	if strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return shared.NewValidationError("file name cannot contain path separators")
	}
	return nil
}

func validatePhotoFileSize(size int64) error {
	if size <= 0 {
		return shared.NewValidationError("file size must be greater than 0")
	}
	if size > MaxPhotoFileSize {
		return shared.NewValidationError("photo cannot exceed 10MB")
	}
	return nil
}

func validatePhotoContentType(contentType string) error {
	if contentType == "" {
		return shared.NewValidationError("content type cannot be empty")
	}
	if len(contentType) > 100 {
		return shared.NewValidationError("content type cannot exceed 100 characters")
	}
	if !strings.HasPrefix(contentType, "image/") || strings.HasSuffix(contentType, "/") {
		return shared.NewValidationError("reading photos must have an image content type")
	}
	return nil
}

func validateStorageKey(key string) error {
	if key == "" {
		return shared.NewValidationError("storage key cannot be empty")
	}
	if len(key) > 500 {
		return shared.NewValidationError("storage key cannot exceed 500 characters")
	}
	// Reject traversal sequences and absolute paths; keys are always
	// relative within the bucket.
	if strings.Contains(key, "..") {
		return shared.NewValidationError("storage key cannot contain traversal sequences")
	}
	if strings.HasPrefix(key, "/") {
		return shared.NewValidationError("storage key must be a relative path")
	}
	return nil
}
