package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReadingAttachmentRepository implements ReadingAttachmentRepository using GORM
type GormReadingAttachmentRepository struct {
	db *gorm.DB
}

// NewGormReadingAttachmentRepository creates a new GormReadingAttachmentRepository
func NewGormReadingAttachmentRepository(db *gorm.DB) *GormReadingAttachmentRepository {
	return &GormReadingAttachmentRepository{db: db}
}

// FindByID finds a reading photo by its ID
func (r *GormReadingAttachmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*metering.ReadingAttachment, error) {
	var model models.ReadingAttachmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("photo %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReading finds a reading's photos, excluding deleted ones, oldest first
func (r *GormReadingAttachmentRepository) FindByReading(ctx context.Context, readingID uuid.UUID) ([]*metering.ReadingAttachment, error) {
	var attachmentModels []models.ReadingAttachmentModel
	if err := r.db.WithContext(ctx).
		Where("reading_id = ? AND status <> ?", readingID, metering.AttachmentStatusDeleted).
		Order("created_at ASC").
		Find(&attachmentModels).Error; err != nil {
		return nil, err
	}

	attachments := make([]*metering.ReadingAttachment, len(attachmentModels))
	for i := range attachmentModels {
		attachments[i] = attachmentModels[i].ToDomain()
	}
	return attachments, nil
}

// CountActiveByReading counts a reading's pending and active photos
func (r *GormReadingAttachmentRepository) CountActiveByReading(ctx context.Context, readingID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReadingAttachmentModel{}).
		Where("reading_id = ? AND status <> ?", readingID, metering.AttachmentStatusDeleted).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a reading photo record
func (r *GormReadingAttachmentRepository) Save(ctx context.Context, attachment *metering.ReadingAttachment) error {
	model := models.ReadingAttachmentModelFromDomain(attachment)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a photo record permanently
func (r *GormReadingAttachmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ReadingAttachmentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("photo %s not found", id)
	}
	return nil
}

// Ensure GormReadingAttachmentRepository implements ReadingAttachmentRepository
var _ metering.ReadingAttachmentRepository = (*GormReadingAttachmentRepository)(nil)
