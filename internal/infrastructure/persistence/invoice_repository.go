package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"github.com/waterworks/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID retrieves an invoice by its unique identifier
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("invoice %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReadingID retrieves the invoice generated from a reading
func (r *GormInvoiceRepository) FindByReadingID(ctx context.Context, readingID uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("reading_id = ?", readingID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("no invoice for reading %s", readingID)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsForReading checks whether a reading already has an invoice.
// The unique index on reading_id remains the authoritative guard.
func (r *GormInvoiceRepository) ExistsForReading(ctx context.Context, readingID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("reading_id = ?", readingID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByCustomer retrieves a customer's invoices with pagination
func (r *GormInvoiceRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (shared.Paginated[*billing.Invoice], error) {
	return r.findPaginated(ctx, filter, func(query *gorm.DB) *gorm.DB {
		return query.Where("customer_id = ?", customerID)
	})
}

// FindAll retrieves invoices with pagination
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*billing.Invoice], error) {
	return r.findPaginated(ctx, filter, nil)
}

func (r *GormInvoiceRepository) findPaginated(ctx context.Context, filter shared.Filter, scope func(*gorm.DB) *gorm.DB) (shared.Paginated[*billing.Invoice], error) {
	var empty shared.Paginated[*billing.Invoice]

	countQuery := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if scope != nil {
		countQuery = scope(countQuery)
	}
	countQuery = r.applyFilterWithoutPagination(countQuery, filter)

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return empty, err
	}

	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if scope != nil {
		query = scope(query)
	}
	query = r.applyFilter(query, filter)

	var invoiceModels []models.InvoiceModel
	if err := query.Find(&invoiceModels).Error; err != nil {
		return empty, err
	}

	invoices := make([]*billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}

	return shared.NewPaginated(invoices, total, filter.Page, filter.PageSize), nil
}

// FindBillableReadings retrieves readings for the period that have no
// invoice, belong to a meter with an owner, and whose owner has a
// tariff assigned. Keyset pagination on rd.id keeps pages stable while
// the backfill shrinks the underlying set.
func (r *GormInvoiceRepository) FindBillableReadings(ctx context.Context, period valueobject.Period, afterReading uuid.UUID, limit int) ([]billing.BillableReading, error) {
	type billableResult struct {
		ReadingID     uuid.UUID
		MeterID       uuid.UUID
		MeterSerial   string
		CustomerID    uuid.UUID
		CustomerName  string
		TariffID      uuid.UUID
		Period        valueobject.Period
		ConsumptionM3 decimal.Decimal
	}

	var results []billableResult

	query := r.db.WithContext(ctx).Table("readings rd").
		Select(`
			rd.id as reading_id,
			rd.meter_id,
			m.serial_number as meter_serial,
			c.id as customer_id,
			c.name as customer_name,
			c.tariff_id,
			rd.period,
			rd.consumption_m3
		`).
		Joins("JOIN meters m ON m.id = rd.meter_id").
		Joins("JOIN customers c ON c.id = m.customer_id").
		Joins("LEFT JOIN invoices i ON i.reading_id = rd.id").
		Where("rd.period = ?", period).
		Where("i.id IS NULL").
		Where("c.tariff_id IS NOT NULL").
		Order("rd.id ASC")

	if afterReading != uuid.Nil {
		query = query.Where("rd.id > ?", afterReading)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Scan(&results).Error

	if err != nil {
		return nil, err
	}

	billable := make([]billing.BillableReading, len(results))
	for i, res := range results {
		billable[i] = billing.BillableReading{
			ReadingID:     res.ReadingID,
			MeterID:       res.MeterID,
			MeterSerial:   res.MeterSerial,
			CustomerID:    res.CustomerID,
			CustomerName:  res.CustomerName,
			TariffID:      res.TariffID,
			Period:        res.Period,
			ConsumptionM3: res.ConsumptionM3,
		}
	}

	return billable, nil
}

// Save persists an invoice (insert or update). A duplicate reading_id
// insert is mapped to an ALREADY_EXISTS domain error.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewConflictError("invoice already exists for reading %s", invoice.ReadingID)
		}
		return err
	}
	return nil
}

// Count returns the total number of invoices
func (r *GormInvoiceRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("emitted_on DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "period":
			query = query.Where("period = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "overdue":
			if value == true {
				query = query.Where("due_on < ? AND status <> ?", time.Now(), billing.InvoiceStatusPaid)
			}
		}
	}

	return query
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
