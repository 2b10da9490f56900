package persistence

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"gorm.io/gorm"
)

// GormDashboardRepository implements DashboardRepository using GORM
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewGormDashboardRepository creates a new GormDashboardRepository
func NewGormDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// Summary computes the dashboard figures for the given period
func (r *GormDashboardRepository) Summary(ctx context.Context, period valueobject.Period) (*billing.DashboardSummary, error) {
	type customerResult struct {
		TotalCustomers  int64
		ActiveCustomers int64
	}
	type meterResult struct {
		TotalMeters    int64
		AssignedMeters int64
	}
	type invoiceResult struct {
		PendingInvoices  int64
		PaidInvoices     int64
		OverdueInvoices  int64
		TotalOutstanding decimal.Decimal
	}

	var customers customerResult
	if err := r.db.WithContext(ctx).Table("customers").
		Select(`
			COUNT(*) as total_customers,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as active_customers
		`, "active").
		Scan(&customers).Error; err != nil {
		return nil, err
	}

	var meters meterResult
	if err := r.db.WithContext(ctx).Table("meters").
		Select(`
			COUNT(*) as total_meters,
			COALESCE(SUM(CASE WHEN customer_id IS NOT NULL THEN 1 ELSE 0 END), 0) as assigned_meters
		`).
		Scan(&meters).Error; err != nil {
		return nil, err
	}

	var readingsThisPeriod int64
	if err := r.db.WithContext(ctx).Table("readings").
		Where("period = ?", period).
		Count(&readingsThisPeriod).Error; err != nil {
		return nil, err
	}

	var invoices invoiceResult
	if err := r.db.WithContext(ctx).Table("invoices").
		Select(`
			COALESCE(SUM(CASE WHEN status <> ? THEN 1 ELSE 0 END), 0) as pending_invoices,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as paid_invoices,
			COALESCE(SUM(CASE WHEN status <> ? AND due_on < NOW() THEN 1 ELSE 0 END), 0) as overdue_invoices,
			COALESCE(SUM(CASE WHEN status <> ? THEN balance ELSE 0 END), 0) as total_outstanding
		`, billing.InvoiceStatusPaid, billing.InvoiceStatusPaid, billing.InvoiceStatusPaid, billing.InvoiceStatusPaid).
		Scan(&invoices).Error; err != nil {
		return nil, err
	}

	var collected decimal.Decimal
	if err := r.db.WithContext(ctx).Table("payments").
		Select("COALESCE(SUM(applied), 0)").
		Where("paid_on BETWEEN ? AND ?", period.Start(), period.End()).
		Scan(&collected).Error; err != nil {
		return nil, err
	}

	return &billing.DashboardSummary{
		TotalCustomers:     customers.TotalCustomers,
		ActiveCustomers:    customers.ActiveCustomers,
		TotalMeters:        meters.TotalMeters,
		AssignedMeters:     meters.AssignedMeters,
		ReadingsThisPeriod: readingsThisPeriod,
		PendingInvoices:    invoices.PendingInvoices,
		PaidInvoices:       invoices.PaidInvoices,
		OverdueInvoices:    invoices.OverdueInvoices,
		TotalOutstanding:   invoices.TotalOutstanding,
		CollectedThisMonth: collected,
	}, nil
}

// Ensure GormDashboardRepository implements DashboardRepository
var _ billing.DashboardRepository = (*GormDashboardRepository)(nil)
