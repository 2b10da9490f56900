// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// openInvoiceStatuses are the invoice statuses that still carry a balance.
var openInvoiceStatuses = []string{"PENDING", "PARTIALLY_PAID"}

// GormBillingMetricsProvider implements BillingMetricsProvider using GORM.
// It queries the invoices table directly for aggregated metrics.
type GormBillingMetricsProvider struct {
	db *gorm.DB
}

// NewGormBillingMetricsProvider creates a new GormBillingMetricsProvider.
func NewGormBillingMetricsProvider(db *gorm.DB) *GormBillingMetricsProvider {
	return &GormBillingMetricsProvider{db: db}
}

// GetOutstandingBalanceByPeriod returns the summed open invoice balance per billing period.
func (p *GormBillingMetricsProvider) GetOutstandingBalanceByPeriod(ctx context.Context) (map[string]decimal.Decimal, error) {
	type result struct {
		Period  string          `gorm:"column:period"`
		Balance decimal.Decimal `gorm:"column:balance"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("invoices").
		Select("period, COALESCE(SUM(balance), 0) as balance").
		Where("status IN ?", openInvoiceStatuses).
		Group("period").
		Having("SUM(balance) > 0").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[string]decimal.Decimal, len(results))
	for _, r := range results {
		m[r.Period] = r.Balance
	}

	return m, nil
}

// GetOverdueInvoiceCount returns the number of invoices past their due date with an open balance.
func (p *GormBillingMetricsProvider) GetOverdueInvoiceCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("invoices").
		Where("status IN ?", openInvoiceStatuses).
		Where("due_on < ?", time.Now()).
		Count(&count).Error

	return count, err
}
