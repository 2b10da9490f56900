package billing

import (
	"context"
	"time"

	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// defaultDashboardCacheTTL bounds how long a summary may be served stale.
// Landing pages poll every few seconds; the figures move on the scale of
// whole readings and payments.
const defaultDashboardCacheTTL = 30 * time.Second

// DashboardService computes the back-office landing page figures
type DashboardService struct {
	dashboardRepo billing.DashboardRepository
	cache         billing.DashboardCache
	cacheTTL      time.Duration
	logger        *zap.Logger
}

// NewDashboardService creates a new DashboardService. The cache may be
// nil, in which case every request recomputes the figures.
func NewDashboardService(dashboardRepo billing.DashboardRepository, cache billing.DashboardCache, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		dashboardRepo: dashboardRepo,
		cache:         cache,
		cacheTTL:      defaultDashboardCacheTTL,
		logger:        logger,
	}
}

// SetCacheTTL overrides how long summaries may be served from cache
func (s *DashboardService) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

// Summary computes the dashboard figures for a period. An empty period
// token defaults to the current month. Fresh figures are cached so
// landing-page polling does not rescan the billing tables.
func (s *DashboardService) Summary(ctx context.Context, periodToken string) (*DashboardResponse, error) {
	return s.summarize(ctx, periodToken, false)
}

// RefreshSummary recomputes the dashboard figures, dropping any cached
// copy first
func (s *DashboardService) RefreshSummary(ctx context.Context, periodToken string) (*DashboardResponse, error) {
	return s.summarize(ctx, periodToken, true)
}

func (s *DashboardService) summarize(ctx context.Context, periodToken string, refresh bool) (*DashboardResponse, error) {
	period := valueobject.CurrentPeriod()
	if periodToken != "" {
		parsed, err := valueobject.ParsePeriod(periodToken)
		if err != nil {
			return nil, shared.NewValidationError("invalid period %q: must be YYYY-MM", periodToken)
		}
		period = parsed
	}

	if s.cache != nil && refresh {
		if err := s.cache.Invalidate(ctx, period); err != nil {
			s.logger.Warn("dashboard cache invalidation failed",
				zap.String("period", period.String()),
				zap.Error(err))
		}
	}

	// A cache failure never fails the request; the figures are always
	// recomputable from the repository.
	if s.cache != nil && !refresh {
		cached, err := s.cache.Get(ctx, period)
		if err != nil {
			s.logger.Warn("dashboard cache read failed",
				zap.String("period", period.String()),
				zap.Error(err))
		} else if cached != nil {
			return toDashboardResponse(period, cached), nil
		}
	}

	summary, err := s.dashboardRepo.Summary(ctx, period)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, period, summary, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed",
				zap.String("period", period.String()),
				zap.Error(err))
		}
	}

	return toDashboardResponse(period, summary), nil
}

func toDashboardResponse(period valueobject.Period, summary *billing.DashboardSummary) *DashboardResponse {
	return &DashboardResponse{
		Period:             period.String(),
		TotalCustomers:     summary.TotalCustomers,
		ActiveCustomers:    summary.ActiveCustomers,
		TotalMeters:        summary.TotalMeters,
		AssignedMeters:     summary.AssignedMeters,
		ReadingsThisPeriod: summary.ReadingsThisPeriod,
		PendingInvoices:    summary.PendingInvoices,
		PaidInvoices:       summary.PaidInvoices,
		OverdueInvoices:    summary.OverdueInvoices,
		TotalOutstanding:   summary.TotalOutstanding,
		CollectedThisMonth: summary.CollectedThisMonth,
	}
}
