// Package scheduler runs the monthly invoice backfill on a cron-like
// schedule and keeps a persistent record of every run.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	billingapp "github.com/waterworks/backend/internal/application/billing"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// schedulerTickInterval is the interval at which the scheduler checks
// whether the monthly run is due
const schedulerTickInterval = 1 * time.Minute

// Backfill run statuses
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Backfill run triggers
const (
	RunTriggerSchedule = "schedule"
	RunTriggerManual   = "manual"
)

// BackfillExecutor runs the invoice backfill for one billing period.
// The billing InvoiceService satisfies it.
type BackfillExecutor interface {
	Backfill(ctx context.Context, req billingapp.BackfillRequest) (*billingapp.BackfillResponse, error)
}

// BackfillSchedulerConfig holds configuration for the monthly backfill scheduler
type BackfillSchedulerConfig struct {
	// Enabled indicates if the scheduler is active
	Enabled bool
	// RunDay is the day of month (1-28) the backfill runs
	RunDay int
	// RunHour is the hour (0-23)
	RunHour int
	// RunMinute is the minute (0-59)
	RunMinute int
	// JobTimeout is the maximum time a single backfill run may take
	JobTimeout time.Duration
}

// DefaultBackfillSchedulerConfig returns default scheduler configuration.
// Defaults to running on the 2nd of each month at 02:00, once meter
// readers have submitted the previous month's readings.
func DefaultBackfillSchedulerConfig() BackfillSchedulerConfig {
	return BackfillSchedulerConfig{
		Enabled:    true,
		RunDay:     2,
		RunHour:    2,
		RunMinute:  0,
		JobTimeout: 30 * time.Minute,
	}
}

// BackfillRunRecord is the persistent record of one backfill run
type BackfillRunRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Period      string     `gorm:"column:period;size:7;not null"`
	TriggeredBy string     `gorm:"column:triggered_by;size:20;not null"`
	Status      string     `gorm:"column:status;size:20;not null"`
	Succeeded   int        `gorm:"column:succeeded"`
	Failed      int        `gorm:"column:failed"`
	Error       string     `gorm:"column:error;type:text"`
	StartedAt   time.Time  `gorm:"column:started_at;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (BackfillRunRecord) TableName() string {
	return "backfill_runs"
}

// BackfillRunRepository handles persistence of backfill run records
type BackfillRunRepository struct {
	db *gorm.DB
}

// NewBackfillRunRepository creates a new BackfillRunRepository
func NewBackfillRunRepository(db *gorm.DB) *BackfillRunRepository {
	return &BackfillRunRepository{db: db}
}

// RecordStart records the start of a backfill run
func (r *BackfillRunRepository) RecordStart(ctx context.Context, period, triggeredBy string) (uuid.UUID, error) {
	now := time.Now()
	record := &BackfillRunRecord{
		ID:          uuid.New(),
		Period:      period,
		TriggeredBy: triggeredBy,
		Status:      RunStatusRunning,
		StartedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

// RecordCompletion records the outcome of a backfill run
func (r *BackfillRunRepository) RecordCompletion(ctx context.Context, runID uuid.UUID, report *billingapp.BackfillResponse, runErr error) error {
	now := time.Now()
	updates := map[string]any{
		"status":       RunStatusSuccess,
		"completed_at": now,
		"updated_at":   now,
	}
	if report != nil {
		updates["succeeded"] = report.Succeeded
		updates["failed"] = report.Failed
	}
	if runErr != nil {
		updates["status"] = RunStatusFailed
		updates["error"] = runErr.Error()
	}
	return r.db.WithContext(ctx).
		Model(&BackfillRunRecord{}).
		Where("id = ?", runID).
		Updates(updates).Error
}

// LastRun returns the most recent backfill run, or nil when no run has
// happened yet
func (r *BackfillRunRepository) LastRun(ctx context.Context) (*BackfillRunRecord, error) {
	var record BackfillRunRecord
	err := r.db.WithContext(ctx).Order("started_at DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// BackfillScheduler runs the invoice backfill for the previous period on
// a configured day of month. Meter readers submit during the month; the
// run on the following month picks up every reading that still has no
// invoice.
type BackfillScheduler struct {
	config   BackfillSchedulerConfig
	executor BackfillExecutor
	runRepo  *BackfillRunRepository
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Last execution tracking
	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewBackfillScheduler creates a new monthly backfill scheduler
func NewBackfillScheduler(
	config BackfillSchedulerConfig,
	executor BackfillExecutor,
	runRepo *BackfillRunRepository,
	logger *zap.Logger,
) *BackfillScheduler {
	return &BackfillScheduler{
		config:   config,
		executor: executor,
		runRepo:  runRepo,
		logger:   logger,
	}
}

// Start starts the scheduler
func (s *BackfillScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Backfill scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.calculateNextRunTime()

	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Backfill scheduler started",
		zap.Int("run_day", s.config.RunDay),
		zap.Int("run_hour", s.config.RunHour),
		zap.Int("run_minute", s.config.RunMinute),
		zap.Timep("next_run_at", s.nextRunAt),
	)

	return nil
}

// Stop stops the scheduler, waiting for an in-flight run to finish
func (s *BackfillScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Backfill scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Backfill scheduler stop timed out")
		return ctx.Err()
	}
}

// cronLoop runs the main scheduling loop
func (s *BackfillScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(schedulerTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runBackfill(ctx, RunTriggerSchedule)
				s.calculateNextRunTime()
			}
		}
	}
}

// shouldRun checks if the backfill is due at the given time
func (s *BackfillScheduler) shouldRun(now time.Time) bool {
	return now.Day() == s.config.RunDay &&
		now.Hour() == s.config.RunHour &&
		now.Minute() == s.config.RunMinute
}

// calculateNextRunTime calculates the next run time
func (s *BackfillScheduler) calculateNextRunTime() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), s.config.RunDay, s.config.RunHour, s.config.RunMinute, 0, 0, now.Location())

	// If we've already passed this month's run time, schedule for next
	// month. RunDay is capped at 28, so the date never normalizes into
	// the month after.
	if now.After(next) {
		next = next.AddDate(0, 1, 0)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// runBackfill executes one backfill run for the previous period
func (s *BackfillScheduler) runBackfill(ctx context.Context, triggeredBy string) {
	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	period := valueobject.PeriodOf(now).Previous()

	s.logger.Info("Starting invoice backfill run",
		zap.String("period", period.String()),
		zap.String("triggered_by", triggeredBy),
	)

	var runID uuid.UUID
	if s.runRepo != nil {
		var recordErr error
		runID, recordErr = s.runRepo.RecordStart(ctx, period.String(), triggeredBy)
		if recordErr != nil {
			s.logger.Warn("Failed to record backfill run start",
				zap.String("period", period.String()),
				zap.Error(recordErr),
			)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	started := time.Now()
	report, err := s.executor.Backfill(runCtx, billingapp.BackfillRequest{Period: period.String()})
	duration := time.Since(started)

	if s.runRepo != nil && runID != uuid.Nil {
		if recordErr := s.runRepo.RecordCompletion(ctx, runID, report, err); recordErr != nil {
			s.logger.Warn("Failed to record backfill run completion",
				zap.String("run_id", runID.String()),
				zap.Error(recordErr),
			)
		}
	}

	if err != nil {
		s.logger.Error("Invoice backfill run failed",
			zap.String("period", period.String()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Invoice backfill run completed",
		zap.String("period", period.String()),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", duration),
	)
}

// TriggerManualRun starts an immediate backfill run for the previous
// period. The run uses a background context so it survives the HTTP
// request that triggered it.
func (s *BackfillScheduler) TriggerManualRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.runBackfill(context.Background(), RunTriggerManual)
	}()
	return nil
}

// GetStatus returns the current status of the scheduler
func (s *BackfillScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":     s.config.Enabled,
		"is_running":  s.isRunning,
		"run_day":     s.config.RunDay,
		"run_hour":    s.config.RunHour,
		"run_minute":  s.config.RunMinute,
		"schedule":    "Monthly",
		"last_run_at": s.lastRunAt,
		"next_run_at": s.nextRunAt,
	}
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *BackfillScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *BackfillScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
