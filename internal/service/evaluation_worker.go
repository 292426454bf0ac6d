package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// EvaluationWorkerConfig holds configuration for the nightly evaluation run
type EvaluationWorkerConfig struct {
	Schedule   string        // cron expression, interpreted in Kampala time
	RunTimeout time.Duration // upper bound for one portfolio run
}

// DefaultEvaluationWorkerConfig returns the production schedule
func DefaultEvaluationWorkerConfig() EvaluationWorkerConfig {
	return EvaluationWorkerConfig{
		Schedule:   "30 0 * * *",
		RunTimeout: 30 * time.Minute,
	}
}

// EvaluationSummary reports one portfolio run
type EvaluationSummary struct {
	Date          time.Time `json:"date"`
	Loans         int       `json:"loans"`
	StatusChanges int       `json:"statusChanges"`
	Penalties     int       `json:"penalties"`
	Errors        int       `json:"errors"`
}

// EvaluationWorker runs the lifecycle evaluator over the servicing portfolio on a cron schedule
type EvaluationWorker struct {
	loans   *LoanService
	store   domain.Store
	logger  zerolog.Logger
	config  EvaluationWorkerConfig
	now     func() time.Time
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewEvaluationWorker creates a new evaluation worker
func NewEvaluationWorker(loans *LoanService, store domain.Store, logger zerolog.Logger, config EvaluationWorkerConfig) *EvaluationWorker {
	defaults := DefaultEvaluationWorkerConfig()
	if config.Schedule == "" {
		config.Schedule = defaults.Schedule
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = defaults.RunTimeout
	}

	return &EvaluationWorker{
		loans:  loans,
		store:  store,
		logger: logger.With().Str("component", "evaluation_worker").Logger(),
		config: config,
		now:    time.Now,
	}
}

// SetClock replaces the time source used to pick the evaluation date
func (w *EvaluationWorker) SetClock(now func() time.Time) {
	w.now = now
}

// Start schedules the nightly run. Overlapping runs are skipped.
func (w *EvaluationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	cronLogger := cron.PrintfLogger(&w.logger)
	c := cron.New(
		cron.WithLocation(util.Kampala),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	_, err := c.AddFunc(w.config.Schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, w.config.RunTimeout)
		defer cancel()
		if _, err := w.RunOnce(runCtx, util.DateOf(w.now())); err != nil {
			w.logger.Error().Err(err).Msg("Evaluation run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid evaluation schedule %q: %w", w.config.Schedule, err)
	}

	c.Start()
	w.cron = c
	w.running = true

	w.logger.Info().
		Str("schedule", w.config.Schedule).
		Dur("run_timeout", w.config.RunTimeout).
		Msg("Starting evaluation worker")
	return nil
}

// Stop waits for a run in progress to finish
func (w *EvaluationWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	c := w.cron
	w.running = false
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping evaluation worker")
	<-c.Stop().Done()
	w.logger.Info().Msg("Evaluation worker stopped")
}

// IsRunning returns whether the schedule is active
func (w *EvaluationWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce evaluates every servicing and defaulted loan as of date. A failure on
// one loan is logged and counted; the run continues with the next loan.
func (w *EvaluationWorker) RunOnce(ctx context.Context, date time.Time) (*EvaluationSummary, error) {
	started := time.Now()
	ids, err := w.store.Loans().ListIDsByStatus(ctx,
		domain.LoanStatusActive, domain.LoanStatusDelinquent, domain.LoanStatusDefaulted)
	if err != nil {
		return nil, fmt.Errorf("list loans for evaluation: %w", err)
	}

	summary := &EvaluationSummary{Date: util.DateOf(date)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			w.logger.Warn().Err(err).Int("evaluated", summary.Loans).Msg("Evaluation run interrupted")
			return summary, err
		}

		result, err := w.loans.EvaluateLoan(ctx, domain.SystemActor, id, summary.Date)
		if err != nil {
			w.logger.Error().
				Err(err).
				Str("loan_id", id.String()).
				Msg("Failed to evaluate loan")
			summary.Errors++
			continue
		}

		summary.Loans++
		if result.Evaluation.StatusChanged() {
			summary.StatusChanges++
		}
		if result.Evaluation.Accrual != nil {
			summary.Penalties++
		}
	}

	w.logger.Info().
		Str("date", util.FormatDate(summary.Date)).
		Int("loans", summary.Loans).
		Int("status_changes", summary.StatusChanges).
		Int("penalties", summary.Penalties).
		Int("errors", summary.Errors).
		Dur("elapsed", time.Since(started)).
		Msg("Completed evaluation run")
	return summary, nil
}
