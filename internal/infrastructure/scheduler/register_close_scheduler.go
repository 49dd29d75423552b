// Package scheduler runs the daily automatic close of cash registers
// still open at the end of the day.
package scheduler

import (
	"context"
	"sync"
	"time"

	appcashregister "github.com/backoffice/ledger/internal/application/cashregister"
	"github.com/backoffice/ledger/internal/domain/cashregister"
	"go.uber.org/zap"
)

// RegisterCloseConfig holds configuration for the close sweep
type RegisterCloseConfig struct {
	// CloseHour and CloseMinute set the daily sweep time (24h clock)
	CloseHour   int
	CloseMinute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration

	// SweepLimit bounds the runtime of one sweep across all branches
	SweepLimit time.Duration
}

// DefaultRegisterCloseConfig returns the default sweep configuration
func DefaultRegisterCloseConfig() RegisterCloseConfig {
	return RegisterCloseConfig{
		CloseHour:     23,
		CloseMinute:   59,
		CheckInterval: time.Minute,
		SweepLimit:    5 * time.Minute,
	}
}

// RegisterCloseScheduler closes every register opened before the daily
// sweep moment. The declared balance of an automatic close is the
// cash-affecting balance the system computes itself, so scheduled
// closes reconcile with zero difference on the cash formula.
type RegisterCloseScheduler struct {
	config         RegisterCloseConfig
	registers      cashregister.RegisterRepository
	service        *appcashregister.RegisterService
	reconciliation *appcashregister.ReconciliationService
	logger         *zap.Logger
	now            func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewRegisterCloseScheduler creates a new RegisterCloseScheduler
func NewRegisterCloseScheduler(
	config RegisterCloseConfig,
	registers cashregister.RegisterRepository,
	service *appcashregister.RegisterService,
	reconciliation *appcashregister.ReconciliationService,
	logger *zap.Logger,
) *RegisterCloseScheduler {
	return &RegisterCloseScheduler{
		config:         config,
		registers:      registers,
		service:        service,
		reconciliation: reconciliation,
		logger:         logger,
		now:            time.Now,
	}
}

// WithClock overrides the wall clock for tests
func (s *RegisterCloseScheduler) WithClock(now func() time.Time) *RegisterCloseScheduler {
	s.now = now
	return s
}

// Start starts the scheduler loop
func (s *RegisterCloseScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Register close scheduler started",
		zap.Int("close_hour", s.config.CloseHour),
		zap.Int("close_minute", s.config.CloseMinute),
		zap.Duration("check_interval", s.config.CheckInterval),
	)

	return nil
}

// Stop stops the scheduler and waits for an in-flight sweep to finish
func (s *RegisterCloseScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Register close scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RegisterCloseScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the sweep once per day at the configured time
func (s *RegisterCloseScheduler) checkAndTrigger(ctx context.Context) {
	now := s.now()
	currentDate := now.Format("2006-01-02")

	s.mu.Lock()
	alreadyRan := s.lastRunDate == currentDate
	s.mu.Unlock()
	if alreadyRan {
		return
	}

	if now.Hour() != s.config.CloseHour || now.Minute() != s.config.CloseMinute {
		return
	}

	s.mu.Lock()
	s.lastRunDate = currentDate
	s.mu.Unlock()

	sweepCtx := ctx
	if s.config.SweepLimit > 0 {
		var cancel context.CancelFunc
		sweepCtx, cancel = context.WithTimeout(ctx, s.config.SweepLimit)
		defer cancel()
	}
	s.RunSweep(sweepCtx)
}

// RunSweep closes every register opened strictly before the sweep
// moment, so the nightly run also ends sessions opened earlier the same
// day. A failure on one branch is logged and never blocks the remaining
// branches. The closing operator of an automatic close is the operator
// who opened the session.
func (s *RegisterCloseScheduler) RunSweep(ctx context.Context) {
	now := s.now()

	open, err := s.registers.FindOpen(ctx)
	if err != nil {
		s.logger.Error("Failed to load open registers for close sweep", zap.Error(err))
		return
	}

	closed := 0
	for i := range open {
		register := &open[i]
		if !register.OpenedAt.Before(now) {
			continue
		}
		closeAt := register.ScheduledCloseTime()

		if err := s.closeOne(ctx, register, closeAt); err != nil {
			s.logger.Error("Scheduled register close failed",
				zap.String("register_id", register.ID.String()),
				zap.String("branch_id", register.BranchID.String()),
				zap.Error(err),
			)
			continue
		}
		closed++
	}

	s.logger.Info("Register close sweep finished",
		zap.Int("open_registers", len(open)),
		zap.Int("closed", closed),
	)
}

func (s *RegisterCloseScheduler) closeOne(ctx context.Context, register *cashregister.Register, closeAt time.Time) error {
	declared, err := s.reconciliation.CashAffectingBalanceForWindow(
		ctx, register.BranchID, register.OpeningBalance, register.OpenedAt, closeAt)
	if err != nil {
		return err
	}

	_, err = s.service.Close(ctx, register.ID, declared, register.OpenedBy, true)
	return err
}
