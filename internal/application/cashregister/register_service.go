package cashregister

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backoffice/ledger/internal/domain/cashregister"
	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/backoffice/ledger/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OpenRegisterRequest is the inbound payload for opening a branch's cash session
type OpenRegisterRequest struct {
	RegisterID     *uuid.UUID      `validate:"omitempty"`
	BranchID       uuid.UUID       `validate:"required"`
	OperatorID     uuid.UUID       `validate:"required"`
	OpeningBalance decimal.Decimal `validate:"-"`
	OpenedAt       time.Time       `validate:"-"`
}

// RegisterService drives the cash register session state machine. Every
// transition runs inside one transaction against a row-locked register.
type RegisterService struct {
	registers      cashregister.RegisterRepository
	reconciliation *ReconciliationService
	uow            shared.UnitOfWork
	validate       *validator.Validate
	query          QueryConfig
	now            func() time.Time
	logger         *zap.Logger
}

// QueryConfig carries page sizing for register history queries.
type QueryConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// NewRegisterService creates a new RegisterService
func NewRegisterService(
	registers cashregister.RegisterRepository,
	reconciliation *ReconciliationService,
	uow shared.UnitOfWork,
	query QueryConfig,
	logger *zap.Logger,
) *RegisterService {
	return &RegisterService{
		registers:      registers,
		reconciliation: reconciliation,
		uow:            uow,
		validate:       validator.New(),
		query:          query,
		now:            time.Now,
		logger:         logger,
	}
}

// WithClock overrides the wall clock for tests
func (s *RegisterService) WithClock(now func() time.Time) *RegisterService {
	s.now = now
	return s
}

// Open starts a new session for a branch. It fails when the branch
// already has an open register, when the requested opening date falls
// before the branch's latest register, or when the identity is taken.
func (s *RegisterService) Open(ctx context.Context, req OpenRegisterRequest) (*cashregister.Register, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cash_register", "open")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid open request: %v", err))
	}

	openedAt := req.OpenedAt
	if openedAt.IsZero() {
		openedAt = s.now()
	}

	register, err := cashregister.NewRegister(req.BranchID, req.OperatorID, req.OpeningBalance, openedAt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.RegisterID != nil {
		register.ID = *req.RegisterID
	}

	err = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		exists, err := s.registers.Exists(txCtx, register.ID)
		if err != nil {
			return fmt.Errorf("failed to check register identity: %w", err)
		}
		if exists {
			return cashregister.ErrDuplicateRegister
		}

		if _, err := s.registers.FindOpenByBranch(txCtx, req.BranchID); err == nil {
			return cashregister.ErrRegisterOverlap
		} else if !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to check open register: %w", err)
		}

		latest, err := s.registers.FindLatestByBranch(txCtx, req.BranchID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load latest register: %w", err)
		}
		if latest != nil && latest.OpenedAt.After(openedAt) {
			return cashregister.ErrOutOfOrderOpen
		}

		return s.registers.Save(txCtx, register)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Opened cash register",
		zap.String("register_id", register.ID.String()),
		zap.String("branch_id", req.BranchID.String()),
		zap.String("opening_balance", req.OpeningBalance.String()),
	)

	return register, nil
}

// Close reconciles the session and transitions it to CLOSED. The system
// balance is computed over [openedAt, closeAt), where closeAt is now for
// a manual close and the end of the opening day for a scheduled one.
func (s *RegisterService) Close(ctx context.Context, registerID uuid.UUID, declaredBalance decimal.Decimal, operatorID uuid.UUID, scheduled bool) (*cashregister.Register, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cash_register", "close")
	defer span.End()
	telemetry.SetAttributes(span,
		"register_id", registerID.String(),
		"scheduled", scheduled,
	)

	var register *cashregister.Register
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		register, err = s.registers.FindByIDForUpdate(txCtx, registerID)
		if err != nil {
			return err
		}

		closeAt := s.now()
		if scheduled {
			closeAt = register.ScheduledCloseTime()
		}

		systemBalance, err := s.reconciliation.SystemBalanceForWindow(
			txCtx, register.BranchID, register.OpeningBalance, register.OpenedAt, closeAt)
		if err != nil {
			return err
		}

		if err := register.Close(declaredBalance, systemBalance, operatorID, closeAt); err != nil {
			return err
		}
		return s.registers.Save(txCtx, register)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Closed cash register",
		zap.String("register_id", registerID.String()),
		zap.Bool("scheduled", scheduled),
		zap.String("declared_balance", declaredBalance.String()),
		zap.String("system_balance", register.SystemBalance.String()),
	)

	return register, nil
}

// Reopen puts a branch's most recently created register back into OPEN.
// An older register can never be reopened, even when it was closed more
// recently in wall-clock time.
func (s *RegisterService) Reopen(ctx context.Context, registerID uuid.UUID, openingBalance decimal.Decimal) (*cashregister.Register, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cash_register", "reopen")
	defer span.End()

	var register *cashregister.Register
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		register, err = s.registers.FindByIDForUpdate(txCtx, registerID)
		if err != nil {
			return err
		}

		latest, err := s.registers.FindLatestByBranch(txCtx, register.BranchID)
		if err != nil {
			return fmt.Errorf("failed to load latest register: %w", err)
		}
		if latest.ID != register.ID {
			return cashregister.ErrInvalidReopen
		}

		if err := register.Reopen(openingBalance); err != nil {
			return err
		}
		return s.registers.Save(txCtx, register)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Reopened cash register",
		zap.String("register_id", registerID.String()),
		zap.String("opening_balance", openingBalance.String()),
	)

	return register, nil
}

// Delete soft deletes a register; ledger postings are untouched
func (s *RegisterService) Delete(ctx context.Context, registerID uuid.UUID) error {
	return s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		register, err := s.registers.FindByIDForUpdate(txCtx, registerID)
		if err != nil {
			return err
		}
		register.MarkDeleted()
		return s.registers.Save(txCtx, register)
	})
}

// History lists a branch's registers, newest first
func (s *RegisterService) History(ctx context.Context, branchID uuid.UUID, filter shared.Filter) (shared.Paginated[cashregister.Register], error) {
	filter = filter.Normalize(s.query.DefaultPageSize, s.query.MaxPageSize)
	return s.registers.ListByBranch(ctx, branchID, filter)
}
