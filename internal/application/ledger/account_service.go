package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backoffice/ledger/internal/domain/ledger"
	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/backoffice/ledger/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QueryConfig carries operational tuning for ledger queries. Page
// sizing is configuration, not domain logic.
type QueryConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// CreateAccountRequest is the inbound payload for onboarding a counterparty ledger
type CreateAccountRequest struct {
	AccountID        *uuid.UUID              `validate:"omitempty"`
	CounterpartyType ledger.CounterpartyType `validate:"required"`
	CounterpartyID   uuid.UUID               `validate:"required"`
	OpenedAt         time.Time               `validate:"required"`
}

// AccountService owns the ledger account lifecycle and read queries
type AccountService struct {
	accounts ledger.AccountRepository
	uow      shared.UnitOfWork
	validate *validator.Validate
	query    QueryConfig
	logger   *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts ledger.AccountRepository, uow shared.UnitOfWork, query QueryConfig, logger *zap.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		uow:      uow,
		validate: validator.New(),
		query:    query,
		logger:   logger,
	}
}

// CreateAccount onboards the single ledger account of a counterparty.
// A submission is rejected as a duplicate when its identity was ever
// persisted, tombstoned included, or when the counterparty already has
// a live account.
func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*ledger.Account, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_account", "create")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid account submission: %v", err))
	}

	account, err := ledger.NewAccount(req.CounterpartyType, req.CounterpartyID, req.OpenedAt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.AccountID != nil {
		account.ID = *req.AccountID
	}

	err = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		exists, err := s.accounts.Exists(txCtx, account.ID)
		if err != nil {
			return fmt.Errorf("failed to check account identity: %w", err)
		}
		if exists {
			return ledger.ErrDuplicateAccount
		}

		if _, err := s.accounts.FindByCounterparty(txCtx, req.CounterpartyType, req.CounterpartyID); err == nil {
			return ledger.ErrDuplicateAccount
		} else if !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to check counterparty account: %w", err)
		}

		return s.accounts.Save(txCtx, account)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Created ledger account",
		zap.String("account_id", account.ID.String()),
		zap.String("counterparty_type", account.CounterpartyType.String()),
		zap.String("counterparty_id", account.CounterpartyID.String()),
	)

	return account, nil
}

// GetBalance returns the account's running balance
func (s *AccountService) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// GetAccount loads an account with its entry history
func (s *AccountService) GetAccount(ctx context.Context, accountID uuid.UUID) (*ledger.Account, error) {
	return s.accounts.FindByID(ctx, accountID)
}

// GetAccountByCounterparty resolves the live account of a counterparty
func (s *AccountService) GetAccountByCounterparty(ctx context.Context, counterpartyType ledger.CounterpartyType, counterpartyID uuid.UUID) (*ledger.Account, error) {
	if !counterpartyType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Counterparty type must be CLIENT or SUPPLIER")
	}
	return s.accounts.FindByCounterparty(ctx, counterpartyType, counterpartyID)
}

// ListEntries returns one page of the account's movement lines in
// posting order
func (s *AccountService) ListEntries(ctx context.Context, accountID uuid.UUID, filter ledger.EntryFilter) (shared.Paginated[ledger.Entry], error) {
	filter.Filter = filter.Filter.Normalize(s.query.DefaultPageSize, s.query.MaxPageSize)

	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		return shared.Paginated[ledger.Entry]{}, err
	}
	return s.accounts.ListEntries(ctx, accountID, filter)
}

// DeleteAccount flags the account as deleted; the row and its entries remain
func (s *AccountService) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	return s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		account, err := s.accounts.FindByIDForUpdate(txCtx, accountID)
		if err != nil {
			return err
		}
		account.MarkDeleted()
		return s.accounts.Save(txCtx, account)
	})
}

// VerifyBalance recomputes the balance from live entries and reports a
// consistency fault when the stored balance diverges
func (s *AccountService) VerifyBalance(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if sum, ok := account.VerifyBalance(); !ok {
		s.logger.Error("Ledger balance diverged from live entry sum",
			zap.String("account_id", accountID.String()),
			zap.String("stored", account.Balance.String()),
			zap.String("computed", sum.String()),
		)
		return shared.NewDomainError("CONSISTENCY_ERROR",
			fmt.Sprintf("Account %s balance %s does not match live entry sum %s", accountID, account.Balance, sum))
	}
	return nil
}
