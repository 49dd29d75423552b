package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/backoffice/ledger/internal/domain/ledger"
	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/backoffice/ledger/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OperationKind tells whether a confirmed document is being posted or reversed
type OperationKind string

const (
	OperationPost    OperationKind = "POST"
	OperationReverse OperationKind = "REVERSE"
)

// PostingService translates confirmed source documents into atomic
// mutations of exactly one ledger account. Every posting and reversal
// runs in a single transaction; a failure leaves the account untouched.
type PostingService struct {
	accounts ledger.AccountRepository
	uow      shared.UnitOfWork
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPostingService creates a new PostingService
func NewPostingService(accounts ledger.AccountRepository, uow shared.UnitOfWork, logger *zap.Logger) *PostingService {
	return &PostingService{
		accounts: accounts,
		uow:      uow,
		validate: validator.New(),
		logger:   logger,
	}
}

// Apply dispatches a document plus operation kind to Post or Reverse
func (s *PostingService) Apply(ctx context.Context, op OperationKind, doc ledger.SourceDocument, accountID uuid.UUID) (*ledger.Entry, error) {
	switch op {
	case OperationPost:
		return s.Post(ctx, doc, accountID)
	case OperationReverse:
		return s.Reverse(ctx, doc, accountID)
	}
	return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Unknown operation kind %q", op))
}

// Post appends the document's entry to the account and moves the balance.
// The entry insert, balance update and last-movement update commit together.
func (s *PostingService) Post(ctx context.Context, doc ledger.SourceDocument, accountID uuid.UUID) (*ledger.Entry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_posting", "post")
	defer span.End()

	if err := s.validateDocument(doc); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		"account_id", accountID.String(),
		"document_kind", doc.Kind().String(),
		"document_id", doc.Header().ID.String(),
	)

	var entry *ledger.Entry
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		account, err := s.lockAccount(txCtx, accountID)
		if err != nil {
			return err
		}

		entry, err = account.Post(doc)
		if err != nil {
			return err
		}

		return s.accounts.Save(txCtx, account)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Posted document to ledger account",
		zap.String("account_id", accountID.String()),
		zap.String("document_kind", doc.Kind().String()),
		zap.String("series", doc.Header().Series),
		zap.Int("number", doc.Header().Number),
		zap.String("amount", entry.Amount.String()),
	)

	return entry, nil
}

// Reverse tombstones the live entry posted from the document and restores
// the balance. A reversal that finds nothing to undo is an integrity
// fault: it aborts loudly instead of silently corrupting the balance.
func (s *PostingService) Reverse(ctx context.Context, doc ledger.SourceDocument, accountID uuid.UUID) (*ledger.Entry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_posting", "reverse")
	defer span.End()

	telemetry.SetAttributes(span,
		"account_id", accountID.String(),
		"document_kind", doc.Kind().String(),
		"document_id", doc.Header().ID.String(),
	)

	var entry *ledger.Entry
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		account, err := s.lockAccount(txCtx, accountID)
		if err != nil {
			return err
		}

		entry, err = account.Reverse(doc)
		if err != nil {
			return err
		}

		return s.accounts.Save(txCtx, account)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrConsistency) {
			s.logger.Error("Reversal found no live entry for source document",
				zap.String("account_id", accountID.String()),
				zap.String("document_kind", doc.Kind().String()),
				zap.String("document_id", doc.Header().ID.String()),
			)
		}
		return nil, err
	}

	s.logger.Info("Reversed ledger entry",
		zap.String("account_id", accountID.String()),
		zap.String("entry_id", entry.ID.String()),
		zap.String("amount", entry.Amount.String()),
	)

	return entry, nil
}

// lockAccount loads the account under a row lock and maps a missing or
// deleted account to the fatal posting error
func (s *PostingService) lockAccount(ctx context.Context, accountID uuid.UUID) (*ledger.Account, error) {
	account, err := s.accounts.FindByIDForUpdate(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load ledger account: %w", err)
	}
	if account.Deleted {
		return nil, ledger.ErrAccountNotFound
	}
	return account, nil
}

func (s *PostingService) validateDocument(doc ledger.SourceDocument) error {
	if err := s.validate.Struct(doc.Header()); err != nil {
		return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid document header: %v", err))
	}
	if ledger.SignedAmount(doc).Equal(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_ERROR", "Document amount cannot be zero")
	}
	return nil
}
