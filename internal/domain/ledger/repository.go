package ledger

import (
	"context"
	"time"

	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// EntryFilter defines filtering options for entry listing
type EntryFilter struct {
	shared.Filter
	Kind        *DocumentKind
	FromDate    *time.Time
	ToDate      *time.Time
	IncludeDead bool
}

// AccountRepository defines the interface for ledger account persistence
type AccountRepository interface {
	// FindByID loads an account with its entries in posting order
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByIDForUpdate loads the account under a row lock. Must be
	// called inside a unit of work; concurrent postings against the
	// same account serialize on this lock.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByCounterparty finds the live account owned by a counterparty
	FindByCounterparty(ctx context.Context, counterpartyType CounterpartyType, counterpartyID uuid.UUID) (*Account, error)

	// Exists reports whether any persisted account, live or tombstoned,
	// has this identity
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Save upserts the account row together with its new and tombstoned entries
	Save(ctx context.Context, account *Account) error

	// ListEntries returns a page of entries for an account, posting order ascending
	ListEntries(ctx context.Context, accountID uuid.UUID, filter EntryFilter) (shared.Paginated[Entry], error)

	// Delete soft deletes an account
	Delete(ctx context.Context, id uuid.UUID) error
}
