package cashregister

import (
	"context"

	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// RegisterRepository defines the interface for cash register persistence
type RegisterRepository interface {
	// FindByID finds a register by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Register, error)

	// FindByIDForUpdate loads the register under a row lock inside a unit of work
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Register, error)

	// FindOpenByBranch returns the branch's OPEN register, or ErrNotFound
	FindOpenByBranch(ctx context.Context, branchID uuid.UUID) (*Register, error)

	// FindLatestByBranch returns the branch's most recently created
	// register (highest sequence), or ErrNotFound when the branch has none
	FindLatestByBranch(ctx context.Context, branchID uuid.UUID) (*Register, error)

	// FindOpen returns every OPEN register across branches, one per
	// branch by construction
	FindOpen(ctx context.Context) ([]Register, error)

	// ListByBranch returns the branch's register history, newest first
	ListByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) (shared.Paginated[Register], error)

	// Exists reports whether any persisted register has this identity
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Save persists the register; on first insert it assigns the
	// branch-wide creation sequence
	Save(ctx context.Context, register *Register) error

	// Delete soft deletes a register
	Delete(ctx context.Context, id uuid.UUID) error
}
