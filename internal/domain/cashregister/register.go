package cashregister

import (
	"fmt"
	"time"

	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the state of a cash register session
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusClosed
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Register is a branch's daily cash session aggregate root.
// At most one register per branch may be OPEN at any time, and registers
// of a branch are totally ordered by Sequence (creation order).
type Register struct {
	shared.BaseAggregateRoot
	BranchID uuid.UUID
	// Sequence is the branch-wide creation order, assigned on first save.
	// Only the register with the highest sequence may be reopened.
	Sequence        int64
	Status          Status
	OpeningBalance  decimal.Decimal
	OpenedBy        uuid.UUID
	OpenedAt        time.Time
	DeclaredBalance *decimal.Decimal
	SystemBalance   *decimal.Decimal
	ClosedBy        *uuid.UUID
	ClosedAt        *time.Time
	Deleted         bool
}

// NewRegister opens a new cash session for a branch
func NewRegister(branchID, operatorID uuid.UUID, openingBalance decimal.Decimal, openedAt time.Time) (*Register, error) {
	if branchID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Branch ID cannot be empty")
	}
	if operatorID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Operator ID cannot be empty")
	}
	if openingBalance.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Opening balance cannot be negative")
	}
	if openedAt.IsZero() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Opening timestamp cannot be empty")
	}

	return &Register{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BranchID:          branchID,
		Status:            StatusOpen,
		OpeningBalance:    openingBalance,
		OpenedBy:          operatorID,
		OpenedAt:          openedAt,
	}, nil
}

// IsOpen returns true while the session accepts movements
func (r *Register) IsOpen() bool {
	return r.Status == StatusOpen
}

// Close stores the declared and computed balances and ends the session
func (r *Register) Close(declaredBalance, systemBalance decimal.Decimal, operatorID uuid.UUID, closedAt time.Time) error {
	if r.Deleted {
		return shared.NewDomainError("INVALID_STATE", "Cannot close a deleted register")
	}
	if r.Status != StatusOpen {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot close register in %s status", r.Status))
	}
	if operatorID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Closing operator ID cannot be empty")
	}
	if !closedAt.After(r.OpenedAt) {
		return shared.NewDomainError("VALIDATION_ERROR", "Closing timestamp must fall after the opening timestamp")
	}

	r.Status = StatusClosed
	r.DeclaredBalance = &declaredBalance
	r.SystemBalance = &systemBalance
	r.ClosedBy = &operatorID
	r.ClosedAt = &closedAt
	r.touch()

	return nil
}

// Reopen puts a closed session back into OPEN with a fresh opening
// balance. The caller guarantees this is the branch's most recently
// created register; the aggregate only checks its own state.
func (r *Register) Reopen(openingBalance decimal.Decimal) error {
	if r.Deleted {
		return shared.NewDomainError("INVALID_STATE", "Cannot reopen a deleted register")
	}
	if r.Status != StatusClosed {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot reopen register in %s status", r.Status))
	}
	if openingBalance.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Opening balance cannot be negative")
	}

	r.Status = StatusOpen
	r.OpeningBalance = openingBalance
	r.DeclaredBalance = nil
	r.SystemBalance = nil
	r.ClosedBy = nil
	r.ClosedAt = nil
	r.touch()

	return nil
}

// MarkDeleted soft deletes the register. Ledger postings are untouched.
func (r *Register) MarkDeleted() {
	r.Deleted = true
	r.touch()
}

// Window returns the session's reconciliation time window [OpenedAt, end).
// For an open register the window runs up to now; once closed it ends at
// the closing timestamp.
func (r *Register) Window(now time.Time) (time.Time, time.Time) {
	if r.ClosedAt != nil {
		return r.OpenedAt, *r.ClosedAt
	}
	return r.OpenedAt, now
}

// ScheduledCloseTime is the closing timestamp the automatic close uses:
// the end of the register's opening day.
func (r *Register) ScheduledCloseTime() time.Time {
	y, m, d := r.OpenedAt.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, r.OpenedAt.Location())
}

func (r *Register) touch() {
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}
