package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CounterpartyType discriminates which kind of counterparty owns an account
type CounterpartyType string

const (
	CounterpartyClient   CounterpartyType = "CLIENT"
	CounterpartySupplier CounterpartyType = "SUPPLIER"
)

// IsValid checks if the counterparty type is valid
func (t CounterpartyType) IsValid() bool {
	return t == CounterpartyClient || t == CounterpartySupplier
}

// String returns the string representation of CounterpartyType
func (t CounterpartyType) String() string {
	return string(t)
}

// Account is the per-counterparty running-balance aggregate root.
// Invariant: Balance equals the sum of Amount over live entries.
// Balance and LastMovementAt are mutated only through Post and Reverse.
type Account struct {
	shared.BaseAggregateRoot
	CounterpartyType CounterpartyType
	CounterpartyID   uuid.UUID
	OpenedAt         time.Time
	Balance          decimal.Decimal
	LastMovementAt   *time.Time
	Deleted          bool
	// Entries in posting order (ascending sequence)
	Entries []Entry
}

// NewAccount creates a ledger account for exactly one counterparty
func NewAccount(counterpartyType CounterpartyType, counterpartyID uuid.UUID, openedAt time.Time) (*Account, error) {
	if !counterpartyType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Counterparty type must be CLIENT or SUPPLIER")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Counterparty ID cannot be empty")
	}
	if openedAt.IsZero() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Opening date cannot be empty")
	}

	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CounterpartyType:  counterpartyType,
		CounterpartyID:    counterpartyID,
		OpenedAt:          openedAt,
		Balance:           decimal.Zero,
		Entries:           make([]Entry, 0),
	}, nil
}

// Post appends the entry for a confirmed document and moves the balance.
// Returns the created entry so the caller can persist it alongside the
// account mutation in one transaction.
func (a *Account) Post(doc SourceDocument) (*Entry, error) {
	if a.Deleted {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot post to a deleted account")
	}
	if !doc.Kind().IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unknown document kind")
	}
	if a.findLive(doc.Ref()) != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS",
			fmt.Sprintf("%s %s-%d is already posted on account %s", doc.Kind(), doc.Header().Series, doc.Header().Number, a.ID))
	}

	entry := NewEntry(a.ID, a.nextSequence(), doc)
	a.Entries = append(a.Entries, entry)
	a.applyAmount(entry.Amount)

	movedAt := doc.Header().Date
	a.LastMovementAt = &movedAt
	a.touch()

	return &a.Entries[len(a.Entries)-1], nil
}

// Reverse tombstones the unique live entry posted from doc and restores
// the balance to its exact pre-posting value. A reversal with no live
// entry to undo is an integrity fault, never a no-op.
func (a *Account) Reverse(doc SourceDocument) (*Entry, error) {
	ref := doc.Ref()
	entry := a.findLive(ref)
	if entry == nil {
		return nil, shared.NewDomainError("CONSISTENCY_ERROR",
			fmt.Sprintf("No live entry for %s %s-%d on account %s", ref.Kind, doc.Header().Series, doc.Header().Number, a.ID))
	}

	wasLatest := a.isLatestLive(entry)

	entry.markDeleted()
	a.applyAmount(entry.Amount.Neg())

	// The reversed entry only anchored the last-movement date if it was
	// the most recent live posting; otherwise a newer entry still does.
	if wasLatest {
		if prev := a.latestLive(); prev != nil {
			movedAt := prev.PostedAt
			a.LastMovementAt = &movedAt
		} else {
			a.LastMovementAt = nil
		}
	}
	a.touch()

	return entry, nil
}

// MarkDeleted flags the account as deleted. Accounts are never removed.
func (a *Account) MarkDeleted() {
	a.Deleted = true
	a.touch()
}

// LiveEntries returns the non-tombstoned entries in posting order
func (a *Account) LiveEntries() []Entry {
	live := make([]Entry, 0, len(a.Entries))
	for _, e := range a.Entries {
		if e.IsLive() {
			live = append(live, e)
		}
	}
	return live
}

// VerifyBalance recomputes the balance from live entries and reports
// whether the stored balance matches it
func (a *Account) VerifyBalance() (decimal.Decimal, bool) {
	sum := decimal.Zero
	for _, e := range a.Entries {
		if e.IsLive() {
			sum = sum.Add(e.Amount)
		}
	}
	sum = normalizeZero(sum)
	return sum, sum.Equal(a.Balance)
}

// applyAmount adds delta to the balance and snaps residual noise to zero
func (a *Account) applyAmount(delta decimal.Decimal) {
	a.Balance = normalizeZero(a.Balance.Add(delta))
}

// normalizeZero stores an exact zero whenever the value rounds to 0.00,
// so fractional noise from long posting/reversal chains never shows up
// as a nonzero balance.
func normalizeZero(v decimal.Decimal) decimal.Decimal {
	if v.Round(2).IsZero() {
		return decimal.Zero
	}
	return v
}

func (a *Account) nextSequence() int64 {
	var maxSeq int64
	for _, e := range a.Entries {
		if e.Sequence > maxSeq {
			maxSeq = e.Sequence
		}
	}
	return maxSeq + 1
}

func (a *Account) findLive(ref DocumentRef) *Entry {
	for i := range a.Entries {
		if a.Entries[i].IsLive() && a.Entries[i].References(ref) {
			return &a.Entries[i]
		}
	}
	return nil
}

// latestLive returns the live entry with the highest posting sequence
func (a *Account) latestLive() *Entry {
	var latest *Entry
	for i := range a.Entries {
		if !a.Entries[i].IsLive() {
			continue
		}
		if latest == nil || a.Entries[i].Sequence > latest.Sequence {
			latest = &a.Entries[i]
		}
	}
	return latest
}

func (a *Account) isLatestLive(entry *Entry) bool {
	latest := a.latestLive()
	return latest != nil && latest.Sequence == entry.Sequence
}

// SortEntries orders the in-memory entry collection by posting sequence.
// Repositories call this after loading rows.
func (a *Account) SortEntries() {
	sort.Slice(a.Entries, func(i, j int) bool {
		return a.Entries[i].Sequence < a.Entries[j].Sequence
	})
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}
