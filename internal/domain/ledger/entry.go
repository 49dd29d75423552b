package ledger

import (
	"time"

	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is one movement line inside a ledger account. Entries are
// append-only: a reversal tombstones the line, it never removes the row.
type Entry struct {
	shared.BaseEntity
	AccountID uuid.UUID
	// Sequence is the posting order within the account. Backdated
	// documents keep their sequence position; dates never reorder it.
	Sequence int64
	Kind     DocumentKind
	Series   string
	Number   int
	// Amount is signed per the system-wide posting polarity
	Amount   decimal.Decimal
	PostedAt time.Time
	DueAt    *time.Time
	// SourceDocumentID together with Kind forms the entry's single
	// source-document reference
	SourceDocumentID uuid.UUID
	Deleted          bool
}

// NewEntry builds the entry a document posts to the given account
func NewEntry(accountID uuid.UUID, sequence int64, doc SourceDocument) Entry {
	header := doc.Header()
	return Entry{
		BaseEntity:       shared.NewBaseEntity(),
		AccountID:        accountID,
		Sequence:         sequence,
		Kind:             doc.Kind(),
		Series:           header.Series,
		Number:           header.Number,
		Amount:           SignedAmount(doc),
		PostedAt:         header.Date,
		DueAt:            dueDate(doc),
		SourceDocumentID: header.ID,
	}
}

// IsLive returns true while the entry has not been tombstoned
func (e *Entry) IsLive() bool {
	return !e.Deleted
}

// References reports whether the entry was posted from the given source document
func (e *Entry) References(ref DocumentRef) bool {
	return e.Kind == ref.Kind && e.SourceDocumentID == ref.DocumentID
}

// markDeleted tombstones the entry during a reversal
func (e *Entry) markDeleted() {
	e.Deleted = true
	e.UpdatedAt = time.Now()
}
