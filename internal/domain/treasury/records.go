// Package treasury models the receipt, expense and payment-method records
// owned by external services. This module only ever reads them to build
// cash-register reconciliation totals; it never creates or mutates them.
package treasury

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is an external read-only payment method
type PaymentMethod struct {
	ID          uuid.UUID
	Name        string
	AffectsCash bool
	IsDefault   bool
}

// ReceiptDirection tells whether a receipt collects money from a client
// or hands it to a supplier
type ReceiptDirection string

const (
	ReceiptFromClient ReceiptDirection = "CLIENT"
	ReceiptToSupplier ReceiptDirection = "SUPPLIER"
)

// IsValid checks if the direction is valid
func (d ReceiptDirection) IsValid() bool {
	return d == ReceiptFromClient || d == ReceiptToSupplier
}

// ReceiptRecord is an external receipt movement inside a branch
type ReceiptRecord struct {
	ID              uuid.UUID
	BranchID        uuid.UUID
	PaymentMethodID uuid.UUID
	Direction       ReceiptDirection
	Amount          decimal.Decimal
	Concept         string
	Date            time.Time
}

// ExpenseRecord is an external expense movement inside a branch
type ExpenseRecord struct {
	ID              uuid.UUID
	BranchID        uuid.UUID
	PaymentMethodID uuid.UUID
	Amount          decimal.Decimal
	Concept         string
	Date            time.Time
}

// MovementKind tags entries of the merged audit feed
type MovementKind string

const (
	MovementReceipt MovementKind = "RECEIPT"
	MovementExpense MovementKind = "EXPENSE"
)

// Movement is one line of the merged receipt/expense audit feed.
// SignedAmount carries the cash effect: client receipts positive,
// supplier receipts and expenses negative.
type Movement struct {
	Kind            MovementKind
	RecordID        uuid.UUID
	PaymentMethodID uuid.UUID
	SignedAmount    decimal.Decimal
	Concept         string
	Date            time.Time
}
