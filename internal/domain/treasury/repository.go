package treasury

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MovementReader reads the external receipt and expense records that
// fall into a branch's reconciliation window [from, to).
type MovementReader interface {
	ReceiptsInWindow(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]ReceiptRecord, error)
	ExpensesInWindow(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]ExpenseRecord, error)
}

// PaymentMethodReader is the read-only lookup over external payment methods
type PaymentMethodReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentMethod, error)
	FindAll(ctx context.Context) ([]PaymentMethod, error)
}
