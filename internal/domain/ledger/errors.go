package ledger

import "github.com/backoffice/ledger/internal/domain/shared"

// Posting-specific domain errors. ErrAccountNotFound is fatal for a
// posting: there is no counterparty ledger to receive the entry.
var (
	ErrAccountNotFound  = shared.NewDomainError("ACCOUNT_NOT_FOUND", "Ledger account does not exist or is deleted")
	ErrDuplicateAccount = shared.NewDomainError("DUPLICATE_ACCOUNT", "Ledger account already exists for this identity or counterparty")
)
