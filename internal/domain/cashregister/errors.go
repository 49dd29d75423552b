package cashregister

import "github.com/backoffice/ledger/internal/domain/shared"

// Session-specific domain errors surfaced by the open/close/reopen rules
var (
	ErrRegisterOverlap   = shared.NewDomainError("REGISTER_OVERLAP", "Branch already has an open register")
	ErrOutOfOrderOpen    = shared.NewDomainError("OUT_OF_ORDER_OPEN", "Opening date falls before the branch's latest register")
	ErrDuplicateRegister = shared.NewDomainError("DUPLICATE_REGISTER", "A register with this identity already exists")
	ErrInvalidReopen     = shared.NewDomainError("INVALID_REOPEN", "Only the branch's most recently created register can be reopened")
)
