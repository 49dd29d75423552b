package cashregister

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/backoffice/ledger/internal/domain/cashregister"
	"github.com/backoffice/ledger/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MethodTotal is the net movement of one payment method inside a
// register's window. Methods whose total is exactly zero are omitted
// from results.
type MethodTotal struct {
	PaymentMethodID uuid.UUID       `json:"payment_method_id"`
	Name            string          `json:"name"`
	AffectsCash     bool            `json:"affects_cash"`
	Total           decimal.Decimal `json:"total"`
}

// methodCacheTTL bounds how stale the payment method index may get.
// Methods change rarely; a close runs both balance formulas back to
// back and should hit the catalog once.
const methodCacheTTL = time.Minute

// ReconciliationService computes register balances and audit feeds from
// the external receipt and expense records. The cash-affecting and full
// system formulas share one aggregation; only the inclusion predicate
// differs, so the two can never drift apart.
type ReconciliationService struct {
	registers cashregister.RegisterRepository
	movements treasury.MovementReader
	methods   treasury.PaymentMethodReader
	now       func() time.Time
	logger    *zap.Logger

	mu             sync.Mutex
	methodCache    map[uuid.UUID]*treasury.PaymentMethod
	methodCachedAt time.Time
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	registers cashregister.RegisterRepository,
	movements treasury.MovementReader,
	methods treasury.PaymentMethodReader,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		registers: registers,
		movements: movements,
		methods:   methods,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock overrides the wall clock, used by scheduled closes and tests
func (s *ReconciliationService) WithClock(now func() time.Time) *ReconciliationService {
	s.now = now
	return s
}

// CashAffectingBalance is the physical cash expected in the drawer:
// opening balance plus the net of movements whose payment method
// affects cash.
func (s *ReconciliationService) CashAffectingBalance(ctx context.Context, registerID uuid.UUID) (decimal.Decimal, error) {
	register, err := s.registers.FindByID(ctx, registerID)
	if err != nil {
		return decimal.Zero, err
	}
	from, to := register.Window(s.now())
	return s.CashAffectingBalanceForWindow(ctx, register.BranchID, register.OpeningBalance, from, to)
}

// CashAffectingBalanceForWindow computes the cash-affecting balance over
// an explicit window, as the scheduled close does
func (s *ReconciliationService) CashAffectingBalanceForWindow(ctx context.Context, branchID uuid.UUID, openingBalance decimal.Decimal, from, to time.Time) (decimal.Decimal, error) {
	net, err := s.windowNet(ctx, branchID, from, to, func(m *treasury.PaymentMethod) bool {
		return m != nil && m.AffectsCash
	})
	if err != nil {
		return decimal.Zero, err
	}
	return openingBalance.Add(net), nil
}

// SystemBalance is the balance derived from all recorded transactions.
// While the register is OPEN it is computed live against now; once
// CLOSED the persisted value is authoritative.
func (s *ReconciliationService) SystemBalance(ctx context.Context, registerID uuid.UUID) (decimal.Decimal, error) {
	register, err := s.registers.FindByID(ctx, registerID)
	if err != nil {
		return decimal.Zero, err
	}
	if register.Status == cashregister.StatusClosed && register.SystemBalance != nil {
		return *register.SystemBalance, nil
	}
	from, to := register.Window(s.now())
	return s.SystemBalanceForWindow(ctx, register.BranchID, register.OpeningBalance, from, to)
}

// SystemBalanceForWindow computes the full system balance over an explicit window
func (s *ReconciliationService) SystemBalanceForWindow(ctx context.Context, branchID uuid.UUID, openingBalance decimal.Decimal, from, to time.Time) (decimal.Decimal, error) {
	net, err := s.windowNet(ctx, branchID, from, to, func(*treasury.PaymentMethod) bool {
		return true
	})
	if err != nil {
		return decimal.Zero, err
	}
	return openingBalance.Add(net), nil
}

// PaymentMethodTotals returns the net per-method movement in the
// register's window, omitting methods that net to exactly zero
func (s *ReconciliationService) PaymentMethodTotals(ctx context.Context, registerID uuid.UUID) ([]MethodTotal, error) {
	register, err := s.registers.FindByID(ctx, registerID)
	if err != nil {
		return nil, err
	}
	from, to := register.Window(s.now())

	movements, err := s.collectMovements(ctx, register.BranchID, from, to, nil)
	if err != nil {
		return nil, err
	}
	methodIndex, err := s.methodIndex(ctx)
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, mv := range movements {
		totals[mv.PaymentMethodID] = totals[mv.PaymentMethodID].Add(mv.SignedAmount)
	}

	result := make([]MethodTotal, 0, len(totals))
	for methodID, total := range totals {
		if total.IsZero() {
			continue
		}
		mt := MethodTotal{PaymentMethodID: methodID, Total: total}
		if m, ok := methodIndex[methodID]; ok {
			mt.Name = m.Name
			mt.AffectsCash = m.AffectsCash
		}
		result = append(result, mt)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// MovementFeed merges the window's receipt and expense records for one
// payment method into a single list ordered by date ascending
func (s *ReconciliationService) MovementFeed(ctx context.Context, registerID, paymentMethodID uuid.UUID) ([]treasury.Movement, error) {
	register, err := s.registers.FindByID(ctx, registerID)
	if err != nil {
		return nil, err
	}
	from, to := register.Window(s.now())

	return s.collectMovements(ctx, register.BranchID, from, to, &paymentMethodID)
}

// windowNet is the single aggregation both balance formulas run through:
// client receipts add, supplier receipts and expenses subtract, filtered
// by the include predicate over the movement's payment method.
func (s *ReconciliationService) windowNet(ctx context.Context, branchID uuid.UUID, from, to time.Time, include func(*treasury.PaymentMethod) bool) (decimal.Decimal, error) {
	receipts, err := s.movements.ReceiptsInWindow(ctx, branchID, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load receipts: %w", err)
	}
	expenses, err := s.movements.ExpensesInWindow(ctx, branchID, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load expenses: %w", err)
	}
	methodIndex, err := s.methodIndex(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	net := decimal.Zero
	for _, r := range receipts {
		if !include(methodIndex[r.PaymentMethodID]) {
			continue
		}
		if r.Direction == treasury.ReceiptFromClient {
			net = net.Add(r.Amount)
		} else {
			net = net.Sub(r.Amount)
		}
	}
	for _, e := range expenses {
		if !include(methodIndex[e.PaymentMethodID]) {
			continue
		}
		net = net.Sub(e.Amount)
	}
	return net, nil
}

// collectMovements merges receipts and expenses into the audit feed,
// optionally restricted to one payment method, ordered by date ascending
func (s *ReconciliationService) collectMovements(ctx context.Context, branchID uuid.UUID, from, to time.Time, methodID *uuid.UUID) ([]treasury.Movement, error) {
	receipts, err := s.movements.ReceiptsInWindow(ctx, branchID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipts: %w", err)
	}
	expenses, err := s.movements.ExpensesInWindow(ctx, branchID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	feed := make([]treasury.Movement, 0, len(receipts)+len(expenses))
	for _, r := range receipts {
		if methodID != nil && r.PaymentMethodID != *methodID {
			continue
		}
		amount := r.Amount
		if r.Direction == treasury.ReceiptToSupplier {
			amount = amount.Neg()
		}
		feed = append(feed, treasury.Movement{
			Kind:            treasury.MovementReceipt,
			RecordID:        r.ID,
			PaymentMethodID: r.PaymentMethodID,
			SignedAmount:    amount,
			Concept:         r.Concept,
			Date:            r.Date,
		})
	}
	for _, e := range expenses {
		if methodID != nil && e.PaymentMethodID != *methodID {
			continue
		}
		feed = append(feed, treasury.Movement{
			Kind:            treasury.MovementExpense,
			RecordID:        e.ID,
			PaymentMethodID: e.PaymentMethodID,
			SignedAmount:    e.Amount.Neg(),
			Concept:         e.Concept,
			Date:            e.Date,
		})
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Date.Before(feed[j].Date)
	})
	return feed, nil
}

func (s *ReconciliationService) methodIndex(ctx context.Context) (map[uuid.UUID]*treasury.PaymentMethod, error) {
	now := s.now()

	s.mu.Lock()
	if s.methodCache != nil && now.Sub(s.methodCachedAt) < methodCacheTTL {
		index := s.methodCache
		s.mu.Unlock()
		return index, nil
	}
	s.mu.Unlock()

	methods, err := s.methods.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment methods: %w", err)
	}
	index := make(map[uuid.UUID]*treasury.PaymentMethod, len(methods))
	for i := range methods {
		index[methods[i].ID] = &methods[i]
	}

	s.mu.Lock()
	s.methodCache = index
	s.methodCachedAt = now
	s.mu.Unlock()
	return index, nil
}
