package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/backoffice/ledger/internal/domain/ledger"
	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAccountRepository is a mock implementation of ledger.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByCounterparty(ctx context.Context, counterpartyType ledger.CounterpartyType, counterpartyID uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, counterpartyType, counterpartyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) ListEntries(ctx context.Context, accountID uuid.UUID, filter ledger.EntryFilter) (shared.Paginated[ledger.Entry], error) {
	args := m.Called(ctx, accountID, filter)
	return args.Get(0).(shared.Paginated[ledger.Entry]), args.Error(1)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// fakeUnitOfWork runs the function directly; transactional behavior is
// covered by the persistence tests
type fakeUnitOfWork struct{}

func (fakeUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newAccount(t *testing.T) *ledger.Account {
	account, err := ledger.NewAccount(ledger.CounterpartyClient, uuid.New(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return account
}

func invoice(counterpartyID uuid.UUID, amount string) ledger.Invoice {
	return ledger.Invoice{
		DocumentHeader: ledger.DocumentHeader{
			ID:             uuid.New(),
			Series:         "A",
			Number:         42,
			Date:           time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			CounterpartyID: counterpartyID,
		},
		TotalAmount: decimal.RequireFromString(amount),
	}
}

func newPostingService(repo *MockAccountRepository) *PostingService {
	return NewPostingService(repo, fakeUnitOfWork{}, zap.NewNop())
}

func TestPostingService_Post(t *testing.T) {
	ctx := context.Background()

	t.Run("posts document and saves the mutated account", func(t *testing.T) {
		repo := new(MockAccountRepository)
		service := newPostingService(repo)
		account := newAccount(t)

		repo.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
		repo.On("Save", mock.Anything, account).Return(nil)

		entry, err := service.Post(ctx, invoice(account.CounterpartyID, "250.00"), account.ID)

		require.NoError(t, err)
		assert.True(t, entry.Amount.Equal(decimal.RequireFromString("-250.00")))
		assert.True(t, account.Balance.Equal(decimal.RequireFromString("-250.00")))
		repo.AssertExpectations(t)
	})

	t.Run("unknown account maps to account not found", func(t *testing.T) {
		repo := new(MockAccountRepository)
		service := newPostingService(repo)
		accountID := uuid.New()

		repo.On("FindByIDForUpdate", mock.Anything, accountID).Return(nil, shared.ErrNotFound)

		_, err := service.Post(ctx, invoice(uuid.New(), "10.00"), accountID)
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	})

	t.Run("deleted account maps to account not found", func(t *testing.T) {
		repo := new(MockAccountRepository)
		service := newPostingService(repo)
		account := newAccount(t)
		account.MarkDeleted()

		repo.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)

		_, err := service.Post(ctx, invoice(account.CounterpartyID, "10.00"), account.ID)
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	})

	t.Run("zero amount document never reaches the repository", func(t *testing.T) {
		repo := new(MockAccountRepository)
		service := newPostingService(repo)

		_, err := service.Post(ctx, invoice(uuid.New(), "0.00"), uuid.New())

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		repo.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("invalid header is rejected before the transaction", func(t *testing.T) {
		repo := new(MockAccountRepository)
		service := newPostingService(repo)

		doc := invoice(uuid.New(), "10.00")
		doc.Series = ""

		_, err := service.Post(ctx, doc, uuid.New())
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("save failure aborts the posting", func(t *testing.T) {
		repo := new(MockAccountRepository)
		service := newPostingService(repo)
		account := newAccount(t)

		repo.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
		repo.On("Save", mock.Anything, account).Return(assert.AnError)

		_, err := service.Post(ctx, invoice(account.CounterpartyID, "10.00"), account.ID)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestPostingService_Reverse(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip restores the balance", func(t *testing.T) {
		repo := new(MockAccountRepository)
		service := newPostingService(repo)
		account := newAccount(t)
		doc := invoice(account.CounterpartyID, "99.90")

		repo.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
		repo.On("Save", mock.Anything, account).Return(nil)

		_, err := service.Post(ctx, doc, account.ID)
		require.NoError(t, err)
		entry, err := service.Reverse(ctx, doc, account.ID)
		require.NoError(t, err)

		assert.False(t, entry.IsLive())
		assert.True(t, account.Balance.IsZero())
	})

	t.Run("reversal without a live entry is a consistency fault", func(t *testing.T) {
		repo := new(MockAccountRepository)
		service := newPostingService(repo)
		account := newAccount(t)

		repo.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)

		_, err := service.Reverse(ctx, invoice(account.CounterpartyID, "10.00"), account.ID)

		assert.ErrorIs(t, err, shared.ErrConsistency)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestPostingService_Apply(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches post", func(t *testing.T) {
		repo := new(MockAccountRepository)
		service := newPostingService(repo)
		account := newAccount(t)

		repo.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
		repo.On("Save", mock.Anything, account).Return(nil)

		entry, err := service.Apply(ctx, OperationPost, invoice(account.CounterpartyID, "10.00"), account.ID)
		require.NoError(t, err)
		assert.True(t, entry.IsLive())
	})

	t.Run("rejects unknown operation", func(t *testing.T) {
		repo := new(MockAccountRepository)
		service := newPostingService(repo)

		_, err := service.Apply(ctx, OperationKind("CANCEL"), invoice(uuid.New(), "10.00"), uuid.New())
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}
