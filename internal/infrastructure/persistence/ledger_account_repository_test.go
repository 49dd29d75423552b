package persistence

import (
	"context"
	"testing"
	"time"

	ledgerapp "github.com/backoffice/ledger/internal/application/ledger"
	"github.com/backoffice/ledger/internal/domain/ledger"
	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/backoffice/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAccountTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.LedgerAccountModel{}, &models.LedgerEntryModel{})
	require.NoError(t, err)

	return db
}

func newTestAccount(t *testing.T) *ledger.Account {
	account, err := ledger.NewAccount(ledger.CounterpartyClient, uuid.New(), time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return account
}

func invoiceFor(counterpartyID uuid.UUID, amount string, date time.Time) ledger.Invoice {
	return ledger.Invoice{
		DocumentHeader: ledger.DocumentHeader{
			ID:             uuid.New(),
			Series:         "A",
			Number:         1,
			Date:           date,
			CounterpartyID: counterpartyID,
		},
		TotalAmount: decimal.RequireFromString(amount),
	}
}

func TestAccountRepository_SaveAndFind(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	t.Run("saves account and loads it back with entries in posting order", func(t *testing.T) {
		account := newTestAccount(t)
		_, err := account.Post(invoiceFor(account.CounterpartyID, "150.00", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
		_, err = account.Post(invoiceFor(account.CounterpartyID, "50.00", time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)

		err = repo.Save(ctx, account)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.ID, found.ID)
		assert.True(t, found.Balance.Equal(decimal.RequireFromString("-200.00")))
		require.Len(t, found.Entries, 2)
		// Posting order, not date order
		assert.Equal(t, int64(1), found.Entries[0].Sequence)
		assert.Equal(t, int64(2), found.Entries[1].Sequence)
		assert.True(t, found.Entries[0].PostedAt.After(found.Entries[1].PostedAt))
	})

	t.Run("upserts on second save", func(t *testing.T) {
		account := newTestAccount(t)
		require.NoError(t, repo.Save(ctx, account))

		_, err := account.Post(invoiceFor(account.CounterpartyID, "75.00", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, account))

		found, err := repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		require.Len(t, found.Entries, 1)
		assert.True(t, found.Balance.Equal(decimal.RequireFromString("-75.00")))
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestAccountRepository_FindByCounterparty(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	account := newTestAccount(t)
	require.NoError(t, repo.Save(ctx, account))

	t.Run("finds live account by counterparty identity", func(t *testing.T) {
		found, err := repo.FindByCounterparty(ctx, ledger.CounterpartyClient, account.CounterpartyID)
		require.NoError(t, err)
		assert.Equal(t, account.ID, found.ID)
	})

	t.Run("type must match", func(t *testing.T) {
		_, err := repo.FindByCounterparty(ctx, ledger.CounterpartySupplier, account.CounterpartyID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("skips soft deleted accounts", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, account.ID))
		_, err := repo.FindByCounterparty(ctx, ledger.CounterpartyClient, account.CounterpartyID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestAccountRepository_Exists(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	account := newTestAccount(t)
	require.NoError(t, repo.Save(ctx, account))

	exists, err := repo.Exists(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)

	// A soft-deleted account still occupies its identity
	require.NoError(t, repo.Delete(ctx, account.ID))
	exists, err = repo.Exists(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAccountRepository_ReversalSurvivesReload(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	account := newTestAccount(t)
	doc := invoiceFor(account.CounterpartyID, "100.00", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	_, err := account.Post(doc)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, account))

	// Reload, reverse, save again: the tombstone must persist
	loaded, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	_, err = loaded.Reverse(doc)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, loaded))

	final, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, final.Balance.IsZero())
	require.Len(t, final.Entries, 1)
	assert.False(t, final.Entries[0].IsLive())
	assert.Nil(t, final.LastMovementAt)
}

func TestAccountRepository_ListEntries(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	account := newTestAccount(t)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	var docs []ledger.Invoice
	for i := 0; i < 5; i++ {
		doc := invoiceFor(account.CounterpartyID, "10.00", base.AddDate(0, 0, i))
		_, err := account.Post(doc)
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	_, err := account.Reverse(docs[0])
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, account))

	t.Run("excludes tombstoned entries by default", func(t *testing.T) {
		page, err := repo.ListEntries(ctx, account.ID, ledger.EntryFilter{Filter: shared.DefaultFilter(20)})
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Total)
		assert.Len(t, page.Items, 4)
	})

	t.Run("includes tombstones on request", func(t *testing.T) {
		page, err := repo.ListEntries(ctx, account.ID, ledger.EntryFilter{
			Filter:      shared.DefaultFilter(20),
			IncludeDead: true,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
	})

	t.Run("filters by date range", func(t *testing.T) {
		from := base.AddDate(0, 0, 1)
		to := base.AddDate(0, 0, 3)
		page, err := repo.ListEntries(ctx, account.ID, ledger.EntryFilter{
			Filter:   shared.DefaultFilter(20),
			FromDate: &from,
			ToDate:   &to,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("filters by document kind", func(t *testing.T) {
		kind := ledger.DocumentKindReceipt
		page, err := repo.ListEntries(ctx, account.ID, ledger.EntryFilter{
			Filter: shared.DefaultFilter(20),
			Kind:   &kind,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(0), page.Total)
	})

	t.Run("paginates in posting order", func(t *testing.T) {
		filter := shared.Filter{Page: 2, PageSize: 2}
		page, err := repo.ListEntries(ctx, account.ID, ledger.EntryFilter{Filter: filter})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, int64(4), page.Items[0].Sequence)
		assert.Equal(t, 2, page.TotalPages)
	})
}

func TestAccountRepository_Delete(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	t.Run("delete of unknown account reports not found", func(t *testing.T) {
		err := repo.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("soft delete keeps the row", func(t *testing.T) {
		account := newTestAccount(t)
		require.NoError(t, repo.Save(ctx, account))
		require.NoError(t, repo.Delete(ctx, account.ID))

		found, err := repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, found.Deleted)
	})
}

// Reusing a tombstoned account's identity must fail as a duplicate.
// Before that guard the upsert in Save revived the deleted row with a
// zero balance on top of its surviving entries.
func TestAccountRepository_TombstonedIdentityStaysTaken(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewGormAccountRepository(db)
	uow := NewGormUnitOfWork(db)
	service := ledgerapp.NewAccountService(repo, uow,
		ledgerapp.QueryConfig{DefaultPageSize: 20, MaxPageSize: 200}, zap.NewNop())
	ctx := context.Background()

	account := newTestAccount(t)
	_, err := account.Post(invoiceFor(account.CounterpartyID, "150.00", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, account))
	require.NoError(t, repo.Delete(ctx, account.ID))

	_, err = service.CreateAccount(ctx, ledgerapp.CreateAccountRequest{
		AccountID:        &account.ID,
		CounterpartyType: ledger.CounterpartyClient,
		CounterpartyID:   uuid.New(),
		OpenedAt:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateAccount)

	// The tombstoned row and its entries are untouched
	reloaded, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Deleted)
	require.Len(t, reloaded.Entries, 1)
	assert.True(t, reloaded.Balance.Equal(decimal.RequireFromString("-150.00")))
}
