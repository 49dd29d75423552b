package persistence

import (
	"context"
	"testing"
	"time"

	appcashregister "github.com/backoffice/ledger/internal/application/cashregister"
	"github.com/backoffice/ledger/internal/domain/cashregister"
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

func setupRegisterTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.CashRegisterModel{})
	require.NoError(t, err)

	return db
}

func openRegisterAt(t *testing.T, branchID uuid.UUID, openedAt time.Time) *cashregister.Register {
	register, err := cashregister.NewRegister(branchID, uuid.New(), decimal.RequireFromString("1000.00"), openedAt)
	require.NoError(t, err)
	return register
}

func TestRegisterRepository_SaveAssignsBranchSequence(t *testing.T) {
	db := setupRegisterTestDB(t)
	repo := NewGormRegisterRepository(db)
	ctx := context.Background()

	branchID := uuid.New()
	first := openRegisterAt(t, branchID, time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))
	second := openRegisterAt(t, branchID, time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC))
	otherBranch := openRegisterAt(t, uuid.New(), time.Date(2026, 1, 7, 8, 0, 0, 0, time.UTC))

	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))
	require.NoError(t, repo.Save(ctx, otherBranch))

	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, int64(2), second.Sequence)
	// Sequences are per branch
	assert.Equal(t, int64(1), otherBranch.Sequence)

	t.Run("resave keeps the assigned sequence", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, first))
		found, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), found.Sequence)
	})
}

func TestRegisterRepository_FindOpenByBranch(t *testing.T) {
	db := setupRegisterTestDB(t)
	repo := NewGormRegisterRepository(db)
	ctx := context.Background()

	branchID := uuid.New()
	register := openRegisterAt(t, branchID, time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, register))

	t.Run("finds the open register", func(t *testing.T) {
		found, err := repo.FindOpenByBranch(ctx, branchID)
		require.NoError(t, err)
		assert.Equal(t, register.ID, found.ID)
	})

	t.Run("closed registers do not match", func(t *testing.T) {
		err := register.Close(decimal.RequireFromString("1200.00"), decimal.RequireFromString("1180.00"),
			uuid.New(), register.OpenedAt.Add(10*time.Hour))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, register))

		_, err = repo.FindOpenByBranch(ctx, branchID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestRegisterRepository_FindLatestByBranch(t *testing.T) {
	db := setupRegisterTestDB(t)
	repo := NewGormRegisterRepository(db)
	ctx := context.Background()

	branchID := uuid.New()

	t.Run("not found on empty branch", func(t *testing.T) {
		_, err := repo.FindLatestByBranch(ctx, branchID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("returns the highest branch sequence", func(t *testing.T) {
		first := openRegisterAt(t, branchID, time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))
		require.NoError(t, repo.Save(ctx, first))
		require.NoError(t, first.Close(decimal.Zero, decimal.Zero, uuid.New(), first.OpenedAt.Add(time.Hour)))
		require.NoError(t, repo.Save(ctx, first))

		second := openRegisterAt(t, branchID, time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC))
		require.NoError(t, repo.Save(ctx, second))

		latest, err := repo.FindLatestByBranch(ctx, branchID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
	})
}

func TestRegisterRepository_FindOpen(t *testing.T) {
	db := setupRegisterTestDB(t)
	repo := NewGormRegisterRepository(db)
	ctx := context.Background()

	early := openRegisterAt(t, uuid.New(), time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))
	late := openRegisterAt(t, uuid.New(), time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC))
	closed := openRegisterAt(t, uuid.New(), time.Date(2026, 1, 4, 8, 0, 0, 0, time.UTC))
	require.NoError(t, closed.Close(decimal.Zero, decimal.Zero, uuid.New(), closed.OpenedAt.Add(time.Hour)))

	require.NoError(t, repo.Save(ctx, late))
	require.NoError(t, repo.Save(ctx, early))
	require.NoError(t, repo.Save(ctx, closed))

	open, err := repo.FindOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	// Oldest opening first
	assert.Equal(t, early.ID, open[0].ID)
	assert.Equal(t, late.ID, open[1].ID)
}

func TestRegisterRepository_ListByBranch(t *testing.T) {
	db := setupRegisterTestDB(t)
	repo := NewGormRegisterRepository(db)
	ctx := context.Background()

	branchID := uuid.New()
	for i := 0; i < 3; i++ {
		register := openRegisterAt(t, branchID, time.Date(2026, 1, 5+i, 8, 0, 0, 0, time.UTC))
		require.NoError(t, repo.Save(ctx, register))
		require.NoError(t, register.Close(decimal.Zero, decimal.Zero, uuid.New(), register.OpenedAt.Add(time.Hour)))
		require.NoError(t, repo.Save(ctx, register))
	}

	page, err := repo.ListByBranch(ctx, branchID, shared.Filter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	// Newest first
	assert.Equal(t, int64(3), page.Items[0].Sequence)
	assert.Equal(t, int64(2), page.Items[1].Sequence)
}

func TestRegisterRepository_Delete(t *testing.T) {
	db := setupRegisterTestDB(t)
	repo := NewGormRegisterRepository(db)
	ctx := context.Background()

	register := openRegisterAt(t, uuid.New(), time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, register))
	require.NoError(t, repo.Delete(ctx, register.ID))

	// The tombstoned register keeps holding its identity
	exists, err := repo.Exists(ctx, register.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.FindOpenByBranch(ctx, register.BranchID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), shared.ErrNotFound)
}

// Opening with a tombstoned register's id must fail as a duplicate
// instead of reviving the deleted row through the upsert in Save.
func TestRegisterRepository_TombstonedIdentityStaysTaken(t *testing.T) {
	db := setupRegisterTestDB(t)
	repo := NewGormRegisterRepository(db)
	uow := NewGormUnitOfWork(db)
	logger := zap.NewNop()
	reconciliation := appcashregister.NewReconciliationService(repo,
		NewGormMovementReader(db), NewGormPaymentMethodReader(db), logger)
	service := appcashregister.NewRegisterService(repo, reconciliation, uow,
		appcashregister.QueryConfig{DefaultPageSize: 20, MaxPageSize: 200}, logger)
	ctx := context.Background()

	register := openRegisterAt(t, uuid.New(), time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, register))
	require.NoError(t, repo.Delete(ctx, register.ID))

	_, err := service.Open(ctx, appcashregister.OpenRegisterRequest{
		RegisterID:     &register.ID,
		BranchID:       uuid.New(),
		OperatorID:     uuid.New(),
		OpeningBalance: decimal.RequireFromString("500.00"),
		OpenedAt:       time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, cashregister.ErrDuplicateRegister)

	// The deleted row stays deleted
	var model models.CashRegisterModel
	require.NoError(t, db.Where("id = ?", register.ID).First(&model).Error)
	assert.True(t, model.Deleted)
}
