package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/backoffice/ledger/internal/domain/treasury"
	"github.com/backoffice/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMovementReader reads external receipt and expense records for
// reconciliation windows
type GormMovementReader struct {
	db *gorm.DB
}

// NewGormMovementReader creates a new GormMovementReader
func NewGormMovementReader(db *gorm.DB) *GormMovementReader {
	return &GormMovementReader{db: db}
}

// ReceiptsInWindow returns a branch's receipts with date in [from, to)
func (r *GormMovementReader) ReceiptsInWindow(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]treasury.ReceiptRecord, error) {
	var recordModels []models.ReceiptRecordModel
	err := connFor(ctx, r.db).
		Where("branch_id = ? AND date >= ? AND date < ?", branchID, from, to).
		Order("date ASC").
		Find(&recordModels).Error
	if err != nil {
		return nil, err
	}
	records := make([]treasury.ReceiptRecord, len(recordModels))
	for i := range recordModels {
		records[i] = *recordModels[i].ToDomain()
	}
	return records, nil
}

// ExpensesInWindow returns a branch's expenses with date in [from, to)
func (r *GormMovementReader) ExpensesInWindow(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]treasury.ExpenseRecord, error) {
	var recordModels []models.ExpenseRecordModel
	err := connFor(ctx, r.db).
		Where("branch_id = ? AND date >= ? AND date < ?", branchID, from, to).
		Order("date ASC").
		Find(&recordModels).Error
	if err != nil {
		return nil, err
	}
	records := make([]treasury.ExpenseRecord, len(recordModels))
	for i := range recordModels {
		records[i] = *recordModels[i].ToDomain()
	}
	return records, nil
}

// GormPaymentMethodReader is the read-only lookup over payment methods
type GormPaymentMethodReader struct {
	db *gorm.DB
}

// NewGormPaymentMethodReader creates a new GormPaymentMethodReader
func NewGormPaymentMethodReader(db *gorm.DB) *GormPaymentMethodReader {
	return &GormPaymentMethodReader{db: db}
}

// FindByID finds a payment method by identity
func (r *GormPaymentMethodReader) FindByID(ctx context.Context, id uuid.UUID) (*treasury.PaymentMethod, error) {
	var model models.PaymentMethodModel
	err := connFor(ctx, r.db).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every payment method, name ascending
func (r *GormPaymentMethodReader) FindAll(ctx context.Context) ([]treasury.PaymentMethod, error) {
	var methodModels []models.PaymentMethodModel
	err := connFor(ctx, r.db).Order("name ASC").Find(&methodModels).Error
	if err != nil {
		return nil, err
	}
	methods := make([]treasury.PaymentMethod, len(methodModels))
	for i := range methodModels {
		methods[i] = *methodModels[i].ToDomain()
	}
	return methods, nil
}
