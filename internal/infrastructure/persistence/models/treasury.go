package models

import (
	"time"

	"github.com/backoffice/ledger/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The treasury tables are owned by external receipt/expense services.
// These models exist only so reconciliation queries can read them.

// PaymentMethodModel is the read-only persistence model for payment methods.
type PaymentMethodModel struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);not null"`
	AffectsCash bool   `gorm:"not null;default:false"`
	IsDefault   bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (PaymentMethodModel) TableName() string {
	return "payment_methods"
}

// ToDomain converts the persistence model to a domain PaymentMethod
func (m *PaymentMethodModel) ToDomain() *treasury.PaymentMethod {
	return &treasury.PaymentMethod{
		ID:          m.ID,
		Name:        m.Name,
		AffectsCash: m.AffectsCash,
		IsDefault:   m.IsDefault,
	}
}

// ReceiptRecordModel is the read-only persistence model for receipt records.
type ReceiptRecordModel struct {
	BaseModel
	BranchID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_receipt_records_branch_date,priority:1"`
	PaymentMethodID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Direction       string          `gorm:"type:varchar(10);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Concept         string          `gorm:"type:varchar(255)"`
	Date            time.Time       `gorm:"not null;index:idx_receipt_records_branch_date,priority:2"`
}

// TableName returns the table name for GORM
func (ReceiptRecordModel) TableName() string {
	return "receipt_records"
}

// ToDomain converts the persistence model to a domain ReceiptRecord
func (m *ReceiptRecordModel) ToDomain() *treasury.ReceiptRecord {
	return &treasury.ReceiptRecord{
		ID:              m.ID,
		BranchID:        m.BranchID,
		PaymentMethodID: m.PaymentMethodID,
		Direction:       treasury.ReceiptDirection(m.Direction),
		Amount:          m.Amount,
		Concept:         m.Concept,
		Date:            m.Date,
	}
}

// ExpenseRecordModel is the read-only persistence model for expense records.
type ExpenseRecordModel struct {
	BaseModel
	BranchID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_expense_records_branch_date,priority:1"`
	PaymentMethodID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Concept         string          `gorm:"type:varchar(255)"`
	Date            time.Time       `gorm:"not null;index:idx_expense_records_branch_date,priority:2"`
}

// TableName returns the table name for GORM
func (ExpenseRecordModel) TableName() string {
	return "expense_records"
}

// ToDomain converts the persistence model to a domain ExpenseRecord
func (m *ExpenseRecordModel) ToDomain() *treasury.ExpenseRecord {
	return &treasury.ExpenseRecord{
		ID:              m.ID,
		BranchID:        m.BranchID,
		PaymentMethodID: m.PaymentMethodID,
		Amount:          m.Amount,
		Concept:         m.Concept,
		Date:            m.Date,
	}
}
