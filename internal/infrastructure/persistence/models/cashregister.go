package models

import (
	"time"

	"github.com/backoffice/ledger/internal/domain/cashregister"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashRegisterModel is the persistence model for the cash register aggregate root.
type CashRegisterModel struct {
	AggregateModel
	BranchID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cash_registers_branch_seq,priority:1"`
	// Sequence is the branch-wide creation order assigned on insert
	Sequence        int64            `gorm:"not null;uniqueIndex:idx_cash_registers_branch_seq,priority:2"`
	Status          string           `gorm:"type:varchar(10);not null;index"`
	OpeningBalance  decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	OpenedBy        uuid.UUID        `gorm:"type:uuid;not null"`
	OpenedAt        time.Time        `gorm:"not null"`
	DeclaredBalance *decimal.Decimal `gorm:"type:decimal(18,4)"`
	SystemBalance   *decimal.Decimal `gorm:"type:decimal(18,4)"`
	ClosedBy        *uuid.UUID       `gorm:"type:uuid"`
	ClosedAt        *time.Time
	Deleted         bool `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (CashRegisterModel) TableName() string {
	return "cash_registers"
}

// ToDomain converts the persistence model to a domain Register
func (m *CashRegisterModel) ToDomain() *cashregister.Register {
	register := &cashregister.Register{
		BranchID:        m.BranchID,
		Sequence:        m.Sequence,
		Status:          cashregister.Status(m.Status),
		OpeningBalance:  m.OpeningBalance,
		OpenedBy:        m.OpenedBy,
		OpenedAt:        m.OpenedAt,
		DeclaredBalance: m.DeclaredBalance,
		SystemBalance:   m.SystemBalance,
		ClosedBy:        m.ClosedBy,
		ClosedAt:        m.ClosedAt,
		Deleted:         m.Deleted,
	}
	m.PopulateAggregateRoot(&register.BaseAggregateRoot)
	return register
}

// NewCashRegisterModel builds the persistence model from a domain Register
func NewCashRegisterModel(register *cashregister.Register) *CashRegisterModel {
	m := &CashRegisterModel{
		BranchID:        register.BranchID,
		Sequence:        register.Sequence,
		Status:          register.Status.String(),
		OpeningBalance:  register.OpeningBalance,
		OpenedBy:        register.OpenedBy,
		OpenedAt:        register.OpenedAt,
		DeclaredBalance: register.DeclaredBalance,
		SystemBalance:   register.SystemBalance,
		ClosedBy:        register.ClosedBy,
		ClosedAt:        register.ClosedAt,
		Deleted:         register.Deleted,
	}
	m.FromDomainAggregateRoot(register.BaseAggregateRoot)
	return m
}
