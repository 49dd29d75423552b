package models

import (
	"time"

	"github.com/backoffice/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerAccountModel is the persistence model for the ledger account aggregate root.
type LedgerAccountModel struct {
	AggregateModel
	CounterpartyType string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_ledger_accounts_counterparty,priority:1"`
	CounterpartyID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_accounts_counterparty,priority:2"`
	OpenedAt         time.Time       `gorm:"not null"`
	Balance          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LastMovementAt   *time.Time
	Deleted          bool               `gorm:"not null;default:false;index"`
	Entries          []LedgerEntryModel `gorm:"foreignKey:AccountID"`
}

// TableName returns the table name for GORM
func (LedgerAccountModel) TableName() string {
	return "ledger_accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *LedgerAccountModel) ToDomain() *ledger.Account {
	account := &ledger.Account{
		CounterpartyType: ledger.CounterpartyType(m.CounterpartyType),
		CounterpartyID:   m.CounterpartyID,
		OpenedAt:         m.OpenedAt,
		Balance:          m.Balance,
		LastMovementAt:   m.LastMovementAt,
		Deleted:          m.Deleted,
		Entries:          make([]ledger.Entry, len(m.Entries)),
	}
	m.PopulateAggregateRoot(&account.BaseAggregateRoot)
	for i := range m.Entries {
		account.Entries[i] = *m.Entries[i].ToDomain()
	}
	account.SortEntries()
	return account
}

// NewLedgerAccountModel builds the persistence model from a domain Account.
// Entries are mapped separately so the repository controls their upsert.
func NewLedgerAccountModel(account *ledger.Account) *LedgerAccountModel {
	m := &LedgerAccountModel{
		CounterpartyType: account.CounterpartyType.String(),
		CounterpartyID:   account.CounterpartyID,
		OpenedAt:         account.OpenedAt,
		Balance:          account.Balance,
		LastMovementAt:   account.LastMovementAt,
		Deleted:          account.Deleted,
	}
	m.FromDomainAggregateRoot(account.BaseAggregateRoot)
	return m
}

// LedgerEntryModel is the persistence model for one ledger movement line.
// Rows are never deleted; reversals only flip the tombstone flag.
type LedgerEntryModel struct {
	BaseModel
	AccountID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_entries_account_seq,priority:1"`
	Sequence  int64           `gorm:"not null;uniqueIndex:idx_ledger_entries_account_seq,priority:2"`
	Kind      string          `gorm:"type:varchar(20);not null"`
	Series    string          `gorm:"type:varchar(10);not null"`
	Number    int             `gorm:"not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PostedAt  time.Time       `gorm:"not null;index"`
	DueAt     *time.Time
	// SourceDocumentID plus Kind is the entry's single document reference
	SourceDocumentID uuid.UUID `gorm:"type:uuid;not null;index"`
	Deleted          bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the persistence model to a domain Entry
func (m *LedgerEntryModel) ToDomain() *ledger.Entry {
	return &ledger.Entry{
		BaseEntity:       m.BaseModel.ToDomain(),
		AccountID:        m.AccountID,
		Sequence:         m.Sequence,
		Kind:             ledger.DocumentKind(m.Kind),
		Series:           m.Series,
		Number:           m.Number,
		Amount:           m.Amount,
		PostedAt:         m.PostedAt,
		DueAt:            m.DueAt,
		SourceDocumentID: m.SourceDocumentID,
		Deleted:          m.Deleted,
	}
}

// NewLedgerEntryModel builds the persistence model from a domain Entry
func NewLedgerEntryModel(entry *ledger.Entry) *LedgerEntryModel {
	m := &LedgerEntryModel{
		AccountID:        entry.AccountID,
		Sequence:         entry.Sequence,
		Kind:             entry.Kind.String(),
		Series:           entry.Series,
		Number:           entry.Number,
		Amount:           entry.Amount,
		PostedAt:         entry.PostedAt,
		DueAt:            entry.DueAt,
		SourceDocumentID: entry.SourceDocumentID,
		Deleted:          entry.Deleted,
	}
	m.FromDomainBaseEntity(entry.BaseEntity)
	return m
}
