package persistence

import (
	"context"
	"errors"

	"github.com/backoffice/ledger/internal/domain/ledger"
	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/backoffice/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID loads an account with its entries in posting order
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	return r.findOne(connFor(ctx, r.db), "id = ?", id)
}

// FindByIDForUpdate loads the account under a row lock so concurrent
// postings against the same account serialize in the storage layer
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	return r.findOne(r.forUpdate(connFor(ctx, r.db)), "id = ?", id)
}

// FindByCounterparty finds the live account owned by a counterparty
func (r *GormAccountRepository) FindByCounterparty(ctx context.Context, counterpartyType ledger.CounterpartyType, counterpartyID uuid.UUID) (*ledger.Account, error) {
	return r.findOne(connFor(ctx, r.db),
		"counterparty_type = ? AND counterparty_id = ? AND deleted = ?",
		counterpartyType.String(), counterpartyID, false)
}

// Exists reports whether any persisted account carries this identity.
// A tombstoned account still holds its id, a rewrite through the upsert
// would revive it with a zero balance over its old entries.
func (r *GormAccountRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := connFor(ctx, r.db).Model(&models.LedgerAccountModel{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save upserts the account row together with its new and tombstoned
// entries. Callers run it inside a unit of work so all mutations commit
// or roll back together.
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	conn := connFor(ctx, r.db)

	accountModel := models.NewLedgerAccountModel(account)
	if err := conn.Omit("Entries").Clauses(clause.OnConflict{UpdateAll: true}).Create(accountModel).Error; err != nil {
		return err
	}

	if len(account.Entries) == 0 {
		return nil
	}
	entryModels := make([]models.LedgerEntryModel, len(account.Entries))
	for i := range account.Entries {
		entryModels[i] = *models.NewLedgerEntryModel(&account.Entries[i])
	}
	return conn.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entryModels).Error
}

// ListEntries returns a page of entries for an account, posting order ascending
func (r *GormAccountRepository) ListEntries(ctx context.Context, accountID uuid.UUID, filter ledger.EntryFilter) (shared.Paginated[ledger.Entry], error) {
	conn := connFor(ctx, r.db)

	query := conn.Model(&models.LedgerEntryModel{}).Where("account_id = ?", accountID)
	if !filter.IncludeDead {
		query = query.Where("deleted = ?", false)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", filter.Kind.String())
	}
	if filter.FromDate != nil {
		query = query.Where("posted_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("posted_at < ?", *filter.ToDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[ledger.Entry]{}, err
	}

	var entryModels []models.LedgerEntryModel
	if err := query.Order("sequence ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&entryModels).Error; err != nil {
		return shared.Paginated[ledger.Entry]{}, err
	}

	entries := make([]ledger.Entry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return shared.NewPaginated(entries, total, filter.Page, filter.PageSize), nil
}

// Delete soft deletes an account; the row and its entries remain
func (r *GormAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := connFor(ctx, r.db).Model(&models.LedgerAccountModel{}).
		Where("id = ?", id).
		Update("deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormAccountRepository) findOne(conn *gorm.DB, query string, args ...interface{}) (*ledger.Account, error) {
	var model models.LedgerAccountModel
	err := conn.
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where(query, args...).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// forUpdate adds a row lock on dialects that support it. SQLite has no
// row-level locks; its single-writer model covers the tests.
func (r *GormAccountRepository) forUpdate(conn *gorm.DB) *gorm.DB {
	if conn.Dialector.Name() == "postgres" {
		return conn.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return conn
}
