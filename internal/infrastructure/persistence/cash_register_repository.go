package persistence

import (
	"context"
	"errors"

	"github.com/backoffice/ledger/internal/domain/cashregister"
	"github.com/backoffice/ledger/internal/domain/shared"
	"github.com/backoffice/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRegisterRepository implements cashregister.RegisterRepository using GORM
type GormRegisterRepository struct {
	db *gorm.DB
}

// NewGormRegisterRepository creates a new GormRegisterRepository
func NewGormRegisterRepository(db *gorm.DB) *GormRegisterRepository {
	return &GormRegisterRepository{db: db}
}

// FindByID loads a register by identity
func (r *GormRegisterRepository) FindByID(ctx context.Context, id uuid.UUID) (*cashregister.Register, error) {
	return r.findOne(connFor(ctx, r.db), "id = ?", id)
}

// FindByIDForUpdate loads the register under a row lock
func (r *GormRegisterRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*cashregister.Register, error) {
	return r.findOne(r.forUpdate(connFor(ctx, r.db)), "id = ?", id)
}

// FindOpenByBranch returns the open register of a branch, if any
func (r *GormRegisterRepository) FindOpenByBranch(ctx context.Context, branchID uuid.UUID) (*cashregister.Register, error) {
	return r.findOne(connFor(ctx, r.db),
		"branch_id = ? AND status = ? AND deleted = ?",
		branchID, cashregister.StatusOpen.String(), false)
}

// FindLatestByBranch returns the most recent register of a branch by
// branch sequence, open or closed
func (r *GormRegisterRepository) FindLatestByBranch(ctx context.Context, branchID uuid.UUID) (*cashregister.Register, error) {
	var model models.CashRegisterModel
	err := connFor(ctx, r.db).
		Where("branch_id = ? AND deleted = ?", branchID, false).
		Order("sequence DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpen returns every open register across all branches
func (r *GormRegisterRepository) FindOpen(ctx context.Context) ([]cashregister.Register, error) {
	var regModels []models.CashRegisterModel
	err := connFor(ctx, r.db).
		Where("status = ? AND deleted = ?", cashregister.StatusOpen.String(), false).
		Order("opened_at ASC").
		Find(&regModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainRegisters(regModels), nil
}

// ListByBranch returns a page of a branch's registers, newest first
func (r *GormRegisterRepository) ListByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) (shared.Paginated[cashregister.Register], error) {
	conn := connFor(ctx, r.db)
	query := conn.Model(&models.CashRegisterModel{}).
		Where("branch_id = ? AND deleted = ?", branchID, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[cashregister.Register]{}, err
	}

	var regModels []models.CashRegisterModel
	if err := query.Order("sequence DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&regModels).Error; err != nil {
		return shared.Paginated[cashregister.Register]{}, err
	}
	return shared.NewPaginated(toDomainRegisters(regModels), total, filter.Page, filter.PageSize), nil
}

// Exists reports whether any persisted register carries this identity.
// Tombstoned registers keep their id, reusing it would revive the
// deleted row through the upsert in Save.
func (r *GormRegisterRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := connFor(ctx, r.db).Model(&models.CashRegisterModel{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save upserts the register. On first insert it assigns the next branch
// sequence, so register order within a branch follows insert order. The
// unique index on (branch_id, sequence) rejects races losing to a
// concurrent insert.
func (r *GormRegisterRepository) Save(ctx context.Context, register *cashregister.Register) error {
	conn := connFor(ctx, r.db)

	if register.Sequence == 0 {
		var maxSeq int64
		err := conn.Model(&models.CashRegisterModel{}).
			Where("branch_id = ?", register.BranchID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&maxSeq).Error
		if err != nil {
			return err
		}
		register.Sequence = maxSeq + 1
	}

	model := models.NewCashRegisterModel(register)
	return conn.Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

// Delete soft deletes a register
func (r *GormRegisterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := connFor(ctx, r.db).Model(&models.CashRegisterModel{}).
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

func (r *GormRegisterRepository) findOne(conn *gorm.DB, query string, args ...interface{}) (*cashregister.Register, error) {
	var model models.CashRegisterModel
	err := conn.Where(query, args...).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormRegisterRepository) forUpdate(conn *gorm.DB) *gorm.DB {
	if conn.Dialector.Name() == "postgres" {
		return conn.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return conn
}

func toDomainRegisters(regModels []models.CashRegisterModel) []cashregister.Register {
	registers := make([]cashregister.Register, len(regModels))
	for i := range regModels {
		registers[i] = *regModels[i].ToDomain()
	}
	return registers
}
