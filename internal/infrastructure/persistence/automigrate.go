package persistence

import (
	"github.com/backoffice/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// AutoMigrate aligns the schema with the persistence models. The SQL
// migrations stay authoritative for production; this keeps development
// databases in step without running the migrate CLI.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.LedgerAccountModel{},
		&models.LedgerEntryModel{},
		&models.CashRegisterModel{},
		&models.PaymentMethodModel{},
		&models.ReceiptRecordModel{},
		&models.ExpenseRecordModel{},
	)
}
