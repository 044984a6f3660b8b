package repository

import (
	"fmt"

	"github.com/amirphl/estatedesk/models"
	"gorm.io/gorm"
)

// AllModels lists every persisted model in dependency order
func AllModels() []any {
	return []any{
		&models.SequenceCounter{},
		&models.Admin{},
		&models.Landlord{},
		&models.Agent{},
		&models.Property{},
		&models.Tenant{},
		&models.Account{},
		&models.Income{},
		&models.Expense{},
		&models.EmailLog{},
	}
}

// AutoMigrate creates or updates the schema for all models
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
