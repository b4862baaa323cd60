package db

import (
	"fmt"

	"github.com/cartdesk/cartdesk/internal/config"
	"github.com/cartdesk/cartdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Branch{},
		&models.CartridgeType{},
		&models.Request{},
		&models.RequestItem{},
		&models.LogEntry{},
	}
}

// AutoMigrate creates or updates all CartDesk tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedBranches upserts Branch rows from configuration, keyed by code.
func SeedBranches(db *gorm.DB, branches []config.BranchConfig) error {
	for _, bc := range branches {
		branch := models.Branch{
			Code:     bc.Code,
			Name:     bc.Name,
			IsActive: true,
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "is_active"}),
		}).Create(&branch).Error
		if err != nil {
			return fmt.Errorf("db: seed branch %q: %w", bc.Code, err)
		}
	}
	return nil
}

// SeedCartridgeTypes upserts CartridgeType rows from configuration, keyed by SKU.
func SeedCartridgeTypes(db *gorm.DB, cartridges []config.CartridgeConfig) error {
	for _, cc := range cartridges {
		ct := models.CartridgeType{
			SKU:  cc.SKU,
			Name: cc.Name,
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).Create(&ct).Error
		if err != nil {
			return fmt.Errorf("db: seed cartridge type %q: %w", cc.SKU, err)
		}
	}
	return nil
}
