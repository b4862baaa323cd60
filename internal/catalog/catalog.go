// Package catalog provides lookups over the seeded branch and cartridge
// reference data.
package catalog

import (
	"errors"
	"fmt"

	"github.com/cartdesk/cartdesk/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a branch or cartridge type lookup matches
// nothing active.
var ErrNotFound = errors.New("catalog: not found")

// Catalog reads branches and cartridge types. Rows are seeded from
// configuration at startup and change rarely, so every call goes straight to
// the database.
type Catalog struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Branches returns all active branches ordered by code.
func (c *Catalog) Branches() ([]models.Branch, error) {
	var branches []models.Branch
	if err := c.db.Where("is_active = ?", true).Order("code ASC").Find(&branches).Error; err != nil {
		return nil, fmt.Errorf("catalog: list branches: %w", err)
	}
	return branches, nil
}

// CartridgeTypes returns all cartridge types ordered by SKU.
func (c *Catalog) CartridgeTypes() ([]models.CartridgeType, error) {
	var types []models.CartridgeType
	if err := c.db.Order("sku ASC").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("catalog: list cartridge types: %w", err)
	}
	return types, nil
}

// BranchByID returns one active branch.
func (c *Catalog) BranchByID(id uint) (*models.Branch, error) {
	var branch models.Branch
	err := c.db.Where("id = ? AND is_active = ?", id, true).First(&branch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: branch %d: %w", id, err)
	}
	return &branch, nil
}

// BranchByCode returns one active branch looked up by its short code.
func (c *Catalog) BranchByCode(code string) (*models.Branch, error) {
	var branch models.Branch
	err := c.db.Where("code = ? AND is_active = ?", code, true).First(&branch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: branch %q: %w", code, err)
	}
	return &branch, nil
}

// CartridgeTypeByID returns one cartridge type.
func (c *Catalog) CartridgeTypeByID(id uint) (*models.CartridgeType, error) {
	var ct models.CartridgeType
	err := c.db.Where("id = ?", id).First(&ct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: cartridge type %d: %w", id, err)
	}
	return &ct, nil
}

// CartridgeTypeBySKU returns one cartridge type looked up by SKU.
func (c *Catalog) CartridgeTypeBySKU(sku string) (*models.CartridgeType, error) {
	var ct models.CartridgeType
	err := c.db.Where("sku = ?", sku).First(&ct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: cartridge type %q: %w", sku, err)
	}
	return &ct, nil
}
