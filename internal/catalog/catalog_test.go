package catalog

import (
	"errors"
	"testing"

	"github.com/cartdesk/cartdesk/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Branch{}, &models.CartridgeType{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	branches := []models.Branch{
		{Code: "WH1", Name: "Warehouse One", IsActive: true},
		{Code: "HQ", Name: "Headquarters", IsActive: true},
		{Code: "OLD", Name: "Closed Office", IsActive: false},
	}
	if err := db.Create(&branches).Error; err != nil {
		t.Fatalf("seed branches: %v", err)
	}
	types := []models.CartridgeType{
		{SKU: "HP-26A", Name: "HP 26A Black"},
		{SKU: "CAN-046", Name: "Canon 046 Cyan"},
	}
	if err := db.Create(&types).Error; err != nil {
		t.Fatalf("seed cartridge types: %v", err)
	}
}

func TestBranches_ActiveOnlySorted(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	c := New(db)

	branches, err := c.Branches()
	if err != nil {
		t.Fatalf("Branches() error: %v", err)
	}
	if len(branches) != 2 {
		t.Fatalf("len(branches) = %d, want 2", len(branches))
	}
	if branches[0].Code != "HQ" || branches[1].Code != "WH1" {
		t.Errorf("branch order = [%s %s], want [HQ WH1]", branches[0].Code, branches[1].Code)
	}
}

func TestCartridgeTypes_Sorted(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	c := New(db)

	types, err := c.CartridgeTypes()
	if err != nil {
		t.Fatalf("CartridgeTypes() error: %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("len(types) = %d, want 2", len(types))
	}
	if types[0].SKU != "CAN-046" {
		t.Errorf("types[0].SKU = %q, want %q", types[0].SKU, "CAN-046")
	}
}

func TestBranchByCode(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	c := New(db)

	branch, err := c.BranchByCode("HQ")
	if err != nil {
		t.Fatalf("BranchByCode() error: %v", err)
	}
	if branch.Name != "Headquarters" {
		t.Errorf("Name = %q, want %q", branch.Name, "Headquarters")
	}

	// Inactive branches are invisible.
	if _, err := c.BranchByCode("OLD"); !errors.Is(err, ErrNotFound) {
		t.Errorf("BranchByCode(OLD) error = %v, want ErrNotFound", err)
	}
	if _, err := c.BranchByCode("NOPE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("BranchByCode(NOPE) error = %v, want ErrNotFound", err)
	}

	byID, err := c.BranchByID(branch.ID)
	if err != nil {
		t.Fatalf("BranchByID() error: %v", err)
	}
	if byID.Code != "HQ" {
		t.Errorf("BranchByID().Code = %q, want %q", byID.Code, "HQ")
	}
}

func TestCartridgeTypeBySKU(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	c := New(db)

	ct, err := c.CartridgeTypeBySKU("HP-26A")
	if err != nil {
		t.Fatalf("CartridgeTypeBySKU() error: %v", err)
	}
	if ct.Name != "HP 26A Black" {
		t.Errorf("Name = %q, want %q", ct.Name, "HP 26A Black")
	}

	if _, err := c.CartridgeTypeBySKU("NOPE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CartridgeTypeBySKU(NOPE) error = %v, want ErrNotFound", err)
	}

	byID, err := c.CartridgeTypeByID(ct.ID)
	if err != nil {
		t.Fatalf("CartridgeTypeByID() error: %v", err)
	}
	if byID.SKU != "HP-26A" {
		t.Errorf("CartridgeTypeByID().SKU = %q, want %q", byID.SKU, "HP-26A")
	}
}
