package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/cartdesk/cartdesk/internal/config"
	"github.com/cartdesk/cartdesk/internal/db"
)

const defaultConfigPath = "cartdesk.yaml"

// connectFromConfig loads the config file and opens the database it points at,
// MySQL or SQLite depending on the configured driver.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DB.Driver {
	case "sqlite":
		return db.ConnectSQLite(cfg.DB.Path)
	case "mysql":
		return db.Connect(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Database)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}
}
