package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cartdesk/cartdesk/internal/config"
	"github.com/cartdesk/cartdesk/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the CartDesk database",
		Long:  "Creates the database if needed, migrates all tables and seeds branches and cartridge types from the config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CartDesk config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config from %s (driver: %s)\n", configPath, cfg.DB.Driver)

	// MySQL needs the database created first; SQLite creates its file on open.
	if cfg.DB.Driver == "mysql" {
		adminDB, err := db.ConnectAdmin(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password)
		if err != nil {
			return fmt.Errorf("connect to MySQL at %s:%d: %w", cfg.DB.Host, cfg.DB.Port, err)
		}
		if err := db.CreateDatabase(adminDB, cfg.DB.Database); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", cfg.DB.Database)
	}

	gormDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedBranches(gormDB, cfg.Catalog.Branches); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d branches:", len(cfg.Catalog.Branches))
	for _, b := range cfg.Catalog.Branches {
		fmt.Fprintf(out, " %s", b.Code)
	}
	fmt.Fprintln(out)

	if err := db.SeedCartridgeTypes(gormDB, cfg.Catalog.Cartridges); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d cartridge types\n", len(cfg.Catalog.Cartridges))

	fmt.Fprintln(out, "\nCartDesk database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the CartDesk database",
		Long: `Drops the CartDesk database (or deletes the SQLite file), then
re-creates it: migrate plus seed from the config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CartDesk config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	target := cfg.DB.Database
	if cfg.DB.Driver == "sqlite" {
		target = cfg.DB.Path
	}

	if !skipConfirm && !confirmReset(cmd, target) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	switch cfg.DB.Driver {
	case "sqlite":
		if err := os.Remove(cfg.DB.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", cfg.DB.Path, err)
		}
		fmt.Fprintf(out, "Removed %s\n", cfg.DB.Path)
	case "mysql":
		adminDB, err := db.ConnectAdmin(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password)
		if err != nil {
			return fmt.Errorf("connect to MySQL at %s:%d: %w", cfg.DB.Host, cfg.DB.Port, err)
		}
		if err := db.DropDatabase(adminDB, cfg.DB.Database); err != nil {
			return err
		}
		fmt.Fprintf(out, "Dropped database %s\n", cfg.DB.Database)
	default:
		return fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}

	if err := runDBInit(cmd, configPath); err != nil {
		return err
	}
	fmt.Fprintln(out, "Database reset complete.")
	return nil
}

func confirmReset(cmd *cobra.Command, target string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintf(out, "WARNING: This will permanently delete all data in %q.\n", target)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
