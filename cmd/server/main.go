package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tetondan64/recordergear/backend/internal/config"
	"github.com/tetondan64/recordergear/backend/internal/db"
	"github.com/tetondan64/recordergear/backend/internal/logging"
	"github.com/tetondan64/recordergear/backend/internal/server"
	"github.com/tetondan64/recordergear/backend/internal/syncfeed"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// defaultPaths resolves the base directory and config file location.
// RECORDERGEAR_HOME overrides the per-user default.
func defaultPaths() (baseDir, cfgPath string, err error) {
	baseDir = os.Getenv("RECORDERGEAR_HOME")
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", fmt.Errorf("getting home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".recordergear")
	}
	return baseDir, filepath.Join(baseDir, "config.toml"), nil
}

// loadConfig reads the config file, falling back to defaults when none exists.
func loadConfig() (*config.Config, error) {
	baseDir, cfgPath, err := defaultPaths()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		cfgPath = configPath
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.NewConfig(baseDir)
		return cfg, cfg.Validate()
	}

	cfg, err := config.ReadFromFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "recordergear-server",
	Short: "RecorderGear sync backend",
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP sync server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logging.Init(os.Stderr, cfg.Log.Level)

		database, err := db.Open(cfg.Database.DataDir)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		if err := db.MigrateUp(database.DB); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		engine := syncfeed.NewEngine(database.DB)
		srv := server.New(cfg, engine)

		httpSrv := &http.Server{
			Addr:         cfg.Server.Listen,
			Handler:      srv.Handler(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logging.Info("server listening", logging.Fields{"addr": cfg.Server.Listen})
			errCh <- httpSrv.ListenAndServe()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logging.Info("shutting down", logging.Fields{"signal": sig.String()})
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		}
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := db.Open(cfg.Database.DataDir)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		if err := db.MigrateUp(database.DB); err != nil {
			return err
		}

		version, _, err := db.MigrationVersion(database.DB)
		if err != nil {
			return err
		}
		fmt.Printf("Schema at version %d\n", version)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := db.Open(cfg.Database.DataDir)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		if err := db.MigrateDown(database.DB); err != nil {
			return err
		}
		fmt.Println("Rolled back one migration")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := db.Open(cfg.Database.DataDir)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		version, dirty, err := db.MigrationVersion(database.DB)
		if err != nil {
			return err
		}
		if version == 0 {
			fmt.Println("No migrations applied")
			return nil
		}
		fmt.Printf("Version: %d\n", version)
		if dirty {
			fmt.Println("State:   dirty (last migration failed)")
		} else {
			fmt.Println("State:   clean")
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir, cfgPath, err := defaultPaths()
		if err != nil {
			return err
		}
		if configPath != "" {
			cfgPath = configPath
		}

		cfg := config.NewConfig(baseDir)
		if err := config.Init(cfgPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", cfgPath)
		fmt.Printf("Listen:   %s\n", cfg.Server.Listen)
		fmt.Printf("Data Dir: %s\n", cfg.Database.DataDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Listen:    %s\n", cfg.Server.Listen)
		fmt.Printf("Data Dir:  %s\n", cfg.Database.DataDir)
		fmt.Printf("Log Level: %s\n", cfg.Log.Level)
		fmt.Printf("Page Size: %d\n", cfg.Sync.DefaultPageSize)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
}
