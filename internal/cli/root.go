// Package cli implements the liaison command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/iambrandonn/liaison/internal/auditlog"
	"github.com/iambrandonn/liaison/internal/classify"
	"github.com/iambrandonn/liaison/internal/config"
	"github.com/iambrandonn/liaison/internal/decision"
	"github.com/iambrandonn/liaison/internal/gateway"
	"github.com/iambrandonn/liaison/internal/ledger"
	"github.com/iambrandonn/liaison/internal/reconcile"
	"github.com/iambrandonn/liaison/internal/store"
	"github.com/iambrandonn/liaison/internal/workspace"
)

var rootCmd = &cobra.Command{
	Use:   "liaison",
	Short: "Conversation-driven task state tracker",
	Long: `liaison tracks a delegated task's parameters and negotiation state by
ingesting the email conversation between the delegator and the delegate.
An external classifier interprets each round of the conversation; liaison
reconciles its output into durable task state without ever letting a
low-confidence guess overwrite an established value.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(followupCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to liaison.json config file (default: search up directory tree)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if v, err := cmd.Flags().GetString("log-level"); err == nil {
		switch v {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
}

// app bundles the wired components a command needs
type app struct {
	cfg     *config.Config
	cfgPath string
	dataDir string
	repo    store.Repository
	ledger  *ledger.Ledger
	engine  *reconcile.Engine
	gateway *gateway.Gateway
	audit   *auditlog.Log
	logger  *slog.Logger
}

func (a *app) close() {
	if a.audit != nil {
		a.audit.Close()
	}
	if a.repo != nil {
		a.repo.Close()
	}
}

// buildApp loads config and wires the full ingestion pipeline
func buildApp(cmd *cobra.Command, logger *slog.Logger) (*app, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dataDir := resolveDataDir(cfg, cfgPath)
	if err := workspace.Initialize(dataDir); err != nil {
		return nil, err
	}

	repo, err := openStore(cfg, dataDir)
	if err != nil {
		return nil, err
	}

	led := ledger.NewWithBounds(ledgerBounds(cfg), logger)

	timeout := classify.DefaultTimeout
	if cfg.Classifier.TimeoutS > 0 {
		timeout = time.Duration(cfg.Classifier.TimeoutS) * time.Second
	}
	adapter, err := classify.NewExecAdapter(cfg.Classifier.Cmd, timeout, logger)
	if err != nil {
		repo.Close()
		return nil, err
	}

	decisions := decision.New(logger)
	engine := reconcile.New(repo, adapter, led, decisions, logger)
	gw := gateway.New(repo, led, engine, logger)

	audit, err := auditlog.Open(filepath.Join(dataDir, "audit.ndjson"), logger)
	if err != nil {
		repo.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		cfgPath: cfgPath,
		dataDir: dataDir,
		repo:    repo,
		ledger:  led,
		engine:  engine,
		gateway: gw,
		audit:   audit,
		logger:  logger,
	}, nil
}

func ledgerBounds(cfg *config.Config) ledger.Bounds {
	b := ledger.DefaultBounds()
	if cfg.Ledger.MaxEvents > 0 {
		b.MaxEvents = cfg.Ledger.MaxEvents
	}
	if cfg.Ledger.TrimTarget > 0 {
		b.TrimTarget = cfg.Ledger.TrimTarget
	}
	if cfg.Ledger.MaxSerializedChars > 0 {
		b.MaxSerializedChars = cfg.Ledger.MaxSerializedChars
	}
	if cfg.Ledger.MaxContentChars > 0 {
		b.MaxContentChars = cfg.Ledger.MaxContentChars
	}
	return b
}

func openStore(cfg *config.Config, dataDir string) (store.Repository, error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		path := cfg.Store.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dataDir, path)
		}
		return store.NewSQLiteStore(path)
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	default:
		return store.NewFileStore(dataDir)
	}
}

// loadConfig finds the config: explicit path first, then up the directory tree
func loadConfig(configPath string) (*config.Config, string, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, configPath, nil
	}

	foundPath, err := findConfigInTree()
	if err != nil {
		return nil, "", err
	}
	if foundPath == "" {
		return nil, "", fmt.Errorf("no liaison.json found; run 'liaison init' to create one")
	}

	cfg, err := config.LoadFromFile(foundPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, foundPath, nil
}

// findConfigInTree searches up the directory tree for liaison.json
func findConfigInTree() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	for {
		configPath := filepath.Join(dir, "liaison.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// resolveDataDir resolves the data directory relative to the config file
func resolveDataDir(cfg *config.Config, configPath string) string {
	if filepath.IsAbs(cfg.DataDir) {
		return cfg.DataDir
	}
	return filepath.Join(filepath.Dir(configPath), cfg.DataDir)
}

// resolveInboxDir resolves the inbox directory relative to the data dir
func resolveInboxDir(cfg *config.Config, dataDir string) string {
	if cfg.Inbox.Dir == "" {
		return filepath.Join(dataDir, "inbox")
	}
	if filepath.IsAbs(cfg.Inbox.Dir) {
		return cfg.Inbox.Dir
	}
	return filepath.Join(dataDir, cfg.Inbox.Dir)
}
