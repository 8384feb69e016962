package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/authocard/internal/dashboard"
	"github.com/MarkoPoloResearchLab/authocard/internal/notify"
	"github.com/MarkoPoloResearchLab/authocard/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/authocard/internal/wallet"
	"github.com/MarkoPoloResearchLab/authocard/pkg/cardledger"
)

const (
	flagDatabaseURL        = "database-url"
	flagListenAddr         = "listen-addr"
	flagAllowedOrigins     = "allowed-origins"
	flagRPCUpstream        = "rpc-upstream"
	flagResendAPIKey       = "resend-api-key"
	flagResendFrom         = "resend-from"
	flagFraudCheckInterval = "fraud-check-interval"
	flagHoldSweepInterval  = "hold-sweep-interval"

	configKeyDatabaseURL        = "database_url"
	configKeyListenAddr         = "listen_addr"
	configKeyAllowedOrigins     = "allowed_origins"
	configKeyRPCUpstream        = "rpc_upstream"
	configKeyResendAPIKey       = "resend_api_key"
	configKeyResendFrom         = "resend_from"
	configKeyFraudCheckInterval = "fraud_check_interval"
	configKeyHoldSweepInterval  = "hold_sweep_interval"

	defaultDatabaseURL    = "sqlite:///tmp/authocard.db"
	defaultHTTPListenAddr = ":9090"
	defaultOrigins        = "http://localhost:8000"
	defaultResendFrom     = "Orbi Pay <cards@orbipay.dev>"
)

type runtimeConfig struct {
	DatabaseURL        string
	ListenAddr         string
	AllowedOrigins     string
	RPCUpstream        string
	ResendAPIKey       string
	ResendFrom         string
	FraudCheckInterval time.Duration
	HoldSweepInterval  time.Duration
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "carddash: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "carddash",
		Short:         "Virtual card dashboard API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "Database connection string (sqlite:// or postgres://)")
	cmd.Flags().String(flagListenAddr, defaultHTTPListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, defaultOrigins, "Comma-separated CORS origins")
	cmd.Flags().String(flagRPCUpstream, "", "Solana RPC upstream URL, or a bare provider API key")
	cmd.Flags().String(flagResendAPIKey, "", "Resend API key; email notifications are disabled when empty")
	cmd.Flags().String(flagResendFrom, defaultResendFrom, "Sender address for card emails")
	cmd.Flags().Duration(flagFraudCheckInterval, 30*time.Second, "Interval between background fraud sweeps")
	cmd.Flags().Duration(flagHoldSweepInterval, 60*time.Second, "Interval between expired hold sweeps")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvPrefix("CARDDASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		configKeyDatabaseURL:        flagDatabaseURL,
		configKeyListenAddr:         flagListenAddr,
		configKeyAllowedOrigins:     flagAllowedOrigins,
		configKeyRPCUpstream:        flagRPCUpstream,
		configKeyResendAPIKey:       flagResendAPIKey,
		configKeyResendFrom:         flagResendFrom,
		configKeyFraudCheckInterval: flagFraudCheckInterval,
		configKeyHoldSweepInterval:  flagHoldSweepInterval,
	}
	for configKey, flagName := range bindings {
		if err := viper.BindEnv(configKey); err != nil {
			return err
		}
		if err := viper.BindPFlag(configKey, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	cfg.AllowedOrigins = viper.GetString(configKeyAllowedOrigins)
	cfg.RPCUpstream = viper.GetString(configKeyRPCUpstream)
	cfg.ResendAPIKey = viper.GetString(configKeyResendAPIKey)
	cfg.ResendFrom = viper.GetString(configKeyResendFrom)
	cfg.FraudCheckInterval = viper.GetDuration(configKeyFraudCheckInterval)
	cfg.HoldSweepInterval = viper.GetDuration(configKeyHoldSweepInterval)

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database url is required")
	}
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen addr is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	if err := gormDB.AutoMigrate(&gormstore.SnapshotRecord{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	store := gormstore.New(gormDB)
	clock := func() int64 { return time.Now().UTC().Unix() }
	service, err := cardledger.NewService(store, clock,
		cardledger.WithOperationLogger(dashboard.ZapOperationLogger{Logger: logger}),
	)
	if err != nil {
		return fmt.Errorf("card ledger init: %w", err)
	}
	if err := service.Restore(ctx); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.ResendAPIKey != "" {
		notifier = notify.NewResendClient(cfg.ResendAPIKey, cfg.ResendFrom)
	}

	serverConfig := dashboard.Config{
		ListenAddr:         cfg.ListenAddr,
		AllowedOrigins:     dashboard.ParseAllowedOrigins(cfg.AllowedOrigins),
		RPCUpstream:        cfg.RPCUpstream,
		FraudCheckInterval: cfg.FraudCheckInterval,
		HoldSweepInterval:  cfg.HoldSweepInterval,
	}
	return dashboard.Run(ctx, serverConfig, service, wallet.NewSimWallet(), notifier)
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, err
	}

	var db *gorm.DB
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "authocard.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}
