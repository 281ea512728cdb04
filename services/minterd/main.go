package minterd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alpha-fi/cheddar-maze-minter/config"
	"github.com/alpha-fi/cheddar-maze-minter/core/events"
	"github.com/alpha-fi/cheddar-maze-minter/crypto"
	"github.com/alpha-fi/cheddar-maze-minter/observability/logging"
	telemetry "github.com/alpha-fi/cheddar-maze-minter/observability/otel"
	"github.com/alpha-fi/cheddar-maze-minter/services/minterd/executor"
	"github.com/alpha-fi/cheddar-maze-minter/services/minterd/ledger"
	"github.com/alpha-fi/cheddar-maze-minter/services/minterd/receipts"
	"github.com/alpha-fi/cheddar-maze-minter/services/minterd/server"
	"github.com/alpha-fi/cheddar-maze-minter/storage"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// PassphraseFunc resolves the gateway keystore passphrase named by envVar.
type PassphraseFunc func(envVar string) (string, error)

// Main initialises and runs the minting gateway daemon.
func Main(passphrase PassphraseFunc) error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "minterd.toml", "path to minterd configuration (toml or yaml)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup("minterd", cfg.Environment, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})

	db, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	var receiptStore *receipts.Store
	if cfg.Receipts.Driver != "" {
		receiptStore, err = receipts.Open(cfg.Receipts.Driver, cfg.Receipts.DSN)
		if err != nil {
			return fmt.Errorf("open receipts: %w", err)
		}
		defer func() { _ = receiptStore.Close() }()
	}

	signer, err := loadSigner(cfg.Ledger, passphrase, logger)
	if err != nil {
		return fmt.Errorf("load gateway key: %w", err)
	}

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:    "minterd",
		Environment:    cfg.Environment,
		Version:        Version,
		Ledger:         cfg.Genesis.Ledger,
		Gateway:        signerAddress(signer),
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricInterval: cfg.Telemetry.MetricInterval,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	client := ledger.NewRPCClient(cfg.Ledger.Endpoint, cfg.Ledger.AuthToken, signer, cfg.Ledger.Timeout)
	client.SetHTTPClient(&http.Client{
		Timeout:   cfg.Ledger.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	dispatcher := ledger.NewDispatcher(client, ledger.DispatcherOptions{
		QueueSize: cfg.Ledger.QueueSize,
		Workers:   cfg.Ledger.Workers,
		Timeout:   cfg.Ledger.Timeout,
		Logger:    logger.With("component", "ledger"),
	})

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	dispatcher.Start(context.Background())
	defer dispatcher.Close()

	hub := events.NewHub(0)
	opts := executor.Options{
		Sink:         dispatcher,
		Emitter:      hub,
		Logger:       logger.With("component", "executor"),
		MinGas:       cfg.Mint.MinGas,
		ReferralMemo: cfg.Mint.ReferralMemo,
	}
	if receiptStore != nil {
		opts.Receipts = receiptStore
	}
	exec := executor.New(db, opts)

	params, err := cfg.GenesisParams()
	if err != nil {
		return err
	}
	if _, err := exec.Bootstrap(params); err != nil {
		return fmt.Errorf("bootstrap minter: %w", err)
	}

	srvCfg := server.Config{
		Backend: exec,
		Hub:     hub,
		Auth: server.AuthConfig{
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
		},
		Limit:  server.RateLimit{RequestsPerMinute: cfg.Auth.RequestsPerMinute, Burst: cfg.Auth.Burst},
		Logger: logger.With("component", "http"),
	}
	if receiptStore != nil {
		srvCfg.Receipts = receiptStore
	}
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.New(srvCfg).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("minterd listening", "version", Version, "address", cfg.ListenAddress, "gateway", signerAddress(signer))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func openStorage(cfg config.Storage) (storage.Database, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return storage.NewMemDB(), nil
	case config.StorageLevelDB:
		return storage.NewLevelDB(cfg.Path)
	case config.StorageBolt:
		return storage.NewBoltDB(cfg.Path, nil)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// loadSigner unlocks the gateway key, creating it on first start. Without a
// ledger endpoint the daemon runs unsigned and only logs dispatch failures.
func loadSigner(cfg config.Ledger, passphrase PassphraseFunc, logger *slog.Logger) (*crypto.PrivateKey, error) {
	if cfg.Endpoint == "" {
		logger.Warn("ledger endpoint not configured; mint calls will fail to dispatch")
		return nil, nil
	}
	if passphrase == nil {
		return nil, errors.New("keystore passphrase source not configured")
	}
	pass, err := passphrase(cfg.PassphraseEnv)
	if err != nil {
		return nil, err
	}
	key, created, err := crypto.LoadOrCreateKeystore(cfg.KeystorePath, pass)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("generated gateway key", "keystore", cfg.KeystorePath, "address", key.PubKey().Address().String())
	}
	logger.Info("ledger signer ready",
		"endpoint", cfg.Endpoint,
		"address", key.PubKey().Address().String(),
		logging.MaskField("auth_token", cfg.AuthToken))
	return key, nil
}

func signerAddress(key *crypto.PrivateKey) string {
	if key == nil {
		return ""
	}
	return key.PubKey().Address().String()
}
