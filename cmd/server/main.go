package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/energy-market-backend/internal/api"
	"github.com/kjannette/energy-market-backend/internal/cache"
	"github.com/kjannette/energy-market-backend/internal/config"
	"github.com/kjannette/energy-market-backend/internal/db"
	"github.com/kjannette/energy-market-backend/internal/ethereum"
	"github.com/kjannette/energy-market-backend/internal/fhe"
	"github.com/kjannette/energy-market-backend/internal/metrics"
	"github.com/kjannette/energy-market-backend/internal/notifications"
	"github.com/kjannette/energy-market-backend/internal/repository"
	"github.com/kjannette/energy-market-backend/internal/risk"
	"github.com/kjannette/energy-market-backend/internal/scheduler"
	"github.com/kjannette/energy-market-backend/internal/session"
	"github.com/kjannette/energy-market-backend/internal/status"
	"github.com/kjannette/energy-market-backend/internal/wallet"
)

const banner = `
╔══════════════════════════════════════╗
║     FHE Energy Market Backend v0.1   ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Wallet
	connector := wallet.NewConnector(wallet.Options{
		PrivateKeyHex:   cfg.PrivateKey,
		KeystorePath:    cfg.KeystorePath,
		Passphrase:      cfg.KeystorePassphrase,
		RequireApproval: cfg.WalletRequireApproval,
	})

	// Chain
	client, err := ethereum.NewClient(cfg.EthereumAPIEndpoint, connector, int64(cfg.ChainID), cfg.GasLimit, cfg.GasMultiplier)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ETH] Client init failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	market, err := ethereum.NewMarket(client, cfg.ContractAddress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ETH] Market binding failed: %v\n", err)
		os.Exit(1)
	}

	relayer := fhe.NewRelayerClient(cfg.RelayerURL, cfg.RelayerAPIKey)
	m := metrics.New("energy_market")

	// Decryption cache
	var (
		decryptCache cache.DecryptCache = cache.NewMemoryCache()
		cachePing    func(context.Context) error
	)
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "[CACHE] Redis unreachable at %s: %v\n", cfg.RedisAddr, err)
			os.Exit(1)
		}
		defer rc.Close()
		decryptCache = rc
		cachePing = rc.Ping
		fmt.Printf("[CACHE] Using Redis at %s\n", cfg.RedisAddr)
	}

	deps := session.Deps{
		Reader:          market,
		Writer:          market,
		FHE:             relayer,
		Cache:           decryptCache,
		Metrics:         m,
		LoadConcurrency: cfg.LoadConcurrency,
	}

	// Database (optional)
	var (
		counter risk.DailyTradeCounter
		history api.VerificationHistory
		pool    *pgxpool.Pool
	)
	if cfg.DBEnabled {
		fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
		p, err := db.Connect(context.Background(), cfg.DSN())
		if err != nil {
			fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			p.Close()
			fmt.Println("[DB] Connection pool closed")
		}()

		if err := db.Migrate(context.Background(), p); err != nil {
			fmt.Fprintf(os.Stderr, "[DB] Migration failed: %v\n", err)
			os.Exit(1)
		}

		snapshots := repository.NewSnapshotRepo(p)
		verifications := repository.NewVerificationRepo(p)
		deps.Snapshots = snapshots
		deps.Verifications = verifications
		counter = snapshots
		history = verifications
		pool = p
	} else {
		fmt.Println("[DB] Disabled - snapshots and verification history are off")
	}

	deps.Guard = risk.NewGuardian(risk.Limits{
		MaxEnergyAmount: uint64(max(cfg.MaxEnergyAmount, 0)),
		MaxPricePerUnit: uint64(max(cfg.MaxPricePerUnit, 0)),
		MaxDailyTrades:  cfg.MaxDailyTrades,
	}, counter)

	notify := notifications.NewSender(cfg.WebhookURL, cfg.AppName)
	if notify.Enabled() {
		deps.Notifier = notify
	}

	// Status toasts and their websocket stream
	hub := status.NewHub(cfg.CORSAllowOrigin)
	board := status.NewBoard(cfg.StatusSuccessTTL, cfg.StatusErrorTTL, hub)
	hub.SetSnapshot(board.Current)
	deps.Status = board

	manager := session.NewManager(deps)
	connector.Subscribe(manager.HandleWalletEvent)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. API server
	srv := api.NewServer(api.Options{
		Port:       cfg.APIPort,
		APIKey:     cfg.APIKey,
		CORSOrigin: cfg.CORSAllowOrigin,
		Sessions:   manager,
		Wallet:     connector,
		Status:     board,
		Stream:     hub.Handler(),
		Metrics:    m,
		Pool:       pool,
		History:    history,
		CachePing:  cachePing,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Wallet
	if cfg.WalletAutoConnect {
		if _, err := connector.Connect(); err != nil {
			fmt.Fprintf(os.Stderr, "[WALLET] Auto-connect failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Println("[WALLET] Waiting for POST /v1/wallet/connect")
	}

	// 3. Periodic refresh
	refresher := scheduler.NewRefreshScheduler(manager, scheduler.RefreshSchedulerConfig{
		Interval: cfg.RefreshInterval(),
	})
	refresher.Start()

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	refresher.Stop()
	connector.Disconnect()
	manager.Close()
	board.Clear()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}
