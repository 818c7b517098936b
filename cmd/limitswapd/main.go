package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"limitswap/internal/chain"
	"limitswap/internal/config"
	"limitswap/internal/domain"
	"limitswap/internal/engine"
	"limitswap/internal/feed"
	"limitswap/internal/httpapi"
	"limitswap/internal/ledger"
	"limitswap/internal/notify"
	"limitswap/internal/oracle"
	"limitswap/internal/router"
	"limitswap/internal/store"
	"limitswap/internal/util"
)

func main() {
	// Secrets come from .env in development; missing file is fine.
	_ = godotenv.Load()

	cfgPath := "config/limitswap.yaml"
	if p := os.Getenv("LIMITSWAP_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	pair := domain.Pair{Base: domain.Asset(cfg.Pair.Base), Quote: domain.Asset(cfg.Pair.Quote)}

	var st store.Store
	switch cfg.Storage.Backend {
	case "sqlite":
		st, err = store.NewSQLiteStore(cfg.Storage.SQLitePath)
	case "file":
		st, err = store.NewFileStore(cfg.Storage.OrdersPath, logger)
	default:
		log.Fatalf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		log.Fatalf("opening order store: %v", err)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := chain.Dial(ctx, cfg.Chain, logger)
	if err != nil {
		log.Fatalf("dialing chain RPC: %v", err)
	}
	defer client.Close()

	// Price sources in fallback order: on-chain quoter, chainlink feed,
	// then the off-chain market data feed when enabled.
	sources := []oracle.Source{chain.NewQuoterSource(client)}
	if cfg.Chain.ChainlinkFeedAddress != "" {
		sources = append(sources, chain.NewChainlinkSource(client))
	}
	if cfg.Feed.Enabled {
		sources = append(sources, feed.NewAlpacaSource(cfg.Feed))
	}
	prices := oracle.New(sources,
		cfg.Oracle.CacheTTL.Std(), cfg.Oracle.MaxStale.Std(), cfg.Oracle.Timeout.Std(), logger)

	routes := []router.Route{chain.NewV3Route(client), chain.NewV2Route(client)}
	exec := router.New(routes,
		cfg.Router.Slippage, cfg.Router.SwapTimeout.Std(), cfg.Router.AutoUnwrap, logger)

	ldg := ledger.New(st, chain.NewBalances(client, pair), pair)

	var inner notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		inner = notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, logger)
	}
	notifier := notify.NewAsync(inner, 64, logger)
	defer notifier.Close()

	eng := engine.New(st, prices, exec, ldg, notifier, pair, cfg.Router.Slippage, logger)

	wallets := make([]domain.Wallet, 0, len(cfg.Wallets))
	for _, w := range cfg.Wallets {
		wallets = append(wallets, domain.Wallet{Name: w.Name, Address: w.Address})
	}
	api := httpapi.NewServer(eng, st, ldg, prices, pair, wallets, cfg.Storage.PnLExportDir, logger)

	mux := http.NewServeMux()
	mux.Handle("/", api.Handler())
	mux.Handle("GET /metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: mux,
	}

	go func() {
		logger.Info("limitswapd listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	go eng.Run(ctx, cfg.Engine.TickInterval.Std())

	<-ctx.Done()
	logger.Info("shutting down limitswapd")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
