package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/equitx-labs/xasset/internal/api"
	"github.com/equitx-labs/xasset/internal/archive"
	"github.com/equitx-labs/xasset/internal/cdp"
	"github.com/equitx-labs/xasset/internal/config"
	"github.com/equitx-labs/xasset/internal/events"
	"github.com/equitx-labs/xasset/internal/liquidation"
	"github.com/equitx-labs/xasset/internal/oracle"
	"github.com/equitx-labs/xasset/internal/stabilitypool"
	"github.com/equitx-labs/xasset/internal/store"
	"github.com/equitx-labs/xasset/internal/token"
	"github.com/equitx-labs/xasset/observability/logging"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("XASSET_ENV"))
	logger := logging.Setup("xassetd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := config.Validate(*cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger = logger.With("pool_id", cfg.Addresses.Pool)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	db, err := store.Open(filepath.Join(cfg.DataDir, "xasset.db"), nil)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	admin, err := db.Admin()
	if err != nil {
		log.Fatalf("load admin state: %v", err)
	}
	if _, _, pool := admin.Addresses(); pool == "" {
		if err := admin.SetAddresses(cfg.Addresses.Protocol, cfg.Addresses.Treasury, cfg.Addresses.Pool); err != nil {
			log.Fatalf("seed admin addresses: %v", err)
		}
	}
	if err := admin.SetMinCollatRatioBps(cfg.Risk.MinCollatRatioBps); err != nil {
		log.Fatalf("seed min collat ratio: %v", err)
	}
	for module, paused := range map[string]bool{
		"cdp":           cfg.Pauses.CDP,
		"stabilitypool": cfg.Pauses.StabilityPool,
		"liquidation":   cfg.Pauses.Liquidation,
		"token":         cfg.Pauses.Token,
	} {
		if err := admin.SetPaused(module, paused); err != nil {
			log.Fatalf("seed pause state for %s: %v", module, err)
		}
	}

	bus := events.NewBus()

	synthetic := token.NewLedger(db.AccountStore())
	collateral := token.NewLedger(db.CollateralAccountStore())

	priceOracle := oracle.NewMemoryOracle(14)
	priceView := oracle.NewPriceView(priceOracle, cfg.Oracle.CollateralSymbol, cfg.Oracle.PeggedSymbol)

	params := cdp.Params{
		PeggedSymbol:          cfg.Oracle.PeggedSymbol,
		CollateralSymbol:      cfg.Oracle.CollateralSymbol,
		MinCollatRatioBps:     cfg.Risk.MinCollatRatioBps,
		AnnualInterestRateBps: cfg.Risk.AnnualInterestBps,
		Decimals:              7,
		Name:                  "xasset USD",
		Symbol:                "xUSD",
	}
	cdpEngine := cdp.NewEngine(params, priceView, synthetic, collateral, cfg.Addresses.Protocol, cfg.Addresses.Treasury)
	cdpEngine.SetState(db.CDPStore())
	cdpEngine.SetPauses(admin)
	cdpEngine.SetEvents(bus)
	cdpEngine.SetLogger(logger)

	pool := stabilitypool.NewPool(synthetic, collateral, cfg.Addresses.Pool)
	pool.SetState(db.PoolStore())
	pool.SetPauses(admin)
	pool.SetEvents(bus)
	pool.SetLogger(logger)

	coordinator := liquidation.NewCoordinator(cdpEngine, pool, priceView)
	coordinator.SetState(db.LiquidationStore())
	coordinator.SetEvents(bus)
	coordinator.SetLogger(logger)

	adminAuth := api.AdminAuth(api.AdminAuthConfig{
		Enabled:    strings.TrimSpace(os.Getenv("XASSET_ADMIN_JWT_SECRET")) != "",
		HMACSecret: os.Getenv("XASSET_ADMIN_JWT_SECRET"),
		Issuer:     "xassetd",
	})
	rateLimiter := api.NewRateLimiter(2, 5)

	server := api.New(cdpEngine, pool, coordinator, synthetic, adminAuth, rateLimiter)
	server.SetLogger(logger)

	mux := http.NewServeMux()
	mux.Handle("/", server.Router())
	mux.Handle("/events", bus.Handler())

	httpServer := &http.Server{
		Addr:         cfg.RPCAddress,
		Handler:      otelhttp.NewHandler(mux, "xassetd"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Archive.OutputDir, 0o700); err != nil {
		log.Fatalf("create archive dir: %v", err)
	}
	archiveDone := runArchiveExporter(stopCtx, logger, coordinator, cfg.Archive)

	errs := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("xassetd listening on %s", cfg.RPCAddress))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}
	<-archiveDone
}

// runArchiveExporter starts a goroutine that periodically dumps the entire
// liquidation log to a timestamped Parquet file under cfg.OutputDir, the
// cold-storage trail an operator replays if the bbolt log is ever rotated
// out. It stops when ctx is cancelled and returns a channel closed once the
// goroutine has exited, so main can wait for the final export attempt.
func runArchiveExporter(ctx context.Context, logger *slog.Logger, coordinator *liquidation.Coordinator, cfg config.Archive) <-chan struct{} {
	done := make(chan struct{})
	interval := time.Duration(cfg.IntervalSeconds) * time.Second

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				exportLiquidations(logger, coordinator, cfg.OutputDir)
			case <-ctx.Done():
				return
			}
		}
	}()

	return done
}

func exportLiquidations(logger *slog.Logger, coordinator *liquidation.Coordinator, outputDir string) {
	records, err := coordinator.ListAll()
	if err != nil {
		logger.Error("archive: list liquidations failed", "error", err.Error())
		return
	}
	if len(records) == 0 {
		return
	}
	path := filepath.Join(outputDir, fmt.Sprintf("liquidations-%d.parquet", time.Now().Unix()))
	if err := archive.WriteLiquidations(path, records); err != nil {
		logger.Error("archive: export failed", "path", path, "error", err.Error())
		return
	}
	logger.Info("archive: exported liquidations", "path", path, "count", len(records))
}
