package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/veriport/veriport/internal/adapter"
	"github.com/veriport/veriport/internal/adapter/deepvue"
	"github.com/veriport/veriport/internal/adapter/leakosint"
	"github.com/veriport/veriport/internal/adapter/loopback"
	"github.com/veriport/veriport/internal/adapter/planapi"
	"github.com/veriport/veriport/internal/adapter/signzy"
	"github.com/veriport/veriport/internal/auth"
	"github.com/veriport/veriport/internal/config"
	"github.com/veriport/veriport/internal/directory"
	dirpostgres "github.com/veriport/veriport/internal/directory/postgres"
	dirsqlite "github.com/veriport/veriport/internal/directory/sqlite"
	"github.com/veriport/veriport/internal/entitlement"
	"github.com/veriport/veriport/internal/health"
	"github.com/veriport/veriport/internal/httpserver"
	"github.com/veriport/veriport/internal/ledger"
	ledpostgres "github.com/veriport/veriport/internal/ledger/postgres"
	ledsqlite "github.com/veriport/veriport/internal/ledger/sqlite"
	"github.com/veriport/veriport/internal/logging"
	"github.com/veriport/veriport/internal/lookup"
	"github.com/veriport/veriport/internal/metrics"
	"github.com/veriport/veriport/internal/ratelimit"
	"github.com/veriport/veriport/internal/seed"
	"github.com/veriport/veriport/internal/version"
)

func main() {
	cfg, err := config.LoadPortalConfig(".")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	logTarget := strings.TrimSpace(cfg.LogFileDaemon)
	if logTarget == "" {
		logTarget = strings.TrimSpace(cfg.LogFile)
	}
	if logTarget != "" {
		rot, err := logging.NewRotatingWriter(logTarget, logging.DefaultMaxBytes)
		if err != nil {
			log.Fatalf("init rotating log: %v", err)
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rot))
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		log.SetPrefix("[portald] ")
		defer rot.Close()
	}

	log.Printf("veriport portald %s", version.FullInfo())

	ctx := context.Background()

	dirStore, err := openDirectoryStore(cfg.DirectoryPath)
	if err != nil {
		log.Fatalf("open directory store: %v", err)
	}
	defer dirStore.Close()

	ledgerStore, err := openLedgerStore(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("open ledger store: %v", err)
	}
	defer ledgerStore.Close()

	adminHash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("hash admin password: %v", err)
	}
	rootAdmin, err := dirStore.EnsureRootAdmin(ctx, cfg.AdminEmail, adminHash)
	if err != nil {
		log.Fatalf("ensure root admin: %v", err)
	}
	log.Printf("root admin ready id=%d email=%s", rootAdmin.ID, rootAdmin.Email)

	if path := strings.TrimSpace(cfg.CapabilitiesFile); path != "" {
		seedFile, err := seed.Load(path)
		if err != nil {
			log.Fatalf("load capabilities file %s: %v", path, err)
		}
		if err := seed.Apply(ctx, dirStore, seedFile, log.Default()); err != nil {
			log.Fatalf("apply capabilities file: %v", err)
		}
	}

	var authManager *auth.Manager
	if !cfg.AuthDisabled {
		authManager = auth.NewManager(cfg.AuthSecret, cfg.SessionTTL)
	} else {
		log.Printf("authorization disabled: every request acts as the root admin")
	}

	registry := buildRegistry(cfg)
	log.Printf("vendor adapters registered: %v", registry.Names())

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Store:            ratelimit.NewMemoryStore(),
		LookupsPerMinute: cfg.LookupsPerMinute,
		Burst:            cfg.LookupBurst,
	})
	defer limiter.Close()

	checker := health.NewChecker(2 * time.Second)
	if p, ok := dirStore.(health.Pinger); ok {
		checker.Register("directory", p)
	}
	if p, ok := ledgerStore.(health.Pinger); ok {
		checker.Register("ledger", p)
	}

	collector := metrics.NewCollector()
	lookupSvc := lookup.NewService(lookup.Params{
		Resolver:      entitlement.NewResolver(dirStore),
		Credits:       dirStore,
		Ledger:        ledgerStore,
		Adapters:      registry,
		Limiter:       limiter,
		Metrics:       collector,
		Logger:        log.New(log.Writer(), "[portald/lookup] ", log.LstdFlags|log.Lmicroseconds),
		VendorTimeout: cfg.VendorTimeout,
	})

	httpSrv := httpserver.New(httpserver.Params{
		Directory:    dirStore,
		Ledger:       ledgerStore,
		Auth:         authManager,
		Lookups:      lookupSvc,
		Metrics:      collector,
		Health:       checker,
		Logger:       log.New(log.Writer(), "[portald/http] ", log.LstdFlags|log.Lmicroseconds),
		AuthDisabled: cfg.AuthDisabled,
		SessionTTL:   cfg.SessionTTL,
		CORSOrigins:  cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddress,
		Handler:      httpSrv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("portal server listening on %s (env %s)", cfg.HTTPAddress, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	<-sigs

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func openDirectoryStore(path string) (directory.Store, error) {
	if config.IsPostgresDSN(path) {
		return dirpostgres.New(path)
	}
	return dirsqlite.New(path)
}

func openLedgerStore(path string) (ledger.Store, error) {
	if config.IsPostgresDSN(path) {
		return ledpostgres.New(path)
	}
	return ledsqlite.New(path)
}

func buildRegistry(cfg config.PortalConfig) *adapter.Registry {
	registry := adapter.NewRegistry()
	registry.Register(signzy.New(signzy.Config{
		BaseURL:        cfg.SignzyBaseURL,
		RequestTimeout: cfg.VendorTimeout,
	}))
	registry.Register(planapi.New(planapi.Config{
		BaseURL:        cfg.PlanAPIBaseURL,
		RequestTimeout: cfg.VendorTimeout,
	}))
	registry.Register(deepvue.New(deepvue.Config{
		BaseURL:        cfg.DeepvueBaseURL,
		RequestTimeout: cfg.VendorTimeout,
	}))
	registry.Register(leakosint.New(leakosint.Config{
		BaseURL:        cfg.LeakOSINTBaseURL,
		RequestTimeout: cfg.VendorTimeout,
	}))
	// Loopback serves development and smoke tests; capabilities opt in by
	// naming it as their adapter.
	registry.Register(loopback.New())
	return registry
}
