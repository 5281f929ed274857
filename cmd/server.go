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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"nftmarket/pkg/accounts"
	"nftmarket/pkg/bank"
	"nftmarket/pkg/config"
	"nftmarket/pkg/db"
	"nftmarket/pkg/events"
	"nftmarket/pkg/ledger"
	"nftmarket/pkg/market"
	"nftmarket/pkg/registry"
	"nftmarket/pkg/sendemail"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

// app is the wired service graph behind the router.
type app struct {
	router      *gin.Engine
	marketplace *ledger.Marketplace
	hub         *events.Hub
	close       func()
}

func serve(c *cli.Context) error {
	cfg := config.Get()
	if err := cfg.TLS.Validate(cfg.Env); err != nil {
		return fmt.Errorf("TLS settings invalid: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	port := cfg.ServerPort
	if port == "" {
		port = "8080"
		if cfg.TLS.Enable {
			port = "8443"
		}
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("Listening", zap.String("addr", srv.Addr), zap.Bool("tls", cfg.TLS.Enable))
		errCh <- listen(srv, cfg)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	zap.L().Info("Server exiting")
	return nil
}

func listen(srv *http.Server, cfg *config.Config) error {
	if !cfg.TLS.Enable {
		return srv.ListenAndServe()
	}

	tlsConfig, certFile, keyFile, err := buildTLSConfig(cfg.TLS, cfg.Env)
	if err != nil {
		return fmt.Errorf("TLS setup: %w", err)
	}
	srv.TLSConfig = tlsConfig
	return srv.ListenAndServeTLS(certFile, keyFile)
}

// build wires stores, collaborators, the marketplace and the HTTP router.
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{close: func() {}}

	var (
		store       ledger.Store
		accountRepo accounts.AccountRepository
		funds       bank.Store
		directory   registry.Store
	)
	switch cfg.LedgerStore {
	case storePostgres:
		pool, err := db.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.close = pool.Close
		store = ledger.NewPostgresStore(pool)
		accountRepo = accounts.NewPostgresAccountRepository(pool)
		funds = bank.NewPostgresBank(pool)
		directory = registry.NewPostgresDirectory(pool)
	case storeMemory:
		zap.L().Warn("Using in-memory ledger store; state is lost on exit")
		store = ledger.NewMemoryStore()
		accountRepo = accounts.NewMemoryAccountRepository()
		funds = bank.NewBank()
		directory = registry.NewDirectory()
	default:
		return nil, fmt.Errorf("unknown LEDGER_STORE %q", cfg.LedgerStore)
	}

	accountService := accounts.NewAccountService(accountRepo)
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		a.close()
		return nil, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}
	admin, err := accountService.EnsureAccount(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password, accounts.RoleAdmin)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("ensure admin account: %w", err)
	}

	a.hub = events.NewHub(cfg.EventHistorySize)
	if cfg.SendGrid.APIKey != "" && cfg.SendGrid.AlertEmail != "" {
		alerter := sendemail.NewAlerter(sendemail.NewEmailService(cfg.SendGrid), cfg.SendGrid.AlertEmail)
		a.hub.Subscribe(alerter)
		go alerter.Run(ctx)
	}

	a.marketplace, err = ledger.NewMarketplace(ctx, ledger.Config{
		Address:       ledger.Address(cfg.MarketAddress),
		Administrator: admin.Address,
		ListingFee:    cfg.ListingFee,
	}, store, directory, funds, a.hub)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("start marketplace: %w", err)
	}
	zap.L().Info("Marketplace ready",
		zap.String("address", cfg.MarketAddress),
		zap.String("administrator", string(admin.Address)),
		zap.String("store", cfg.LedgerStore))

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.AllowCreds,
		MaxAge:           12 * time.Hour,
	}))

	auth := accounts.BasicAuth(accountService)
	accounts.NewAccountHandler(accountService).RegisterRoutes(router, auth)
	market.NewMarketHandler(a.marketplace).RegisterRoutes(router, auth)
	bank.NewBankHandler(funds, cfg.EnableFaucet).RegisterRoutes(router, auth)
	registry.NewRegistryHandler(directory).RegisterRoutes(router, auth)
	events.NewHandler(a.hub).RegisterRoutes(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return a, nil
}
