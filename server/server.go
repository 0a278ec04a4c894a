package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/artdesignbySF/MadameSatoshi/config"
	"github.com/artdesignbySF/MadameSatoshi/middleware"
	"github.com/artdesignbySF/MadameSatoshi/pkg/fortune"
	"github.com/artdesignbySF/MadameSatoshi/pkg/jackpot"
	"github.com/artdesignbySF/MadameSatoshi/pkg/ledger"
	"github.com/artdesignbySF/MadameSatoshi/pkg/providers"
)

// App wires the fortune game service together: ledger, jackpot pool,
// draw engine, wallet provider and the HTTP surface.
type App struct {
	engine          *gin.Engine
	config          *config.Config
	logger          zerolog.Logger
	httpServer      *http.Server
	onShutdown      []func()
	ledgerService   *ledger.Service
	jackpotService  *jackpot.Service
	playService     *PlayService
	withdrawService *WithdrawService
	playHandler     *PlayHandler
	withdrawHandler *WithdrawHandler
	jackpotHandler  *JackpotHandler
	store           providers.LedgerStore
	wallet          providers.Wallet
	events          providers.EventLog
}

// Options holds server construction options.
type Options struct {
	Config *config.Config
	Logger zerolog.Logger
}

// New creates the application shell. Providers are injected with the
// setters before Bootstrap builds the services and routes.
func New(opts Options) *App {
	if opts.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &App{
		engine: gin.New(),
		config: opts.Config,
		logger: opts.Logger,
	}
}

// SetLedgerStore sets the persistence backing balances and flags.
func (a *App) SetLedgerStore(store providers.LedgerStore) {
	a.store = store
}

// SetWallet sets the Lightning payment provider.
func (a *App) SetWallet(wallet providers.Wallet) {
	a.wallet = wallet
}

// SetEventLog sets the audit event publisher. Optional.
func (a *App) SetEventLog(events providers.EventLog) {
	a.events = events
}

// UseCommonMiddlewares adds the standard middleware chain.
func (a *App) UseCommonMiddlewares() {
	// Recovery middleware (must be first)
	a.engine.Use(middleware.Recovery(a.logger))

	a.engine.Use(middleware.TraceID())

	a.engine.Use(middleware.Logging(a.logger))

	if a.config.Server.EnableCORS {
		a.engine.Use(middleware.CORS())
	}
}

// UseMiddleware adds a custom middleware.
func (a *App) UseMiddleware(m gin.HandlerFunc) {
	a.engine.Use(m)
}

// Bootstrap builds services, handlers and routes from the injected
// providers. Must be called after the setters, before Run.
func (a *App) Bootstrap() error {
	if a.store == nil {
		return fmt.Errorf("ledger store not set")
	}
	if a.wallet == nil {
		return fmt.Errorf("wallet provider not set")
	}

	a.ledgerService = ledger.NewService(a.store, a.logger)
	a.jackpotService = jackpot.NewService(jackpot.ServiceConfig{
		Store:   a.store,
		Key:     jackpot.DefaultKey,
		MinSeed: a.config.Game.MinJackpotSeed,
		Logger:  a.logger,
	})

	engine := fortune.NewEngine()
	a.playService = NewPlayService(a.config, a.ledgerService, a.jackpotService, engine, a.wallet, a.events, a.logger)
	a.withdrawService = NewWithdrawService(a.config, a.ledgerService, a.wallet, a.events, a.logger)

	a.playHandler = NewPlayHandler(a.playService, a.logger)
	a.withdrawHandler = NewWithdrawHandler(a.withdrawService, a.logger)
	a.jackpotHandler = NewJackpotHandler(a.jackpotService, a.logger)

	a.registerRoutes()
	return nil
}

// EnsureSeeded seeds an empty jackpot pool at startup.
func (a *App) EnsureSeeded(ctx context.Context) error {
	if a.jackpotService == nil {
		return fmt.Errorf("app not bootstrapped")
	}
	return a.jackpotService.EnsureSeeded(ctx)
}

func (a *App) registerRoutes() {
	api := a.engine.Group("/api")

	// Streaming routes stay outside the timeout middleware.
	api.GET("/jackpot/updates", a.jackpotHandler.StreamUpdates)
	api.GET("/jackpot/updates/ws", a.jackpotHandler.StreamUpdatesWebSocket)

	// Wallet-backed routes can hold a connection while LNbits settles a
	// payment, so they get a generous but bounded deadline.
	timed := api.Group("", middleware.Timeout(60*time.Second))
	{
		timed.GET("/session", a.playHandler.NewSession)
		timed.GET("/balance/:sessionId", a.playHandler.GetBalance)

		timed.POST("/draw", a.playHandler.Draw)
		timed.POST("/draw-from-balance", a.playHandler.DrawFromBalance)

		timed.POST("/create-invoice", a.playHandler.CreateInvoice)
		timed.GET("/check-invoice/:payment_hash", a.playHandler.CheckInvoice)

		timed.POST("/create-deposit-invoice", a.playHandler.CreateDepositInvoice)
		timed.GET("/check-deposit-invoice/:payment_hash", a.playHandler.CheckDepositInvoice)
		timed.POST("/confirm-deposit-payment", a.playHandler.ConfirmDeposit)

		timed.POST("/generate-withdraw-lnurl", a.withdrawHandler.Generate)
		timed.GET("/check-lnurl-claim/:link_id/:sessionId", a.withdrawHandler.CheckClaim)

		timed.GET("/jackpot", a.jackpotHandler.GetPool)
	}

	a.logger.Info().Msg("API routes registered under /api")
}

// RegisterHealthCheck adds health check endpoints.
func (a *App) RegisterHealthCheck() {
	a.engine.GET("/health", a.healthCheck)
	a.engine.GET("/api/health", a.healthCheck)
}

func (a *App) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now(),
		"environment": a.config.Environment,
	})
}

// Router returns the Gin engine for custom route registration.
func (a *App) Router() *gin.Engine {
	return a.engine
}

// JackpotService returns the jackpot service.
func (a *App) JackpotService() *jackpot.Service {
	return a.jackpotService
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() zerolog.Logger {
	return a.logger
}

// OnShutdown registers a function to be called on shutdown.
func (a *App) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

// Run starts the HTTP server and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	return a.waitForShutdown()
}

// RunWithContext starts the HTTP server and shuts down when the
// context is cancelled.
func (a *App) RunWithContext(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errChan:
		return err
	}
}

func (a *App) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return a.shutdown()
}

func (a *App) shutdown() error {
	a.logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, fn := range a.onShutdown {
		fn()
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Error during server shutdown")
		return err
	}

	a.logger.Info().Msg("Server shutdown complete")
	return nil
}
