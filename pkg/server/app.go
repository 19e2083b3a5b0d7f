package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"LiqPulse/internal/usecase"
	pkgch "LiqPulse/pkg/clickhouse"
	"LiqPulse/pkg/config"
	xhttp "LiqPulse/pkg/http"
	applogger "LiqPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle: the core engine loop,
// both ingestion feeds, the outbound dispatcher and the HTTP server.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	engine     *usecase.Engine
	collector  *usecase.BarCollector
	poller     *usecase.LiquidationPoller
	dispatcher *usecase.Dispatcher
	handler    xhttp.Handler
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	engine *usecase.Engine,
	collector *usecase.BarCollector,
	poller *usecase.LiquidationPoller,
	dispatcher *usecase.Dispatcher,
	handler xhttp.Handler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		engine:     engine,
		collector:  collector,
		poller:     poller,
		dispatcher: dispatcher,
		handler:    handler,
		chClient:   chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// core loop and fan-out before any producer starts submitting
	go func() {
		_ = a.engine.Run(ctx)
	}()
	go func() {
		_ = a.dispatcher.Run(ctx, a.engine.Events())
	}()

	// backfill can take a while; run it off the main goroutine
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("bar collector error", applogger.Error(err))
		}
	}()
	a.log.Info("bar collector started", applogger.Strings("instruments", a.cfg.Engine.Instruments))

	go func() {
		if err := a.poller.Start(ctx); err != nil {
			a.log.Error("liquidation poller error", applogger.Error(err))
		}
	}()
	a.log.Info("liquidation poller started",
		applogger.Duration("interval_ms", a.cfg.Gateio.PollInterval))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if err := a.collector.Stop(); err != nil {
		a.log.Warn("bar collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
