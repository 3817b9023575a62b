package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"arbwatch/internal/middleware"
	"arbwatch/internal/usecase"
	pkgch "arbwatch/pkg/clickhouse"
	xhttp "arbwatch/pkg/http"
	applogger "arbwatch/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	logger     *applogger.Logger
	feeds      []*usecase.FeedSupervisor
	monitor    *usecase.SpreadMonitor
	pipeline   *middleware.EventPipeline
	httpServer *xhttp.Server
	chClient   *pkgch.Client
}

// New creates a new App. httpServer and chClient may be nil.
func New(
	logger *applogger.Logger,
	feeds []*usecase.FeedSupervisor,
	monitor *usecase.SpreadMonitor,
	pipeline *middleware.EventPipeline,
	httpServer *xhttp.Server,
	chClient *pkgch.Client,
) *App {
	return &App{
		logger:     logger,
		feeds:      feeds,
		monitor:    monitor,
		pipeline:   pipeline,
		httpServer: httpServer,
		chClient:   chClient,
	}
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve runs feeds, monitor and sinks until ctx is done or the monitor fails.
// A failing feed is logged and contained; it never stops the process.
func (a *App) Serve(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.pipeline.Start(context.WithoutCancel(ctx))

	var wg sync.WaitGroup
	for _, f := range a.feeds {
		wg.Add(1)
		go func(f *usecase.FeedSupervisor) {
			defer wg.Done()
			if err := f.Run(runCtx); err != nil {
				a.logger.Error(fmt.Sprintf("%s feed failed", f.Venue()), applogger.Error(err))
			}
		}(f)
	}

	monitorErr := make(chan error, 1)
	go func() { monitorErr <- a.monitor.Run(runCtx) }()

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			cancel()
			wg.Wait()
			a.shutdown()
			return fmt.Errorf("http server: %w", err)
		}
	}

	venues := make([]string, 0, len(a.feeds))
	for _, f := range a.feeds {
		venues = append(venues, string(f.Venue()))
	}
	a.logger.Info("engine started, waiting for data streams", applogger.Strings("venues", venues))

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
		<-monitorErr
	case err := <-monitorErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = fmt.Errorf("spread monitor: %w", err)
			a.logger.Error("spread monitor stopped", applogger.Error(err))
		}
	}

	cancel()
	wg.Wait()
	a.shutdown()
	return runErr
}

// shutdown gracefully stops all services.
func (a *App) shutdown() {
	a.logger.Info("shutting down")

	a.pipeline.Stop()
	a.pipeline.Close()

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
}
