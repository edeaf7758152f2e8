package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/flasharb/internal/server"
	"github.com/alanyoungcy/flasharb/internal/server/handler"
)

// MonitorMode runs the acquisition pipeline and the read-only API surface.
// No transactions are signed or submitted.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.Scheduler.Run(ctx)
	})
	a.startServer(ctx, g, deps, false)

	return g.Wait()
}

// TradeMode runs the pipeline plus the execution stack. The contract admin
// surface stays offline; withdrawals and pausing are reserved for full mode.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.Scheduler.Run(ctx)
	})
	a.startArchiver(ctx, g, deps)
	a.startServer(ctx, g, deps, false)

	return g.Wait()
}

// FullMode runs every subsystem, including the contract admin endpoints.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.Scheduler.Run(ctx)
	})
	a.startArchiver(ctx, g, deps)
	a.startServer(ctx, g, deps, true)

	return g.Wait()
}

// startServer adds the HTTP server and the WebSocket hub to the errgroup when
// the server is enabled. admin controls whether the contract owner endpoints
// are registered.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, admin bool) {
	if !a.cfg.Server.Enabled || deps.Hub == nil {
		a.logger.InfoContext(ctx, "HTTP server disabled")
		return
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.cfg.Mode, a.logger),
		Market: handler.NewMarketHandler(deps.Service, a.logger),
	}
	if deps.Trading {
		handlers.Execution = handler.NewExecutionHandler(deps.Service, a.logger)
	}
	if admin {
		handlers.Contract = handler.NewContractHandler(deps.Service, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, deps.Hub, a.logger)

	g.Go(func() error {
		return deps.Hub.Run(ctx)
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startArchiver adds the ledger archival loop when archival is enabled.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	g.Go(func() error {
		return deps.Archiver.Run(ctx)
	})
}
