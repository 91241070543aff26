package app

import (
	"context"
	"fmt"

	pwcfg "github.com/nickelsound/3DprinterMonitor/internal/config"
	"github.com/nickelsound/3DprinterMonitor/internal/logger"
	"github.com/nickelsound/3DprinterMonitor/internal/monitor"
	livehttp "github.com/nickelsound/3DprinterMonitor/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App wires the configuration into the monitor loop and the live HTTP
// surface and runs them together.
type App struct {
	cfg      *pwcfg.Config
	monitor  *monitor.Monitor
	liveHTTP *livehttp.Server
	Summary  *StartupSummary
}

// NewApp builds the application from a loaded config (does not start it).
func NewApp(cfg *pwcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts the HTTP server and the polling loop and blocks until ctx is
// cancelled or either of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	if a.Summary != nil {
		a.Summary.Print()
	}

	if a.monitor == nil {
		return fmt.Errorf("monitor not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		return a.monitor.Run(ctx)
	})

	return group.Wait()
}

// Monitor exposes the underlying loop instance (for testing harnesses).
func (a *App) Monitor() *monitor.Monitor {
	if a == nil {
		return nil
	}
	return a.monitor
}
