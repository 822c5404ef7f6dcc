// Package app wires the services together and owns their lifecycle.
package app

import (
	"context"
	"time"

	"log/slog"

	"github.com/simpledough/dough-manager/config"
	httpapi "github.com/simpledough/dough-manager/internal/api/http"
	"github.com/simpledough/dough-manager/internal/apisrv/admin"
	"github.com/simpledough/dough-manager/internal/apisrv/auth"
	"github.com/simpledough/dough-manager/internal/apisrv/frontend"
	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/export"
	"github.com/simpledough/dough-manager/internal/mail"
	"github.com/simpledough/dough-manager/internal/ordercleanup"
	"github.com/simpledough/dough-manager/internal/ratelimit"
	"github.com/simpledough/dough-manager/internal/report"
	"github.com/simpledough/dough-manager/internal/reviews"
	"github.com/simpledough/dough-manager/internal/store"
	"golang.org/x/sync/errgroup"
)

// App is the main application
type App struct {
	hs      *httpapi.Server
	db      dependency.Repository
	mailer  *mail.Mailer
	reviews *reviews.Store
	reports *report.Service
	cleanup *ordercleanup.Worker
	c       *config.Config
	cancel  context.CancelFunc
	workers *errgroup.Group
	done    chan struct{}
}

// New returns a new instance of App
func New(c *config.Config) *App {
	return &App{
		c:    c,
		done: make(chan struct{}),
	}
}

// Start starts the app
func (a *App) Start(ctx context.Context) error {
	var err error
	slog.Default().InfoContext(ctx, "starting dough manager")

	ctx, a.cancel = context.WithCancel(ctx)

	a.db, err = store.New(ctx, a.c.DB)
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't connect to mysql",
			slog.String("err", err.Error()),
		)
		return err
	}

	a.reviews, err = reviews.New(a.c.Reviews, a.db.Reviews())
	if err != nil {
		slog.Default().ErrorContext(ctx, "failed to open review fallback store",
			slog.String("err", err.Error()),
		)
		return err
	}

	a.mailer, err = mail.New(&a.c.Mailer, a.db.Mail())
	if err != nil {
		slog.Default().ErrorContext(ctx, "failed to create mailer",
			slog.String("err", err.Error()),
		)
		return err
	}
	if err := a.mailer.Start(ctx); err != nil {
		return err
	}

	b, err := a.c.Bucket.Init()
	if err != nil {
		slog.Default().ErrorContext(ctx, "failed to init bucket",
			slog.String("err", err.Error()),
		)
		return err
	}

	reportSvc := report.NewService(a.db.Order())
	reportSvc.Refresh(ctx)
	a.reports = reportSvc

	exportSvc, err := export.New(export.NewPassthrough(), b)
	if err != nil {
		return err
	}

	authS, err := auth.New(&a.c.Auth, a.db.Admin())
	if err != nil {
		slog.Default().ErrorContext(ctx, "failed to create auth server",
			slog.String("err", err.Error()),
		)
		return err
	}
	adminS := admin.New(a.db, reportSvc, exportSvc)
	frontendS := frontend.New(a.db, a.reviews, a.mailer, ratelimit.NewStorefrontLimiter())

	a.cleanup = ordercleanup.New(&a.c.OrderCleanup, a.db.Order())
	if err := a.cleanup.Start(ctx); err != nil {
		return err
	}

	a.workers, ctx = errgroup.WithContext(ctx)
	a.startWorkers(ctx, reportSvc)

	a.hs = httpapi.New(&a.c.HTTP)
	if err = a.hs.Start(ctx, adminS, frontendS, authS); err != nil {
		slog.Default().ErrorContext(ctx, "cannot start http server",
			slog.String("err", err.Error()),
		)
		return err
	}

	return nil
}

// startWorkers runs the periodic report refresh and the review fallback
// flush until the app context is cancelled.
func (a *App) startWorkers(ctx context.Context, reportSvc *report.Service) {
	refreshInterval := a.c.ReportRefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Minute
	}

	a.workers.Go(func() error {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				reportSvc.Refresh(ctx)
			case <-ctx.Done():
				return nil
			}
		}
	})

	a.workers.Go(func() error {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := a.reviews.FlushFallback(ctx); err != nil {
					slog.Default().ErrorContext(ctx, "review fallback flush failed",
						slog.String("err", err.Error()),
					)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// Stop stops the application and waits for all services to exit
func (a *App) Stop(ctx context.Context) {
	if a.hs != nil {
		if err := a.hs.Stop(ctx); err != nil {
			slog.Default().ErrorContext(ctx, "http server shutdown failed",
				slog.String("err", err.Error()),
			)
		}
	}
	if a.mailer != nil {
		_ = a.mailer.Stop()
	}
	if a.cleanup != nil {
		_ = a.cleanup.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.workers != nil {
		_ = a.workers.Wait()
	}
	if a.reports != nil {
		a.reports.Close()
	}
	if a.reviews != nil {
		_ = a.reviews.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	close(a.done)
}

// Done returns a channel that is closed after the application has exited
func (a *App) Done() chan struct{} {
	return a.done
}
