package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap()
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	res := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(cfg.Addr(), newServices(res, cfg, logger), logger,
		apphttp.WithTrustedProxies(cfg.TrustedProxies...))
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newServices wires the services over the selected backend. Every ledger
// write is followed by a budget check.
func newServices(res *backend.Result, cfg *config.Config, logger *log.Logger) apphttp.Services {
	categories := services.NewCategoryService(res.Store)
	ledger := services.NewLedgerService(res.Store, logger)
	budgets := services.NewBudgetService(res.Store, ledger, res.Notifier, logger).
		WithDefaultCurrency(cfg.DefaultCurrency)
	ledger.WithBudgetChecker(budgets)
	reports := services.NewReportService(ledger, res.Store, cfg.DefaultCurrency)

	return apphttp.Services{
		Accounts:   services.NewAccountService(res.Store, categories, cfg.DefaultCurrency),
		Categories: categories,
		Ledger:     ledger,
		Budgets:    budgets,
		Reports:    reports,
		Dashboard:  services.NewDashboardService(reports, budgets, ledger),
		Store:      res.Store,
	}
}
