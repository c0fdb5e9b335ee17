package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-bookbase/aggregator"
	"github.com/aluiziolira/go-bookbase/catalog"
	"github.com/aluiziolira/go-bookbase/config"
	"github.com/aluiziolira/go-bookbase/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// app carries the collaborators shared by every subcommand.
type app struct {
	cfg           *config.Config
	catalog       *catalog.Client
	aggregator    *aggregator.Aggregator
	metricsServer *http.Server
	store         *store.Store
}

func newApp(cfg *config.Config) (*app, error) {
	client, err := catalog.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialising catalog client: %w", err)
	}

	a := &app{
		cfg:        cfg,
		catalog:    client,
		aggregator: aggregator.New(client, cfg.MaxResults, cfg.MaxInFlight, client.Metrics),
	}

	if cfg.MetricsAddr != "" {
		a.metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(client.Metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}
	return a, nil
}

// readingList opens the configured backend on first use.
func (a *app) readingList(ctx context.Context) (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	var (
		repo store.Repository
		err  error
	)
	switch a.cfg.DatabaseDriver {
	case config.DriverPostgres:
		repo, err = store.OpenPostgres(ctx, a.cfg.DatabaseDSN, a.cfg.Timeout)
	default:
		repo, err = store.OpenSQLite(ctx, a.cfg.DatabaseDSN)
	}
	if err != nil {
		return nil, store.StoreError{Op: "open", Err: err}
	}

	s, err := store.New(ctx, repo, a.cfg.StoreCacheSize)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	slog.Debug("reading list opened", slog.String("driver", a.cfg.DatabaseDriver))
	a.store = s
	return s, nil
}

func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.metricsServer.Shutdown(ctx))
		cancel()
	}
	return errors.Join(errs...)
}
