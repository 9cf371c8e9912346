package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/config"
	"github.com/sagarc03/filevault/database"
	"github.com/sagarc03/filevault/keybackend"
	"github.com/sagarc03/filevault/metrics"
	"github.com/sagarc03/filevault/objectstore"
)

// app holds the wired backends shared by serve and sweep.
type app struct {
	db       database.Database
	objects  *objectstore.Backend
	keys     *keybackend.MapSecretStore // bearer token secrets
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	service  *filevault.Service
}

// newApp connects the metadata backend and object store described by cfg and
// builds the service on top of them. The caller must Close the result.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	keys, err := keybackend.NewSecretStore(cfg.Auth.Keys)
	if err != nil {
		return nil, fmt.Errorf("load token keys: %w", err)
	}
	a.keys = keys

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics = metrics.New(a.registry)
	}

	a.db, err = database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := a.db.Ping(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := a.db.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		slog.Info("database migration complete")
	}

	if err := a.db.Validate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("validate database schema: %w", err)
	}
	slog.Info("connected to database", "type", cfg.Database.Type)

	a.objects, err = objectstore.Open(ctx, cfg.ObjectStore)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open object store: %w", err)
	}

	if shared := a.objects.SigningKeys.SharedSecrets(keys); len(shared) > 0 {
		a.Close()
		return nil, fmt.Errorf("open object store: signing keys %v reuse a bearer token secret", shared)
	}
	slog.Info("opened object store", "type", cfg.ObjectStore.Type, "breaker", cfg.ObjectStore.Breaker.Enabled)

	gateway := a.objects.Gateway
	ledger := a.db.Ledger()
	if a.metrics != nil {
		gateway = metrics.InstrumentGateway(gateway, a.metrics)
		ledger = metrics.InstrumentLedger(ledger, a.metrics)
	}

	a.service, err = filevault.NewService(a.db.Store(), gateway, filevault.ServiceConfig{
		Ledger:         ledger,
		Policy:         cfg.Service.Policy.Policy(),
		URLTTL:         cfg.Service.URLTTL,
		CleanupTimeout: cfg.Service.CleanupTimeout,
		ConfirmUploads: cfg.Service.ConfirmUploads,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}

	return a, nil
}

func (a *app) Close() {
	var errs []error
	if a.objects != nil {
		errs = append(errs, a.objects.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("close backends", "err", err)
	}
}
