// Package main is the entry point for the service. It wires all dependencies
// using samber/do v2, starts the HTTP server, and handles graceful shutdown
// on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	adapthttp "github.com/openfabrik/datakit/internal/adapters/http"
	"github.com/openfabrik/datakit/internal/adapters/http/handlers"
	"github.com/openfabrik/datakit/internal/adapters/http/middleware"

	"github.com/openfabrik/datakit/internal/adapters/memstore"
	"github.com/openfabrik/datakit/internal/adapters/resilient"
	"github.com/openfabrik/datakit/internal/app"
	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain/customer"
	"github.com/openfabrik/datakit/internal/platform/config"
	"github.com/openfabrik/datakit/internal/platform/health"
	"github.com/openfabrik/datakit/internal/platform/logging"
	"github.com/openfabrik/datakit/internal/platform/telemetry"
	"github.com/openfabrik/datakit/internal/ports"
	"github.com/openfabrik/datakit/internal/repository"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	serverShutdownTimeout = 15 * time.Second
	otelShutdownTimeout   = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	profile := os.Getenv("APP_PROFILE")
	if profile == "" {
		return errors.New("APP_PROFILE environment variable is required (e.g. local, dev, qa, prod)")
	}

	// Bootstrap: config, logger, telemetry.
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx := context.Background()
	otel, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	// DI container.
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, otel.metrics)

	registerDependencies(injector, cfg, logger)

	// Resolve the server (eagerly wires the full graph).
	server, err := do.Invoke[*adapthttp.Server](injector)
	if err != nil {
		return fmt.Errorf("resolving server: %w", err)
	}

	// Register health checkers after the graph is wired.
	registry := do.MustInvoke[ports.HealthRegistry](injector)
	store := do.MustInvoke[*resilient.Store[*customer.Customer]](injector)
	registry.Register(store)

	// Start server in background.
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for shutdown signal or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Graceful shutdown: drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Wait for Start() goroutine to return.
	<-serverErr

	// Flush telemetry.
	otelCtx, otelCancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
	defer otelCancel()

	if err := otel.Shutdown(otelCtx); err != nil {
		logger.Error("telemetry shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}

// otelProviders bundles OpenTelemetry provider lifecycle. All fields are nil
// when telemetry is disabled.
type otelProviders struct {
	tracer  *sdktrace.TracerProvider
	meter   *sdkmetric.MeterProvider
	metrics *telemetry.Metrics
}

// Shutdown flushes both providers. Nil-safe.
func (o *otelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tracer != nil {
		if err := o.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if o.meter != nil {
		if err := o.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func initTelemetry(ctx context.Context, cfg *config.Config) (*otelProviders, error) {
	if !cfg.Telemetry.Enabled {
		return &otelProviders{}, nil
	}

	tp, err := telemetry.InitTracer(ctx,
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.Exporter,
		cfg.Telemetry.Endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	mp, err := telemetry.InitMeter(ctx,
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.Exporter,
		cfg.Telemetry.Endpoint,
	)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("init meter: %w", err)
	}

	metrics, err := telemetry.NewMetrics(mp)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	return &otelProviders{
		tracer:  tp,
		meter:   mp,
		metrics: metrics,
	}, nil
}

// repositoryConfig converts the loaded policy settings into the repository's
// own config type.
func repositoryConfig(cfg config.RepositoryConfig) repository.Config {
	return repository.Config{
		SoftDelete:        cfg.SoftDelete,
		Timestamps:        cfg.Timestamps,
		AuditTrail:        cfg.AuditTrail,
		TenantIsolation:   cfg.TenantIsolation,
		OptimisticLocking: cfg.OptimisticLocking,
		Caching:           cfg.Caching,
		CacheTTL:          cfg.CacheTTL,
	}
}

func registerDependencies(injector *do.RootScope, cfg *config.Config, logger *slog.Logger) {
	do.Provide(injector, func(_ do.Injector) (*memstore.Store[*customer.Customer], error) {
		return memstore.New[*customer.Customer]("customers",
			func(c *customer.Customer) *customer.Customer { return c.Clone() },
			memstore.WithFieldFunc[*customer.Customer](func(c *customer.Customer, field string) (any, bool) {
				return c.Field(field)
			}),
			memstore.WithTextFunc[*customer.Customer](func(c *customer.Customer) string {
				return c.SearchText()
			}),
			memstore.WithOptimisticLocking[*customer.Customer](cfg.Repository.OptimisticLocking),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*resilient.Store[*customer.Customer], error) {
		inner := do.MustInvoke[*memstore.Store[*customer.Customer]](i)
		return resilient.New[*customer.Customer]("customers", inner, cfg.Store, logger), nil
	})

	do.Provide(injector, func(i do.Injector) (*repository.Repository[*customer.Customer], error) {
		store := do.MustInvoke[*resilient.Store[*customer.Customer]](i)
		metrics := do.MustInvoke[*telemetry.Metrics](i)

		return repository.New[*customer.Customer]("customer", store, repositoryConfig(cfg.Repository), logger,
			repository.WithInterceptors[*customer.Customer](
				telemetry.NewMetricsInterceptor("customer", metrics),
			),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*app.Service[*customer.Customer], error) {
		repo := do.MustInvoke[*repository.Repository[*customer.Customer]](i)
		return app.NewService[*customer.Customer](repo, logger), nil
	})

	do.Provide(injector, func(_ do.Injector) (ports.HealthRegistry, error) {
		return health.New(), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.CustomerHandler, error) {
		svc := do.MustInvoke[*app.Service[*customer.Customer]](i)
		return handlers.NewCustomerHandler(svc, apperr.NewHandler(logger)), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.HealthHandler, error) {
		registry := do.MustInvoke[ports.HealthRegistry](i)
		return handlers.NewHealthHandler(registry), nil
	})

	do.Provide(injector, func(i do.Injector) (nethttp.Handler, error) {
		custH := do.MustInvoke[*handlers.CustomerHandler](i)
		healthH := do.MustInvoke[*handlers.HealthHandler](i)
		metrics := do.MustInvoke[*telemetry.Metrics](i)

		return adapthttp.NewRouter(custH, healthH,
			middleware.Recovery(logger),
			middleware.RequestID(),
			middleware.Correlation(),
			middleware.OpenTelemetry(metrics),
			middleware.Logging(logger),
			middleware.Timeout(cfg.Server.WriteTimeout),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*adapthttp.Server, error) {
		handler := do.MustInvoke[nethttp.Handler](i)
		return adapthttp.NewServer(cfg.Server, handler, logger), nil
	})
}
