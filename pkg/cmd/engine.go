package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/deskflow/pkg/dedup"
	"github.com/dukex/deskflow/pkg/dispatcher"
	"github.com/dukex/deskflow/pkg/engine"
	"github.com/dukex/deskflow/pkg/eventbus"
	"github.com/dukex/deskflow/pkg/otelhelper"
	"github.com/dukex/deskflow/pkg/persistence"
	"github.com/dukex/deskflow/pkg/registry"
	"go.opentelemetry.io/otel/trace"
)

// EngineConfig carries the runtime settings shared by every binary that runs playbooks.
type EngineConfig struct {
	ActionTimeout time.Duration
	RedisURL      string
	Tracer        trace.Tracer
}

// NewDeduplicator connects the Redis idempotency guard. It returns nil when redisURL is empty.
func NewDeduplicator(ctx context.Context, logger *slog.Logger, redisURL string) *dedup.RedisGuard {
	if redisURL == "" {
		return nil
	}

	guard, err := dedup.NewRedisGuardFromURL(redisURL, dedup.DefaultTTL)
	if err != nil {
		panic(fmt.Errorf("failed to configure Redis: %w", err))
	}

	if err := guard.HealthCheck(ctx); err != nil {
		panic(fmt.Errorf("failed to connect to Redis: %w", err))
	}

	logger.InfoContext(ctx, "Idempotency guard enabled")

	return guard
}

// NewOrchestrator wires the dispatcher, the optional idempotency guard and the execution notifier.
// The returned close function releases the guard connection.
func NewOrchestrator(
	ctx context.Context,
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	publisher eventbus.EventPublisher,
	config EngineConfig,
) (*engine.Orchestrator, func() error) {
	tracer := config.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	runner := dispatcher.New(reg, logger,
		dispatcher.WithActionTimeout(config.ActionTimeout),
		dispatcher.WithTracer(tracer),
	)

	opts := []engine.Option{engine.WithTracer(tracer)}

	if publisher != nil {
		opts = append(opts, engine.WithNotifier(engine.NewEventNotifier(publisher)))
	}

	closeFn := func() error { return nil }

	if guard := NewDeduplicator(ctx, logger, config.RedisURL); guard != nil {
		opts = append(opts, engine.WithDeduplicator(guard))
		closeFn = guard.Close
	}

	return engine.New(store, runner, logger, opts...), closeFn
}

// NewTracer exports spans over OTLP/HTTP when enabled. Otherwise spans are dropped.
func NewTracer(ctx context.Context, logger *slog.Logger, serviceName string, enabled bool) (trace.Tracer, otelhelper.ShutdownFunc) {
	noop := func(context.Context) error { return nil }

	if !enabled {
		return otelhelper.NoopTracer(), noop
	}

	tracer, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		logger.WarnContext(ctx, "Tracing disabled", "error", err)

		return otelhelper.NoopTracer(), noop
	}

	return tracer, shutdown
}
