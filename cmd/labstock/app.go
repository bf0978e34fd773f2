package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"

	"labstock/internal/config"
	"labstock/internal/core"
	"labstock/internal/events"
	"labstock/internal/logger"
	"labstock/internal/seed"
	"labstock/pkg/domain"
)

// app holds the wired service and the resources to release on exit.
type app struct {
	svc     *core.Service
	store   domain.PersistentStore
	metrics http.Handler
	closers []io.Closer
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openApp builds the store and service from conf. reg is nil for one-shot
// commands, which never register prometheus collectors.
func openApp(ctx context.Context, conf *config.GlobalConfig, reg *prometheus.Registry) (*app, error) {
	store, closer, err := core.OpenPersistentStore(conf.StorageConfig(), core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{store: store, closers: []io.Closer{closer}}

	opts := []core.ServiceOption{
		core.WithLogger(core.NewZapLogger(logger.L())),
		core.WithAuditRecorder(core.NewZapAuditRecorder(logger.L())),
		core.WithCostTable(seed.DefaultCosts()),
		core.WithSettings(conf.Settings()),
	}
	metrics, handler, err := metricsRecorder(conf.Telemetry, reg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if metrics != nil {
		opts = append(opts, core.WithMetricsRecorder(metrics))
	}
	a.metrics = handler
	if conf.Telemetry.TraceFile != "" {
		rotate := &lumberjack.Logger{
			Filename: conf.Telemetry.TraceFile,
			MaxSize:  conf.Telemetry.TraceMaxSizeMB,
			Compress: true,
		}
		a.closers = append(a.closers, rotate)
		opts = append(opts, core.WithTracer(core.NewJSONTracer(rotate)))
	}
	if conf.Redis.Enabled {
		client, err := events.NewRedisClient(ctx, conf.RedisConfig())
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client)
		opts = append(opts, core.WithEventPublisher(events.NewRedisPublisher(client, conf.Redis.Prefix)))
	}
	a.svc = core.NewService(store, opts...)
	return a, nil
}

// metricsRecorder picks the operation metrics backend and the handler that
// exposes it on /metrics.
func metricsRecorder(t config.Telemetry, reg *prometheus.Registry) (core.MetricsRecorder, http.Handler, error) {
	switch t.MetricsDriver {
	case "", "prometheus":
		if reg == nil {
			return nil, nil, nil
		}
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return nil, nil, fmt.Errorf("register metrics: %w", err)
		}
		return rec, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
	case "expvar":
		return core.NewExpvarMetricsRecorder(t.ExpvarName), expvar.Handler(), nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown metrics driver %q", t.MetricsDriver)
	}
}
