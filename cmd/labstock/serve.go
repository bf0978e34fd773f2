package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"labstock/internal/adapters/httpapi"
	"labstock/internal/blob"
	"labstock/internal/config"
	"labstock/internal/core"
	"labstock/internal/logger"
	"labstock/internal/report"
	"labstock/internal/seed"
)

func newServeCommand() *cobra.Command {
	var withSeed bool
	cmd := &cobra.Command{
		Use:          "serve",
		Long:         "Start the HTTP API and the report worker",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), config.Global(), withSeed)
		},
	}
	cmd.Flags().BoolVar(&withSeed, "seed", false, "load the starter inventory when the store is empty")
	return cmd
}

func runServe(ctx context.Context, conf *config.GlobalConfig, withSeed bool) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := openApp(ctx, conf, reg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if withSeed {
		if err := loadSeed(ctx, a); err != nil {
			return err
		}
	}

	store, err := blob.Open(ctx, conf.BlobConfig())
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	worker := report.NewWorker(store, reportGenerators(conf),
		report.WithWorkerLogger(core.NewZapLogger(logger.L())),
		report.WithQueueSize(conf.Report.QueueSize),
	)
	worker.Start()

	if conf.Server.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	httpapi.NewRouter(router, a.svc, httpapi.Options{
		AllowOrigins: conf.Server.AllowOrigins,
		Metrics:      a.metrics,
		Reports:      worker,
	})

	httpServer := http.Server{
		Addr:              ":" + strconv.Itoa(conf.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       30 * time.Second,
		TLSNextProto:      make(map[string]func(*http.Server, *tls.Conn, http.Handler)),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof(ctx, "API server starting on http://0.0.0.0:%d", conf.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Errorf(ctx, "start server err: %v", err)
			_ = worker.Stop(context.Background())
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownWait)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf(ctx, "shut down server err: %v", err)
	}
	if err := worker.Stop(shutdownCtx); err != nil {
		logger.Warnf(ctx, "stop report worker err: %v", err)
	}
	return nil
}

// reportGenerators always offers markdown and xlsx. The remote format is
// enabled when a report endpoint is configured.
func reportGenerators(conf *config.GlobalConfig) map[report.Format]report.Generator {
	gens := map[report.Format]report.Generator{
		report.FormatMarkdown: report.MarkdownGenerator{},
		report.FormatXLSX:     report.XLSXGenerator{},
	}
	if conf.Report.Endpoint != "" {
		gens[report.FormatRemote] = report.NewHTTPGenerator(conf.ReportConfig())
	}
	return gens
}

func loadSeed(ctx context.Context, a *app) error {
	loaded, _, err := seed.Load(ctx, a.store, seed.Default(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if loaded {
		logger.Infof(ctx, "starter inventory loaded")
	} else {
		logger.Infof(ctx, "store already populated, seed skipped")
	}
	return nil
}
