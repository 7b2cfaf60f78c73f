// driveloop runs the alerting and escalation engine: rule evaluation over
// metric snapshots, alert lifecycle management, notification dispatch and the
// operator HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/driveloop/driveloop/internal/alerting"
	"github.com/driveloop/driveloop/internal/api"
	"github.com/driveloop/driveloop/internal/audit"
	"github.com/driveloop/driveloop/internal/conf"
	"github.com/driveloop/driveloop/internal/logger"
	"github.com/driveloop/driveloop/internal/monitor"
	"github.com/driveloop/driveloop/internal/notify"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "driveloop",
		Short: "driveloop alerting and escalation engine",
	}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "run the alerting engine and HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	serve.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.AddCommand(serve)
	return root
}

func runServe(ctx context.Context, configPath string) error {
	settings, err := conf.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.NewSlogLogger(os.Stdout, parseLogLevel(settings.LogLevel),
		[]logger.Field{logger.String("service", "driveloop")})
	log.Info("starting driveloop", logger.String("listen", settings.Listen))

	auditRec, err := audit.Open(settings.AuditDB, log.With(logger.String("component", "audit")))
	if err != nil {
		return err
	}
	defer func() {
		if err := auditRec.Close(); err != nil {
			log.Error("failed to close audit database", logger.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	notifyLog := log.With(logger.String("component", "notify"))
	dispatcher := notify.NewDispatcher(notifyLog, notify.NewMetrics(registry))
	notify.Configure(dispatcher, settings.Notify, notifyLog)

	manager := alerting.NewManager(alerting.ManagerConfig{
		Dispatcher:  dispatcher,
		Direct:      notify.NewDirectNotifier(settings.Notify, notifyLog),
		Audit:       auditRec,
		Log:         log.With(logger.String("component", "alerting")),
		Registerer:  registry,
		EventBuffer: settings.Engine.EventBuffer,
	})
	manager.SeedDefaultRules()
	defer manager.Close()

	collector := monitor.NewCollector(manager, settings.Monitor.Interval.Std(), settings.Monitor.DiskPath,
		log.With(logger.String("component", "monitor")))
	collector.Start()
	defer collector.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	api.NewController(e, manager, auditRec, log.With(logger.String("component", "api")))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(settings.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", logger.Error(err))
	}
	return nil
}

func parseLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.LogLevelDebug
	case "warn":
		return logger.LogLevelWarn
	case "error":
		return logger.LogLevelError
	default:
		return logger.LogLevelInfo
	}
}
