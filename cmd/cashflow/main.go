package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/amqp"
	"cashflow/internal/cache"
	"cashflow/internal/cli"
	apphttp "cashflow/internal/http"
	"cashflow/internal/log"
	"cashflow/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	tableStore, closer, err := cli.OpenStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to open session store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer closer.Close()

	// Snapshot messages are optional; without AMQP_URL edits are not announced.
	var publisher services.SnapshotPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	timelines := cache.NewTimelines(256, 10*time.Minute)
	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentApp))
	cacheManager.Register(timelines)
	cacheManager.StartCleanup(5 * time.Minute)
	defer cacheManager.Stop()

	tables := services.NewTableService(tableStore, publisher, timelines, cfg.SchemaPreset(), logger)
	srv := apphttp.NewServer(":"+cfg.Port, tables, apphttp.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		Currency:       cfg.Currency,
		Logger:         logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting cashflow server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port, "backend", cfg.DataBackend, "schema", cfg.Schema)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
