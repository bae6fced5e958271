package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/docrecon/internal/app"
	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/core/async"
	"github.com/joseph-ayodele/docrecon/internal/ingest"
	"github.com/joseph-ayodele/docrecon/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := app.NewLogger(os.Stdout, cfg.LogLevel, true)
	slog.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []async.Option{
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	}
	if cfg.Watch.OutboxDir != "" {
		opts = append(opts, async.WithResultHandler(ingest.WriteResults(cfg.Watch.OutboxDir, logger)))
	}
	queue := async.NewProcessorQueue(a.Processor, logger, opts...)

	// gRPC server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	server.RegisterExtractionServer(grpcServer, server.NewExtractionService(a.Processor, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(server.ExtractionServiceDesc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	// HTTP server
	gin.SetMode(gin.ReleaseMode)
	httpSrv := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.NewHTTPServer(a.Processor, a.Templates.Names(), logger,
			server.WithQueue(queue),
			server.WithUploadDir(cfg.OCR.ArtifactCacheDir),
		).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	// Inbox watcher
	watchDone := make(chan struct{})
	if cfg.Watch.InboxDir != "" {
		if cfg.Watch.OutboxDir == "" {
			logger.Warn("DOCRECON_OUTBOX not set; inbox results are only logged")
		}
		inbox := ingest.NewInbox(cfg.Watch.InboxDir, cfg.Watch.OutboxDir, a.Templates.Names(), cfg.Watch.Debounce, queue, logger)
		go func() {
			defer close(watchDone)
			if err := inbox.Run(ctx); err != nil {
				logger.Error("inbox watcher stopped", "error", err)
				stop()
			}
		}()
	} else {
		close(watchDone)
	}

	logger.Info("docrecond ready", "engine", a.Engine.Name(), "templates", a.Templates.Names())
	<-ctx.Done()
	logger.Info("shutting down")

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	<-watchDone
	queue.Shutdown(shutdownCtx)
}
