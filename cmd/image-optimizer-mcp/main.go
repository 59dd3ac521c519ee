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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ironsheep/image-optimizer/internal/cdn"
	"github.com/ironsheep/image-optimizer/internal/config"
	"github.com/ironsheep/image-optimizer/internal/imaging"
	"github.com/ironsheep/image-optimizer/internal/logging"
	"github.com/ironsheep/image-optimizer/internal/optimizer"
	"github.com/ironsheep/image-optimizer/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-optimizer-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			fmt.Printf("  AVIF (vips): %t\n", imaging.VipsEnabled)
			return
		case "--help", "-h", "help":
			fmt.Println("image-optimizer-mcp - MCP server for web image optimization")
			fmt.Println()
			fmt.Println("Usage: image-optimizer-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from .env):")
			fmt.Println("  IMAGEOPT_LOG_LEVEL=debug            Log level (debug, info, warn, error)")
			fmt.Println("  IMAGEOPT_CACHE_SIZE=32              Source files kept in memory")
			fmt.Println("  IMAGEOPT_METRICS_ADDR=:9090         Serve Prometheus metrics")
			fmt.Println("  IMAGEOPT_POOL_SIZE=4                Worker count")
			fmt.Println("  IMAGEOPT_POOL_QUEUE_SIZE=16         Queued task limit")
			fmt.Println("  IMAGEOPT_POOL_DISABLED=false        Process on the calling goroutine")
			fmt.Println("  IMAGEOPT_CDN_PROVIDER=cloudinary    Default CDN provider")
			fmt.Println("  IMAGEOPT_CDN_<PROVIDER>_BASE_URL    Base URL per provider")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr (stdout is for MCP protocol)
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting image optimizer MCP server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit),
		zap.Bool("vips", imaging.VipsEnabled))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.MetricsAddr != "" {
		metrics := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metrics.Shutdown(shutdownCtx)
		}()
	}

	cache, err := imaging.NewSourceCache(cfg.CacheSize)
	if err != nil {
		return err
	}

	opt := optimizer.New(cfg.Optimizer,
		optimizer.WithLogger(logger.Named("optimizer")),
		optimizer.WithRegisterer(reg))
	defer opt.Dispose()

	logger.Info("optimizer ready", zap.Bool("pooled", opt.Pooled()), zap.Int("capacity", opt.Capacity()))

	srv := server.New(opt, cdn.NewBuilder(cfg.CDN), cache,
		server.WithLogger(logger.Named("mcp")),
		server.WithVersion(Version))

	// Scanning stdin blocks, so wait for a signal alongside it
	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx) }()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("input closed, server stopped")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	hs := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", zap.Error(err))
		}
	}()
	return hs
}
