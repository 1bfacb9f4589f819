package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/game2048-metrics/internal/config"
	"github.com/Sternrassler/game2048-metrics/internal/server"
	"github.com/Sternrassler/game2048-metrics/internal/web"
	"github.com/Sternrassler/game2048-metrics/pkg/logging"
	"github.com/Sternrassler/game2048-metrics/pkg/metrics"
	"github.com/Sternrassler/game2048-metrics/pkg/mirror"
	"github.com/Sternrassler/game2048-metrics/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logging.Setup(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		Pretty:  cfg.LogPretty,
		Output:  os.Stderr,
		Service: server.ServiceName,
	})
	logger := logging.NewLogger("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}

// run builds the registry, binds both listeners in order and serves until ctx
// is cancelled.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, server.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	reg, err := metrics.NewGameRegistry()
	if err != nil {
		return err
	}
	if cfg.RuntimeMetrics {
		if err := reg.RegisterRuntimeCollectors(); err != nil {
			return err
		}
	}

	page, err := web.NewPage(web.DefaultPageData())
	if err != nil {
		return err
	}

	// The exposition listener is bound first so the registry is scrapeable
	// before any ingestion traffic is accepted.
	var ls listeners
	if cfg.MetricsAddr != "" {
		ls.metrics, err = net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("listen metrics %s: %w", cfg.MetricsAddr, err)
		}
	}
	ls.main, err = net.Listen("tcp", cfg.Addr)
	if err != nil {
		if ls.metrics != nil {
			ls.metrics.Close()
		}
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	var mir *mirror.Mirror
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			ls.close()
			return fmt.Errorf("parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		mir = mirror.New(redisClient, reg, mirror.Config{
			Key:      cfg.MirrorKey,
			Interval: cfg.MirrorInterval,
		}, logging.NewLogger("mirror"))
		logger.Info().Str("redis", opts.Addr).Str("key", cfg.MirrorKey).Msg("Stats mirror enabled")
	}

	return serve(ctx, ls, server.Options{
		Registry: reg,
		Page:     page,
		Logger:   logger,
		Strict:   cfg.Development(),
	}, mir, cfg)
}

type listeners struct {
	main    net.Listener
	metrics net.Listener
}

func (ls listeners) close() {
	if ls.main != nil {
		ls.main.Close()
	}
	if ls.metrics != nil {
		ls.metrics.Close()
	}
}

// serve runs the listeners and the optional mirror under one errgroup.
// Shutdown order: main listener, then the metrics listener, so a final
// scrape sees every accepted event.
func serve(ctx context.Context, ls listeners, opts server.Options, mir *mirror.Mirror, cfg config.Config) error {
	logger := opts.Logger
	g, gctx := errgroup.WithContext(ctx)

	mainSrv := &http.Server{
		Handler:           server.NewRouter(opts),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	var metricsSrv *http.Server
	if ls.metrics != nil {
		metricsSrv = &http.Server{
			Handler:           server.NewMetricsRouter(opts.Registry, logging.NewLogger("metrics")),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		}
		g.Go(func() error {
			logger.Info().
				Str("addr", ls.metrics.Addr().String()).
				Msg("Prometheus metrics listener started")
			return serveHTTP(metricsSrv, ls.metrics, "metrics")
		})
	}

	g.Go(func() error {
		logger.Info().
			Str("addr", ls.main.Addr().String()).
			Str("metrics_url", "http://"+ls.main.Addr().String()+"/metrics").
			Bool("strict", opts.Strict).
			Msg("Starting 2048 game server")
		return serveHTTP(mainSrv, ls.main, "main")
	})

	if mir != nil {
		g.Go(func() error {
			return mir.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down...")

		shutdownServer(mainSrv, cfg.ShutdownTimeout, logger.With().Str("listener", "main").Logger())
		if metricsSrv != nil {
			shutdownServer(metricsSrv, cfg.ShutdownTimeout, logger.With().Str("listener", "metrics").Logger())
		}
		return nil
	})

	return g.Wait()
}

func serveHTTP(srv *http.Server, ln net.Listener, name string) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s listener: %w", name, err)
	}
	return nil
}

func shutdownServer(srv *http.Server, timeout time.Duration, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Graceful shutdown timed out, closing")
		_ = srv.Close()
	}
}
