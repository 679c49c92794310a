package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/topaplus/commandcenter/config"
	"github.com/topaplus/commandcenter/internal/httpapi"
	"github.com/topaplus/commandcenter/internal/registry"
	"github.com/topaplus/commandcenter/internal/reports"
	"github.com/topaplus/commandcenter/internal/runtime"
	"github.com/topaplus/commandcenter/internal/scheduler"
	"github.com/topaplus/commandcenter/internal/security"
	"github.com/topaplus/commandcenter/internal/snapshots"
	"github.com/topaplus/commandcenter/internal/sources"
	"github.com/topaplus/commandcenter/internal/telemetry"
	"github.com/topaplus/commandcenter/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var (
		configPath      string
		useStdio        bool
		httpAddr        string
		shutdownTimeout time.Duration
	)

	flag.StringVar(&configPath, "config", "commandcenter.yaml", "Path to the YAML configuration file")
	flag.BoolVar(&useStdio, "stdio", false, "Run the MCP server over stdio transport")
	flag.StringVar(&httpAddr, "http", "", "Serve the JSON API on this address (e.g. :8080)")
	flag.DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
	flag.Parse()

	// MCP over stdio owns stdout; logs go to stderr.
	zlog.Logger = zlog.Output(os.Stderr)
	logger := zlog.With().Str("service", "commandcenter").Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("config: load failed")
		return 1
	}
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("config: invalid")
		return 1
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if httpAddr == "" && !useStdio {
		httpAddr = os.Getenv(config.EnvPrefix + "HTTP_ADDR")
	}
	if !useStdio && httpAddr == "" {
		fmt.Fprintln(os.Stderr, "no transport selected; use --stdio and/or --http :8080")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	// Security: file sources need an allow-list (fail-safe on error).
	guard, err := security.NewGuard(cfg.AllowedDirs, nil)
	if err != nil {
		logger.Error().Err(err).Msg("security: invalid allow-list")
		return 1
	}
	if cfg.NeedsFiles() {
		if err := guard.Validate(); err != nil {
			logger.Error().Err(err).Msg("security: file sources configured without allowed_dirs")
			fmt.Fprintf(os.Stderr, "no allowed directories configured; set %s\n", security.EnvAllowedDirs)
			return 1
		}
		logger.Info().Strs("allowed_dirs", guard.Roots()).Msg("security allow-list configured")
	}

	limits := runtime.FromConfig(cfg)
	runtimeController := runtime.NewController(limits)
	runtimeMW := runtime.NewMiddleware(runtimeController)

	mgr := snapshots.NewManager(cfg.Cache.TTL, cfg.Cache.CleanupEvery, runtimeController, nil)
	mgr.UseLogger(logger)
	mgr.SetFetchTimeout(cfg.Limits.FetchTimeout)
	if cfg.Cache.RedisAddr != "" {
		client, err := snapshots.OpenRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
		if err != nil {
			logger.Error().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable")
			return 1
		}
		defer client.Close()
		mgr.UseStore(snapshots.NewRedisStore(client, ""))
	}

	deps := sources.Deps{Guard: guard, Client: &http.Client{Timeout: cfg.Limits.FetchTimeout}}
	for _, sc := range cfg.Sources {
		src, err := sources.FromConfig(sc, deps)
		if err != nil {
			logger.Error().Err(err).Str("source", sc.ID).Msg("source: invalid configuration")
			return 1
		}
		mgr.Register(src)
	}
	mgr.Start()

	catalog, err := reports.NewCatalog(cfg.Reports)
	if err != nil {
		logger.Error().Err(err).Msg("reports: invalid definitions")
		return 1
	}
	svc := reports.NewService(mgr, catalog, reports.NewRunner(cfg.ReasonRules, cfg.Radar), logger)
	svc.SetPageSizes(limits.DefaultPageSize, limits.MaxPageSize)

	var sched *scheduler.Scheduler
	if cfg.RefreshCron != "" {
		sched = scheduler.NewScheduler(ctx, mgr, cfg.Limits.FetchTimeout, logger)
		if err := sched.Register(cfg.RefreshCron); err != nil {
			logger.Error().Err(err).Msg("scheduler: invalid refresh_cron")
			return 1
		}
		sched.Start()
	}

	toolRegistry := registry.New()
	adminFilter := registry.NewAdminToolFilter(cfg.EnableAdmin)

	srv := server.NewMCPServer(
		"Topa+ Command Center",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(telemetry.NewHooks(logger).Server()),
		server.WithToolHandlerMiddleware(runtimeMW.ToolMiddleware),
		server.WithToolFilter(adminFilter.FilterTools),
	)
	registry.RegisterTools(srv, toolRegistry, svc, adminFilter)

	logger.Info().
		Str("version", version.Version()).
		Int("sources", len(cfg.Sources)).
		Int("reports", len(catalog)).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_concurrent_loads", limits.MaxConcurrentLoads).
		Dur("cache_ttl", mgr.TTL()).
		Bool("redis", cfg.Cache.RedisAddr != "").
		Str("refresh_cron", cfg.RefreshCron).
		Bool("stdio", useStdio).
		Str("http", httpAddr).
		Msg("server bootstrap configured")

	var httpSrv *http.Server
	httpErr := make(chan error, 1)
	if httpAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		httpSrv = &http.Server{
			Addr: httpAddr,
			Handler: httpapi.Router(svc, httpapi.Options{
				CORSOrigin: cfg.HTTP.CORSOrigin,
				AdminKey:   cfg.HTTP.AdminKey,
				Limit:      runtimeMW.Gin(),
			}, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", httpAddr).Msg("http api listening")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpErr <- err
			}
			close(httpErr)
		}()
	}

	exit := 0
	if useStdio {
		if err := server.ServeStdio(srv); err != nil {
			// Use stderr for transport errors so clients don't misinterpret output
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			exit = 1
		}
	} else {
		select {
		case <-ctx.Done():
		case err, ok := <-httpErr:
			if ok && err != nil {
				logger.Error().Err(err).Msg("http api failed")
				exit = 1
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http api shutdown")
		}
	}
	if sched != nil {
		sched.Stop()
	}
	if err := mgr.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("snapshot cache shutdown")
	}
	logger.Info().Msg("server stopped")
	return exit
}
