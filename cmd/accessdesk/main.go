package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	cfhttp "github.com/Strob0t/AccessDesk/internal/adapter/http"
	"github.com/Strob0t/AccessDesk/internal/adapter/mockapi"
	cfnats "github.com/Strob0t/AccessDesk/internal/adapter/nats"
	cfotel "github.com/Strob0t/AccessDesk/internal/adapter/otel"
	"github.com/Strob0t/AccessDesk/internal/adapter/remoteapi"
	"github.com/Strob0t/AccessDesk/internal/adapter/ws"
	"github.com/Strob0t/AccessDesk/internal/config"
	"github.com/Strob0t/AccessDesk/internal/directory"
	"github.com/Strob0t/AccessDesk/internal/logger"
	"github.com/Strob0t/AccessDesk/internal/middleware"
	"github.com/Strob0t/AccessDesk/internal/port/notifier"
	"github.com/Strob0t/AccessDesk/internal/resilience"
	"github.com/Strob0t/AccessDesk/internal/service"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	args := os.Args[1:]
	var err error
	switch {
	case len(args) > 0 && args[0] == "admin":
		err = runAdmin(args[1:])
	case len(args) > 0 && args[0] == "serve":
		err = run(args[1:])
	default:
		err = run(args)
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, path, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"path", path,
		"port", cfg.Server.Port,
		"embedded_backend", cfg.Backend.Embedded,
		"audit_backend", cfg.Audit.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	shutdownOtel, err := cfotel.Init(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(sctx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	var queue *cfnats.Queue
	if cfg.NATS.URL != "" {
		queue, err = cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
	}

	slots, closeSlots, err := openSlots(ctx, cfg, queue, true)
	if err != nil {
		return fmt.Errorf("audit slots: %w", err)
	}
	defer closeSlots()

	// --- Remote API ---

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout,
		resilience.WithFailureFilter(remoteapi.CountsAsFailure))
	baseURL := cfg.Remote.BaseURL
	if cfg.Backend.Embedded {
		baseURL = "http://127.0.0.1:" + cfg.Server.Port
	}
	remote := remoteapi.NewClient(baseURL, cfg.Remote.Timeout, cfg.Remote.MaxConcurrent)
	remote.SetBreaker(breaker)

	// --- Services ---

	hub := ws.NewHub(cfg.Server.CORSOrigin)

	notifications := service.NewNotificationService()
	notifications.Route(ws.NewToastNotifier(hub))
	if cfg.Notify.SlackWebhookURL != "" {
		slack, err := notifier.New("slack", map[string]string{"webhook_url": cfg.Notify.SlackWebhookURL})
		if err != nil {
			return fmt.Errorf("slack notifier: %w", err)
		}
		notifications.Route(slack, cfg.Notify.Levels...)
	}

	recorder := service.NewAuditRecorder(slots, cfg.Audit.Key)
	recorder.SetMetrics(metrics)

	console := service.NewConsoleService(remote, directory.New(), recorder, notifications, service.ConsoleOptions{
		UserLogin:     cfg.Console.CurrentUserLogin,
		PageSize:      cfg.Console.PageSize,
		ReloadDelay:   cfg.Console.ReloadDelay,
		ToggleTimeout: cfg.Tracker.ToggleTimeout,
	})
	defer console.Close()
	console.SetBroadcaster(hub)
	console.SetMetrics(metrics)

	handlers := &cfhttp.Handlers{Console: console, Hub: hub, Breaker: breaker}
	if queue != nil {
		console.SetQueue(queue)
		handlers.Queue = queue
	}

	// --- HTTP ---

	limiter := middleware.NewRateLimiterFromConfig(cfg.Rate)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(cfhttp.Logger)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cfotel.HTTPMiddleware(cfg.Logging.Service))

	if cfg.Backend.Embedded {
		mockapi.New(cfg.Backend).Mount(r)
	}
	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		cfhttp.MountRoutes(r, handlers)
	})

	addr := ":" + cfg.Server.Port
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		limiter.Run(gctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
		return nil
	})
	g.Go(func() error {
		// The listener is bound, so the embedded backend is already reachable.
		if err := console.Load(gctx); err != nil {
			slog.Warn("initial directory load failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if queue != nil {
			if err := queue.Drain(); err != nil {
				slog.Warn("nats drain failed", "error", err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
