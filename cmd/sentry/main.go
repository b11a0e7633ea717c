package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirill3224/privacy-sentry/internal/anchor"
	"github.com/kirill3224/privacy-sentry/internal/archive"
	"github.com/kirill3224/privacy-sentry/internal/config"
	"github.com/kirill3224/privacy-sentry/internal/dispatch"
	"github.com/kirill3224/privacy-sentry/internal/gateway"
	"github.com/kirill3224/privacy-sentry/internal/httpapi"
	"github.com/kirill3224/privacy-sentry/internal/observability"
	"github.com/kirill3224/privacy-sentry/internal/render"
	"github.com/kirill3224/privacy-sentry/internal/sched"
	"github.com/kirill3224/privacy-sentry/internal/session"
	"github.com/kirill3224/privacy-sentry/internal/wizard"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	turns := observability.NewTurnWindow(256)

	ctx := context.Background()
	archiveStore, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("archive store init failed: %v", err)
	}
	defer archiveStore.Close(context.Background())

	transport, err := gateway.New(gateway.Config{
		Mode:        cfg.GatewayMode,
		Token:       cfg.BotToken,
		APIBase:     cfg.TelegramAPI,
		PollTimeout: cfg.PollTimeout,
	})
	if err != nil {
		log.Fatalf("gateway init failed: %v", err)
	}

	sessions := session.NewStore()
	anchors := anchor.New(transport, sessions)
	renderer := render.NewMarkdownRenderer(cfg.OutputDir)

	scheduler := sched.NewQueue()
	defer scheduler.Stop()

	engine := wizard.New(sessions, anchors, transport, renderer, wizard.Options{
		Scheduler:  scheduler,
		Archive:    archiveStore,
		Metrics:    metrics,
		WarningTTL: cfg.WarningTTL,
	})

	dispatcher := dispatch.New(func(ctx context.Context, u gateway.Update) {
		start := time.Now()
		engine.HandleUpdate(ctx, u)
		turns.Observe("handle_"+string(u.Kind), time.Since(start))
	})

	// The webchat hub doubles as an HTTP surface; other transports leave
	// the /ws route disabled.
	var webchat *gateway.Hub
	if hub, ok := transport.(*gateway.Hub); ok {
		webchat = hub
	}

	api := httpapi.New(cfg, sessions, webchat, archiveStore, turns)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	go func() {
		if err := transport.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("transport stopped: %v", err)
		}
	}()

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(runCtx, transport.Updates())
	}()

	go func() {
		log.Printf("server listening on %s (gateway mode %s)", cfg.BindAddr, cfg.GatewayMode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	<-dispatchDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
