package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/tactics-backend/internal/config"
	"github.com/DoyleJ11/tactics-backend/internal/hub"
	"github.com/DoyleJ11/tactics-backend/internal/httpapi"
	"github.com/DoyleJ11/tactics-backend/internal/rules"
	"github.com/DoyleJ11/tactics-backend/internal/session"
	"github.com/DoyleJ11/tactics-backend/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if cfg.Debug {
		logger, _ = zap.NewDevelopment()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.DatabaseURL != "" {
		g, err := store.OpenGorm(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open store", zap.Error(err))
		}
		st = g
	} else {
		logger.Warn("no DATABASE_URL set, sessions will not survive restarts")
		st = store.NewMemory()
	}

	engine := rules.New()
	h := hub.NewHub(ctx, session.Deps{
		Sim:   engine,
		Boot:  engine,
		Store: st,
		Log:   logger,
	})
	if err := h.Restore(ctx); err != nil {
		logger.Error("restore sessions", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, cfg),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
