package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bear-kitchen/internal/app"
	"bear-kitchen/internal/config"
	"bear-kitchen/internal/logger"
	"bear-kitchen/internal/telegram"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.New("telegram-bot", logger.FromConfig(cfg))

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exiting")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Bootstrap(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	api, err := telegram.Connect(cfg, log)
	if err != nil {
		return err
	}
	bot := telegram.NewBot(api, application, cfg, log)

	mux := http.NewServeMux()
	application.RegisterRoutes(mux)
	bot.RegisterHandlers(mux)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Telegram Bot Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		bot.Wait()
		return err
	})

	if syncer := application.Syncer(); syncer != nil {
		g.Go(func() error {
			return syncer.Run(gctx, cfg.SyncInterval)
		})
	}

	watcher, err := application.Watcher()
	if err != nil {
		stop()
		_ = g.Wait()
		return err
	}
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	return g.Wait()
}
