// Package server owns the process lifecycle: connect the backing stores,
// build the HTTP kernel, serve, and drain gracefully on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sumitghosal/zaika/app/repositories"
	"github.com/sumitghosal/zaika/config"
	"github.com/sumitghosal/zaika/internal/kernel"
	"github.com/sumitghosal/zaika/pkg/cache"
	"github.com/sumitghosal/zaika/pkg/logger"
	"github.com/sumitghosal/zaika/pkg/mongodb"
)

func Start() error {
	if err := config.Load(); err != nil {
		return err
	}

	ctx := context.Background()

	if err := mongodb.Connect(ctx); err != nil {
		return err
	}
	defer mongodb.Disconnect(context.Background()) //nolint:errcheck

	// Redis is an optimisation, not a dependency: warn and continue.
	if err := cache.Connect(ctx); err != nil {
		logger.Warn("redis unavailable, running without cart cache", "error", err)
	}

	if config.LogMongoEnabled() {
		mh := logger.NewMongoHandler(mongodb.Collection("logs"))
		defer mh.Close()
		logger.UseHandler(logger.NewMultiHandler(logger.L.Handler(), mh))
	}

	if err := repositories.NewCartRepository(mongodb.Collection("carts")).EnsureIndexes(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           kernel.Build(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cart service listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
