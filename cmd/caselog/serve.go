package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/fieldstone/caselog/internal/adapter/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the map and serve diagnostics over HTTP",
	Long:  `Run one map load cycle, then serve health, readiness, metrics, marker, and status endpoints until interrupted.`,
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.HTTPAddr == "" {
		return fmt.Errorf("serve requires an HTTP address (set CASELOG_HTTP_ADDR or http_addr)")
	}

	coord, surface, life := a.newCoordinator(func(text string) {
		a.logger.Info("map load", "status", text)
	})
	defer life.Shutdown()

	srv := httpadapter.NewServer(a.cfg.HTTPAddr, coord, surface, coord, a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
		}
	}()

	if err := coord.StartLoad(ctx); err != nil {
		a.logger.Error("map load error", "error", err)
	}

	<-ctx.Done()
	a.logger.Info("shutting down")
	life.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
