package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	readHeaderTimeout = 10 * time.Second
	modelCheckTimeout = 15 * time.Second
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept quiz tasks over HTTP",
		Long: `Starts the HTTP endpoint. POST / with {"email","secret","url"} starts a
background run and returns immediately; GET /health reports liveness.`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Override HTTP_ADDR")
	cmd.Flags().Bool("skip-model-check", false, "Do not list provider models on startup")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, cfg, err := buildContainer(ctx, cmd)
	if err != nil {
		return err
	}
	defer container.Close()
	log := container.Logger

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if skip, _ := cmd.Flags().GetBool("skip-model-check"); !skip {
		_, _ = container.CheckModels(ctx, modelCheckTimeout)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr, "provider", container.LLM.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down", "grace", cfg.ShutdownGrace, "active_runs", container.Dispatcher.Active())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := container.Dispatcher.Wait(shutdownCtx); err != nil {
		log.Warn("Exiting with runs still in progress", "error", err)
		return nil
	}
	log.Info("All runs finished")
	return nil
}
