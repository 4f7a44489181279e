package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/PabloGalante/insight-agent/internal/adapters/http"
	"github.com/PabloGalante/insight-agent/internal/bootstrap"
	"github.com/PabloGalante/insight-agent/internal/config"
	"github.com/PabloGalante/insight-agent/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		observability.Logger().Error("insight api stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.Configure(os.Stdout, cfg.LogLevel)
	log := observability.Logger()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpadapter.NewServer(app.Service, httpadapter.Options{
			RateLimitPerMin: cfg.RateLimitPerMin,
			RateLimitBurst:  cfg.RateLimitBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("insight api listening", "port", cfg.Port, "storage", cfg.StorageBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
