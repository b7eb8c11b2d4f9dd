// Command api serves the challenge catalogue, batch simulations and
// interactive duels.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pefman/w40k-challenge/internal/api"
	"github.com/pefman/w40k-challenge/internal/config"
	"github.com/pefman/w40k-challenge/internal/sim"
	"github.com/pefman/w40k-challenge/internal/stats"
)

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := cfg.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	book, err := cfg.Catalog(log)
	if err != nil {
		return fmt.Errorf("load catalogue: %w", err)
	}
	runner := sim.NewRunner(book,
		sim.WithLogger(log.Named("sim")),
		sim.WithSims(cfg.SimsPerGambit),
		sim.WithWorkers(cfg.SimWorkers),
		sim.WithSeed(cfg.SimSeed),
	)
	srv := api.NewServer(book, runner, stats.New(), api.WithLogger(log.Named("api")))
	defer srv.Close()

	hs := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	log.Info("listening", zap.String("addr", hs.Addr), zap.String("version", buildVersion),
		zap.String("built", buildTime), zap.Int("characters", len(book.Characters())))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
