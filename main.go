////////////////////////////////////////////////////////////////////////////////
// Pooled Fund: a member governed investment fund run by a board of directors
////////////////////////////////////////////////////////////////////////////////

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pooled_fund/contract/board"
	"pooled_fund/contract/fund"
	"pooled_fund/contract/state"
	"pooled_fund/internal/config"
	"pooled_fund/sdk"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", "error", err)
		}
	}()

	if !cfg.Debug {
		// custody, prices and the registry come from the host chain
		return errors.New("no host collaborators available, set debug: true to run standalone")
	}
	params, err := cfg.FundParameters()
	if err != nil {
		return err
	}
	approved, err := cfg.ApprovedTokenAddresses()
	if err != nil {
		return err
	}
	directors, err := cfg.DirectorAddresses()
	if err != nil {
		return err
	}
	custody, directory := debugCollaborators(params)
	reg := prometheus.NewRegistry()

	f, err := fund.New(fund.Config{
		Store:          store,
		Custody:        custody,
		Directory:      directory,
		Clock:          sdk.SystemClock{},
		Parameters:     params,
		ApprovedTokens: approved,
	}, fund.WithLogger(logger.With("component", "fund")), fund.WithPromRegistry(reg))
	if err != nil {
		return fmt.Errorf("fund: %w", err)
	}
	b, err := board.New(board.Config{
		Store:          store,
		Clock:          sdk.SystemClock{},
		Fund:           f,
		Address:        params.Owner,
		Directors:      directors,
		MotionDuration: cfg.MotionDuration,
	}, board.WithLogger(logger.With("component", "board")), board.WithPromRegistry(reg))
	if err != nil {
		return fmt.Errorf("board: %w", err)
	}
	n, err := b.NumDirectors()
	if err != nil {
		return fmt.Errorf("board: %w", err)
	}
	logger.Info("fund ready", "name", params.Name, "fund", params.Address.Hex(), "board", params.Owner.Hex(), "directors", n)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.MetricsAddr == "" {
		<-ctx.Done()
		logger.Info("signal received, shutting down")
		return nil
	}
	return serveMetrics(ctx, cfg.MetricsAddr, reg, logger)
}

func openStore(cfg *config.Config, logger *slog.Logger) (state.Store, error) {
	switch cfg.Store {
	case config.StoreBadger:
		return state.NewBadgerStore(state.WithDataDir(cfg.DataDir), state.WithLogger(logger.With("component", "badger")))
	case config.StoreFile:
		path := cfg.SnapshotFile
		if !filepath.IsAbs(path) && cfg.DataDir != "" {
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
			path = filepath.Join(cfg.DataDir, path)
		}
		return state.NewFileBackedStore(path)
	default:
		return state.NewMemoryStore(), nil
	}
}

// debugCollaborators wires the in-memory custody, ticker and registry at the
// configured addresses.
func debugCollaborators(p fund.Parameters) (*sdk.MockCustody, *sdk.MockDirectory) {
	custody := sdk.NewMockCustody()
	directory := sdk.NewMockDirectory()
	directory.AddTicker(p.Ticker, sdk.NewMockTicker(p.Ticker, sdk.SystemClock{}))
	directory.AddRegistry(p.Registry, sdk.NewMockRegistry(p.DenominationToken, new(uint256.Int)))
	return custody, directory
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving prometheus metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("metrics listener: %w", err)
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
