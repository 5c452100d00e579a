package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/unilove/ridersync/internal/app"
	"github.com/unilove/ridersync/internal/cli"
	"github.com/unilove/ridersync/internal/config"
	"github.com/unilove/ridersync/internal/gateway"
	"github.com/unilove/ridersync/internal/store"
	"github.com/unilove/ridersync/internal/vault"
)

func main() {
	root := cli.NewRootCommand(buildApp)
	if err := root.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		}
		os.Exit(cli.GetExitCode(err))
	}
}

// buildApp assembles the device-local application: config file, SQLite
// order cache, encrypted credential vault, and the HTTP gateway.
func buildApp(opts *cli.RootOptions) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data dir: %w", err)
	}

	st, err := store.Open(filepath.Join(dataDir, "cache.db"))
	if err != nil {
		return nil, nil, err
	}
	v, err := vault.Open(dataDir)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	var clientOpts []gateway.ClientOption
	if cfg.ConnectTimeout() > 0 || cfg.RequestTimeout() > 0 {
		connect, request := cfg.ConnectTimeout(), cfg.RequestTimeout()
		if connect <= 0 {
			connect = gateway.DefaultConnectTimeout
		}
		if request <= 0 {
			request = gateway.DefaultRequestTimeout
		}
		clientOpts = append(clientOpts, gateway.WithTimeouts(connect, request))
	}
	if cfg.FallbackHost != "" && cfg.FallbackIP != "" {
		clientOpts = append(clientOpts, gateway.WithDNSFallback(cfg.FallbackHost, cfg.FallbackIP))
	}
	gw := gateway.NewRegistry(clientOpts...).Client(cfg.BaseURL)

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	a := app.New(cfg, gw, st, v, logger)
	return a, func() { st.Close() }, nil
}
