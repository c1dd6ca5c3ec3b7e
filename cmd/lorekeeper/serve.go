package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lorekeeper/internal/config"
	"lorekeeper/internal/mcp"
	"lorekeeper/internal/metrics"
	"lorekeeper/internal/opshttp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "Log at debug level")
	return cmd
}

func runServe(debug bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadProjectConfig(configFile)
	if err != nil {
		return err
	}

	// stdout carries the MCP protocol; all logging goes to stderr.
	logger, err := newLogger(debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	m := metrics.New()
	engine, err := buildEngine(cfg, db, m, logger)
	if err != nil {
		return err
	}

	var sidecar *opshttp.Server
	if cfg.Metrics.Addr != "" {
		sidecar, err = opshttp.NewServer(m, logger, cfg.Metrics.Addr, version)
		if err != nil {
			return err
		}
		go func() {
			if err := sidecar.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops listener failed", zap.Error(err))
			}
		}()
	}

	logger.Info("starting MCP server",
		zap.String("version", version),
		zap.String("project", cfg.Project),
		zap.String("database", cfg.Database.Backend),
		zap.String("similarity", cfg.Similarity.Backend),
	)

	server := mcp.NewServer(engine, version)
	runErr := server.Run(ctx, &sdk.StdioTransport{})

	if sidecar != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sidecar.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down ops listener", zap.Error(err))
		}
	}

	// A transport error caused by our own shutdown signal is a clean exit.
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
