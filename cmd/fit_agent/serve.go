package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/fit-agent/internal/server"
)

var (
	servePort      int
	serveKeepAlive time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that exposes POST /assess/stream (Server-Sent Events),
POST /assess, GET /breakers, GET /health and POST /token.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().DurationVar(&serveKeepAlive, "keep-alive", 15*time.Second, "Interval of SSE keep-alive comments on idle streams; 0 disables them")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	log, err := newLogger(cfg, false)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.New(a.orchestrator, server.Options{
		Server:    cfg.Server,
		Auth:      cfg.Auth,
		RateLimit: cfg.RateLimit,
		Breakers:  a.breakers,
		Logger:    log,
		KeepAlive: serveKeepAlive,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run(ctx)
}
