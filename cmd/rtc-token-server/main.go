package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexjbarnes/rtc-token/internal/auth"
	"github.com/alexjbarnes/rtc-token/internal/config"
	"github.com/alexjbarnes/rtc-token/internal/ledger"
	"github.com/alexjbarnes/rtc-token/internal/logging"
	"github.com/alexjbarnes/rtc-token/internal/rtctoken"
	"github.com/alexjbarnes/rtc-token/internal/server"
	"golang.org/x/sync/errgroup"
)

var Version = "dev"

func main() {
	// Handle hash-password subcommand before config loading.
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		hashPassword()
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func hashPassword() {
	fmt.Fprint(os.Stderr, "Enter client secret: ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		fmt.Fprintln(os.Stderr, "no input")
		os.Exit(1)
	}
	hash, err := auth.HashSecret(scanner.Text())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	clients, err := cfg.ParseClients()
	if err != nil {
		return fmt.Errorf("parsing token clients: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	logger.Info("rtc-token starting",
		slog.String("version", Version),
		slog.String("listen", cfg.ListenAddr),
		slog.String("role", cfg.Role().String()),
		slog.Duration("token_ttl", cfg.TokenTTL),
		slog.Int("clients", len(clients)),
	)

	if !cfg.CredentialsConfigured() {
		logger.Warn("AGORA_APP_ID or AGORA_APP_CERTIFICATE not set, token requests will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	muxCfg := server.MuxConfig{
		AppID:          cfg.AppID,
		AppCertificate: cfg.AppCertificate,
		TokenTTL:       cfg.TokenTTL,
		Role:           cfg.Role(),
		Builder:        rtctoken.NewBuilder(logger),
		Clients:        clients,
		AllowedOrigins: cfg.Origins(),
		Logger:         logger,
	}

	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return fmt.Errorf("opening ledger: %w", err)
		}
		defer l.Close()

		logger.Info("issuance ledger enabled",
			slog.String("path", cfg.LedgerPath),
			slog.Duration("retention", cfg.LedgerRetention),
		)

		muxCfg.Issuances = l

		g.Go(func() error {
			return l.RunPruner(gctx, cfg.LedgerRetention, logger)
		})
	}

	g.Go(func() error {
		return serve(gctx, cfg.ListenAddr, server.NewMux(muxCfg), logger)
	})

	return g.Wait()
}

// serve runs the HTTP server until ctx is cancelled.
func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting HTTP server", slog.String("listen", addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	return nil
}
