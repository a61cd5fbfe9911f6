// Command railsight-server runs the auth gateway and inspection API over an
// in-memory store, or Redis when an address is configured.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	railsight "github.com/railsight/railsight"
	"github.com/railsight/railsight/httpapi"
	"github.com/railsight/railsight/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "railsight-server",
		Short:         "Railsight auth gateway and inspection API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServerConfig(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return root
}

func runServe(ctx context.Context, cfg serverConfig) error {
	log := newLogger(cfg.LogLevel)

	st, cleanup, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	gateway, closeGateway, err := buildGateway(cfg, st, log)
	if err != nil {
		return err
	}
	defer closeGateway()

	handler, err := httpapi.NewHandler(log, gateway, st)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server.listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func openStore(ctx context.Context, cfg serverConfig, log *slog.Logger) (store.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("store.memory")
		return store.NewMemory(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("store.redis", "addr", cfg.RedisAddr)
	return store.NewRedis(rdb, "rs"), func() { _ = rdb.Close() }, nil
}

func buildGateway(cfg serverConfig, st store.Store, log *slog.Logger) (*railsight.Gateway, func(), error) {
	gwCfg := railsight.DefaultConfig()
	gwCfg.JWT.AccessTTL = cfg.TokenTTL
	gwCfg.JWT.SecretKey = []byte(cfg.JWTSecret)
	if cfg.CredentialMode == "verify" {
		gwCfg.Credentials.Mode = railsight.CredentialVerify
	}

	builder := railsight.New().WithConfig(gwCfg).WithDirectory(st)

	closeSink := func() {}
	if cfg.AuditLog != "" {
		gwCfg.Audit.Enabled = true
		builder.WithConfig(gwCfg)

		switch cfg.AuditLog {
		case "stderr":
			builder.WithAuditSink(railsight.NewJSONWriterSink(os.Stderr))
		default:
			f, err := os.OpenFile(cfg.AuditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return nil, nil, fmt.Errorf("open audit log: %w", err)
			}
			builder.WithAuditSink(railsight.NewJSONWriterSink(f))
			closeSink = func() { _ = f.Close() }
		}
	}

	gateway, err := builder.Build()
	if err != nil {
		closeSink()
		return nil, nil, err
	}

	log.Info("gateway.ready", "ttl", cfg.TokenTTL, "mode", cfg.CredentialMode)
	return gateway, func() {
		gateway.Close()
		closeSink()
	}, nil
}
