package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"savings/internal/backend"
	"savings/internal/cli"
	"savings/internal/config"
	apphttp "savings/internal/http"
	"savings/internal/log"
	"savings/internal/market"
	"savings/internal/session"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.MustBootstrap("savings")
	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	ready := map[string]apphttp.ReadyCheck{}
	if res.Ready != nil {
		ready["store"] = apphttp.ReadyCheck(res.Ready)
	}

	verifier, err := session.NewJWTVerifier(session.JWTConfig{
		Secret:   cfg.AuthJWTSecret,
		Issuer:   cfg.AuthJWTIssuer,
		Audience: cfg.AuthJWTAudience,
	})
	if err != nil {
		return fmt.Errorf("AUTH_JWT_SECRET: %w", err)
	}

	tokens, closeTokens, err := tokenStore(cfg, logger, ready)
	if err != nil {
		return err
	}
	defer closeTokens()

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SessionTTL:         cfg.SessionTTL,
		RemoteTimeout:      cfg.RemoteTimeout,
	}, apphttp.Deps{
		Store:    res.Store,
		Tokens:   tokens,
		Verifier: verifier,
		Market:   market.NewCachedProvider(market.NewStaticProvider(market.DefaultSnapshot()), 5*time.Minute),
		Logger:   logger,
		Ready:    ready,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting savings server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"sessions", cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})
	return g.Wait()
}

// tokenStore picks the session token store and registers its readiness check.
func tokenStore(cfg *config.Config, logger *log.Logger, ready map[string]apphttp.ReadyCheck) (session.TokenStore, func(), error) {
	if cfg.SessionBackend != "redis" {
		logger.Info("Using in-memory session tokens")
		return session.NewMemoryTokenStore(cfg.SessionTTL), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
	tokens := session.NewRedisTokenStore(client, cfg.SessionTTL)
	ready["redis"] = tokens.Ping
	logger.Info("Using Redis session tokens", "address", cfg.RedisAddress)
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Redis close failed", log.FieldError, err)
		}
	}
	return tokens, closeFn, nil
}
