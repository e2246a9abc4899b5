package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dukerupert/contactbook/internal/avatar"
	"github.com/dukerupert/contactbook/internal/config"
	"github.com/dukerupert/contactbook/internal/database"
	"github.com/dukerupert/contactbook/internal/docstore"
	"github.com/dukerupert/contactbook/internal/email"
	"github.com/dukerupert/contactbook/internal/logging"
	"github.com/dukerupert/contactbook/internal/metrics"
	"github.com/dukerupert/contactbook/internal/server"
	"github.com/dukerupert/contactbook/internal/store"
)

func main() {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.IsProduction())

	stores, closeStores, err := openStores(cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer closeStores()

	srvCfg := server.Config{
		SecretKey:           cfg.SecretKey,
		TokenTTL:            cfg.TokenTTL,
		RequireVerification: cfg.RequireVerification,
		AllowedTLDs:         cfg.AllowedTLDs,
		CORSOrigin:          cfg.CORSOrigin,
		TrustProxy:          cfg.TrustProxy,
		Mailer:              email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL),
		Metrics:             metrics.New(),
	}

	switch cfg.AvatarStorage {
	case "s3":
		srvCfg.Avatars = avatar.NewService(avatar.NewS3Storage(avatar.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
		}))
	default:
		avatarDir := filepath.Join(cfg.PublicDir, "avatars")
		local, err := avatar.NewLocalStorage(avatarDir, "/avatars")
		if err != nil {
			slog.Error("failed to prepare avatar directory", "error", err)
			os.Exit(1)
		}
		srvCfg.Avatars = avatar.NewService(local)
		srvCfg.AvatarDir = avatarDir
	}

	srv := server.New(stores, srvCfg, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(cleanupCtx); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("contactbook starting", "addr", ":"+cfg.Port, "env", cfg.Env, "db", cfg.DBDriver)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func openStores(cfg *config.Config) (server.Stores, func(), error) {
	if cfg.DBDriver == "mongo" {
		client, db, err := docstore.Open(context.Background(), cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return server.Stores{}, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Disconnect(ctx)
		}
		return server.Stores{
			Accounts: docstore.NewAccountStore(db),
			Sessions: docstore.NewSessionStore(db),
			Contacts: docstore.NewContactStore(db),
		}, closeFn, nil
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return server.Stores{}, nil, err
	}
	return server.Stores{
		Accounts: store.NewAccountStore(db),
		Sessions: store.NewSessionStore(db),
		Contacts: store.NewContactStore(db),
	}, func() { db.Close() }, nil
}
