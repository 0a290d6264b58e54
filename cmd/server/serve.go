package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tounfite-souk/app/internal/config"
	"github.com/tounfite-souk/app/internal/database"
	"github.com/tounfite-souk/app/internal/handlers"
	"github.com/tounfite-souk/app/internal/mailer"
	"github.com/tounfite-souk/app/internal/ratelimit"
	"github.com/tounfite-souk/app/internal/session"
	"github.com/tounfite-souk/app/internal/tokens"
	"github.com/tounfite-souk/app/internal/uploads"
	"github.com/tounfite-souk/app/web"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the database and start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SecretKey == config.Default().SecretKey {
		logger.Warn("using the built-in development secret; set SECRET_KEY in production")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close(db)
	if err := database.Migrate(ctx, db, logger); err != nil {
		return err
	}

	if err := handlers.LoadTemplates(web.Templates()); err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	store, err := newUploadStorage(ctx, cfg)
	if err != nil {
		return err
	}
	sessions, closeSessions, err := newSessionManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	signer, err := tokens.NewSigner(cfg.SecretKey, tokens.EmailVerifySalt)
	if err != nil {
		return err
	}

	env := &handlers.Env{
		DB:           db,
		Sessions:     sessions,
		Uploads:      store,
		Mailer:       mailer.New(cfg.Mail.APIKey, cfg.Mail.DefaultSender, logger),
		Tokens:       signer,
		LoginLimiter: ratelimit.New(cfg.Login.RatePerMin, cfg.Login.Burst),
		Logger:       logger,
		BaseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		DefaultLang:  cfg.DefaultLang,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.NewRouter(env),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", cfg.Addr),
			zap.String("uploads", cfg.Uploads.Backend), zap.String("sessions", cfg.Sessions.Backend))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newUploadStorage(ctx context.Context, cfg *config.Config) (uploads.Storage, error) {
	if cfg.Uploads.Backend == "s3" {
		s3cfg := cfg.Uploads.S3
		return uploads.NewS3Storage(ctx, uploads.S3Config{
			Bucket:    s3cfg.Bucket,
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
		})
	}
	return uploads.NewDiskStorage(cfg.Uploads.Dir)
}

func newSessionManager(ctx context.Context, cfg *config.Config) (*session.Manager, func(), error) {
	if cfg.Sessions.Backend == "redis" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		store, err := session.NewRedisStore(pingCtx, cfg.Sessions.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return session.NewManager(store, cfg.SecureCookies), func() { _ = store.Close() }, nil
	}
	return session.NewManager(session.NewMemoryStore(), cfg.SecureCookies), func() {}, nil
}
