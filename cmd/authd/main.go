package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/castellan/auth"
	"github.com/castellan/auth/mailer"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := auth.MustLoadConfig(configPath)

	lgr := setupLogger(cfg.Env)
	lgr.Info("starting auth service", "env", cfg.Env)

	db, err := setupDB(cfg.DB.URL)
	if err != nil {
		log.Fatalf("failed to set up database: %v", err)
	}
	defer db.Close()

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	logger := slogAdapter{lgr}

	tokens := auth.NewTokenService(
		[]byte(cfg.Auth.SigningKey),
		cfg.Auth.TokenTTL,
		cfg.Auth.Issuer,
		logger,
	)

	auther := auth.NewAuthenticator(repo, tokens, logger)

	sender, err := mailer.New(mailer.Config{
		Host:       cfg.Mail.Host,
		User:       cfg.Mail.User,
		Password:   cfg.Mail.Password,
		From:       cfg.Mail.From,
		Name:       cfg.Mail.Name,
		BaseURL:    cfg.Mail.BaseURL,
		SkipVerify: cfg.Mail.SkipVerify,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("failed to set up mailer: %v", err)
	}

	controller := auth.NewAuthController(
		auth.WithLogger(logger),
		auth.WithRepositoryManager(repo),
		auth.WithAuthenticator(auther),
		auth.WithSender(sender),
		auth.WithAdminEmails(cfg.Auth.AdminEmails),
		auth.WithResetTokenTTL(cfg.Auth.ResetTokenTTL),
	)

	app := auth.NewRouter(controller, tokens, repo.Users())

	go func() {
		lgr.Info("listening", "address", cfg.HTTPServer.Address)
		if err := app.Listen(cfg.HTTPServer.Address); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	lgr.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		lgr.Error("shutdown failed", "error", err)
	}
}

func setupDB(url string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, url)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(context.Background())
	if err != nil {
		return nil, err
	}

	return db, nil
}

func setupLogger(env string) *slog.Logger {
	var lgr *slog.Logger

	switch env {
	case envLocal:
		lgr = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		lgr = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		lgr = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		lgr = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return lgr
}

// slogAdapter bridges *slog.Logger to the auth.Logger interface.
type slogAdapter struct {
	lgr *slog.Logger
}

func (s slogAdapter) Debug(msg string, args ...any) { s.lgr.Debug(msg, args...) }
func (s slogAdapter) Info(msg string, args ...any)  { s.lgr.Info(msg, args...) }
func (s slogAdapter) Warn(msg string, args ...any)  { s.lgr.Warn(msg, args...) }
func (s slogAdapter) Error(msg string, args ...any) { s.lgr.Error(msg, args...) }
