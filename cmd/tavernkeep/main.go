package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rollforge/tavernkeep/pkg/account"
	"github.com/rollforge/tavernkeep/pkg/auth"
	"github.com/rollforge/tavernkeep/pkg/clock"
	"github.com/rollforge/tavernkeep/pkg/config"
	"github.com/rollforge/tavernkeep/pkg/credentials"
	"github.com/rollforge/tavernkeep/pkg/mailqueue"
	"github.com/rollforge/tavernkeep/pkg/notification"
	"github.com/rollforge/tavernkeep/pkg/settings"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
)

type Config struct {
	DatabaseConfig config.DatabaseConfig
	EmailConfig    config.EmailConfig
	JWTConfig      config.JWTConfig
	WorkerConfig   config.WorkerConfig
	AppConfig      app.AppConfig
}

func main() {
	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	dbConfig := cfg.DatabaseConfig.ToDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	clk := clock.UTC()
	hasher := credentials.NewPbkdf2Hasher()

	settingsService := settings.NewService(settings.NewPostgresRepository(pool))
	queueRepo := mailqueue.NewPostgresRepository(pool)

	accountService := account.NewService(account.NewPostgresRepository(pool), settingsService, hasher, clk, queueRepo)
	accountHandle := account.NewHandle(accountService)

	tokens := auth.NewTokenGenerator(cfg.JWTConfig.Secret, cfg.JWTConfig.Issuer, cfg.JWTConfig.Audience, clk)
	authService := auth.NewService(accountService, settingsService, hasher, tokens)
	authHandle := auth.NewHandle(authService)

	settingsHandle := settings.NewHandle(settingsService)

	accountHandle.RegisterRoutes(server.R)
	authHandle.RegisterRoutes(server.R)

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWTConfig.Secret), nil)
	server.R.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Use(auth.AdminOnly)

		r.Route("/admin", func(r chi.Router) {
			accountHandle.RegisterAdminRoutes(r)
			settingsHandle.RegisterRoutes(r)
		})
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	if cfg.WorkerConfig.Enabled {
		notifier, err := notification.NewEmailNotifier(cfg.EmailConfig.ToSMTPConfig())
		if err != nil {
			slog.Error("Failed creating email notifier", "err", err)
			os.Exit(-1)
		}

		worker := mailqueue.NewWorker(queueRepo, settingsService, notifier, clk,
			mailqueue.WithInterval(cfg.WorkerConfig.Interval()))
		go func() {
			if err := worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
				slog.Error("Email worker stopped", "err", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		stopWorker()
	}()

	server.Run()
}
