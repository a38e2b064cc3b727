package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legal-clinic/internal/audit"
	"legal-clinic/internal/auth"
	"legal-clinic/internal/config"
	"legal-clinic/internal/httpapi"
	"legal-clinic/internal/intake"
	"legal-clinic/internal/metrics"
	"legal-clinic/internal/reporting"
	"legal-clinic/internal/sectors"
	"legal-clinic/internal/socialwork"
	"legal-clinic/internal/store"
	"legal-clinic/pkg/logger"
	"legal-clinic/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	pg := store.NewPostgresStore(db)
	if err := pg.EnsureSchema(rootCtx); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	var locker store.SeriesLocker = store.NoLock{}
	if cfg.Redis.Enabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		locker = store.NewRedisSeriesLock(rdb, "", 0)
		log.Info("redis series lock enabled", "addr", cfg.RedisAddr())
	}

	m := metrics.New("clinic-api")
	au := audit.NewService(nil)
	loc := cfg.Clinic.Location()

	h := httpapi.Handlers{
		Auth: authManager,
		Intake: intake.NewService(pg, au, intake.Options{
			Locker:   locker,
			Metrics:  m,
			Location: loc,
			HomeCity: cfg.Clinic.HomeCity,
		}),
		SocialWork: socialwork.NewService(pg, au, socialwork.Options{
			Locker:   locker,
			Metrics:  m,
			Location: loc,
		}),
		Sectors: sectors.NewService(pg, au),
		Reports: reporting.NewService(reporting.NewStoreRepo(pg), loc),
		Ping: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		},
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(m.Middleware())

	registerRoutes(r, h, routeOptions{
		DevTokens: cfg.App.Env == "local" || cfg.App.Env == "dev",
		Metrics:   m,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "home_city", cfg.Clinic.HomeCity, "tz", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
