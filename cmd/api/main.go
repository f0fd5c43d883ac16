package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"farmapos.dev/internal/config"
	"farmapos.dev/internal/httpapi"
	"farmapos.dev/internal/obs"
	"farmapos.dev/internal/ratelimit"
	"farmapos.dev/internal/session"
	"farmapos.dev/internal/token"
)

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Database is optional: without it the API still authenticates tokens
	// issued elsewhere, but login and refresh are disabled.
	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	codec, err := token.NewCodec(cfg.JWT.Secret, cfg.JWT.AccessTTL)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	limiter := ratelimit.NewRegistry(
		ratelimit.WithSweepInterval(cfg.RateLimit.SweepInterval),
		ratelimit.WithIdleThreshold(cfg.RateLimit.IdleThreshold),
		ratelimit.WithSweepObserver(obs.SetActiveBuckets),
	)
	defer limiter.Close()

	var stats ratelimit.StatsRecorder
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		stats = ratelimit.NewRedisStats(rdb)
	}

	var sessions *session.Service
	if db != nil {
		sessions, err = session.NewService(session.NewPGStore(db), codec,
			session.WithRefreshTTL(cfg.JWT.RefreshTTL))
		if err != nil {
			log.Fatalf("session service: %v", err)
		}
	}

	api := httpapi.New(httpapi.Options{
		Codec:             codec,
		Limiter:           limiter,
		Sessions:          sessions,
		Stats:             stats,
		Ready:             httpapi.ReadyProbe{DB: db},
		Version:           cfg.Version,
		ThrottlePerSecond: cfg.Throttle.PerSecond,
		ThrottleBurst:     cfg.Throttle.Burst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting farmapos-api %s on %s", cfg.Version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
