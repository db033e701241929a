package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"

	"reminder-engine/internal/config"
	"reminder-engine/internal/handler"
	"reminder-engine/internal/localstore"
	"reminder-engine/internal/logger"
	"reminder-engine/internal/middleware"
	"reminder-engine/internal/push"
	"reminder-engine/internal/reminder"
	"reminder-engine/internal/rpc"
	"reminder-engine/internal/stats"
	"reminder-engine/internal/store"
)

type engineStore interface {
	reminder.Store
	handler.SubscriptionStore
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	log := logger.Get()
	gin.SetMode(gin.ReleaseMode)

	if cfg.CronSecret == "" {
		log.Warn("CRON_SECRET is not set, every invocation will be rejected")
	}

	ctx := context.Background()
	missing := cfg.Missing()

	var (
		st     engineStore
		engine *reminder.Engine
		rec    *stats.Redis
	)
	if cfg.RedisURL != "" {
		client, err := stats.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("run statistics disabled")
		} else {
			defer client.Close()
			rec = stats.New(client)
			log.Info("connected to redis")
		}
	}

	if len(missing) > 0 {
		log.WithField("missing", missing).Error("configuration incomplete, reminder runs will fail")
	} else {
		switch {
		case localstore.IsDSN(cfg.StoreURL):
			ls, err := localstore.Open(cfg.StoreURL)
			if err != nil {
				log.WithError(err).Fatal("sqlite")
			}
			defer ls.Close()
			st = ls
			log.Info("using sqlite store")
		default:
			pool, err := store.Connect(ctx, cfg.StoreURL, cfg.StoreKey)
			if err != nil {
				log.WithError(err).Fatal("db")
			}
			defer pool.Close()
			log.Info("connected to postgres")

			// run migrations
			if migration, err := os.ReadFile("db/migrations/001_init.sql"); err != nil {
				log.WithError(err).Warn("migration file not found, skipping")
			} else if _, err := pool.Exec(ctx, string(migration)); err != nil {
				log.WithError(err).Warn("migration warning")
			} else {
				log.Info("migration applied")
			}
			st = store.New(pool)
		}

		sender := push.NewSender(push.Options{
			Subscriber:      cfg.Subscriber(),
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		})
		opts := []reminder.Option{reminder.WithLocation(cfg.Location)}
		if rec != nil {
			opts = append(opts, reminder.WithRecorder(rec))
		}
		engine = reminder.New(st, sender, log, opts...)
	}

	hopts := handler.Options{
		Missing:        missing,
		VAPIDPublicKey: cfg.VAPIDPublicKey,
		RunTimeout:     cfg.RunTimeout,
		Logger:         log,
	}
	// typed nils would defeat the handler's nil checks
	if engine != nil {
		hopts.Engine = engine
		hopts.Subscriptions = st
	}
	if rec != nil {
		hopts.Stats = rec
	}
	h := handler.New(hopts)

	rl := middleware.NewRateLimiter(2, 10)
	defer rl.Stop()

	// grpc server
	var runner rpc.Runner
	if engine != nil {
		runner = engine
	}
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.RateLimit(rl),
			middleware.SharedSecret(cfg.CronSecret),
		),
	)
	rpc.Register(srv, rpc.NewServer(runner, missing, cfg.RunTimeout, log))

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.WithError(err).Fatal("listen")
	}
	go func() {
		log.Infof("grpc on :%s", cfg.GRPCPort)
		if err := srv.Serve(lis); err != nil {
			log.WithError(err).Error("grpc")
		}
	}()

	httpSrv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: h.Router(handler.RouterConfig{
			CronSecret:     cfg.CronSecret,
			JWTSecret:      cfg.JWTSecret,
			AllowedOrigins: cfg.AllowedOrigins,
			Limiter:        rl,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("http on :%s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http")
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	srv.GracefulStop()
}
