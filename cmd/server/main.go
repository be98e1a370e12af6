package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huangzx96/llm-workbench/internal/chat"
	"github.com/huangzx96/llm-workbench/internal/config"
	"github.com/huangzx96/llm-workbench/internal/db"
	"github.com/huangzx96/llm-workbench/internal/httpapi"
	"github.com/huangzx96/llm-workbench/internal/identity"
	"github.com/huangzx96/llm-workbench/internal/logger"
	"github.com/huangzx96/llm-workbench/internal/rag"
	"github.com/huangzx96/llm-workbench/internal/store/memcache"
	"github.com/huangzx96/llm-workbench/internal/store/rabbitmq"
	"github.com/huangzx96/llm-workbench/internal/store/redisstore"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.LogFile, cfg.LogProd)
	defer func() { _ = log.Sync() }()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := gdb.AutoMigrate(
		&identity.User{},
		&chat.Session{},
		&chat.Message{},
		&chat.Job{},
	); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := identity.Seed(ctx, identity.NewRepo(gdb)); err != nil {
		log.Fatal("seed users failed", zap.Error(err))
	}

	// Redis when configured, otherwise the in-process cache.
	var cache rag.ResultCache
	if cfg.RedisAddr != "" {
		rds, err := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("redis unavailable, using in-process cache", zap.Error(err))
		} else {
			defer func() { _ = rds.Close() }()
			cache = rds
		}
	}
	if cache == nil {
		cache = memcache.New(cfg.RAGCacheTTL)
	}

	// Async chat degrades to unavailable when the broker is down.
	var rabbit *rabbitmq.Publisher
	if pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		log.Warn("rabbitmq unavailable, async chat disabled", zap.Error(err))
	} else {
		rabbit = pub
		defer func() { _ = rabbit.Close() }()
	}

	r := httpapi.NewRouter(gdb, cfg, log, cache, rabbit)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Info("server started", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}
