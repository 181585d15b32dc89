package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/marrakech-go/internal/archive"
	"github.com/kapu/marrakech-go/internal/board"
	appcfg "github.com/kapu/marrakech-go/internal/config"
	"github.com/kapu/marrakech-go/internal/conntrack"
	"github.com/kapu/marrakech-go/internal/engine"
	"github.com/kapu/marrakech-go/internal/live"
	"github.com/kapu/marrakech-go/internal/obslog"
	"github.com/kapu/marrakech-go/internal/rules"
	"github.com/kapu/marrakech-go/internal/server"
	"github.com/kapu/marrakech-go/internal/session"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	r, err := rules.Load(cfg.RulesPath)
	if err != nil {
		obslog.L().Fatal("rules load error", zap.Error(err))
	}
	brd, err := board.New(r.BoardSize)
	if err != nil {
		obslog.L().Fatal("board init error", zap.Error(err))
	}

	// Session store: Redis when configured, in-memory only otherwise.
	var store session.Store = session.NopStore{}
	var redisStore *session.RedisStore
	if cfg.RedisURL != "" {
		redisStore, err = session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			obslog.L().Fatal("redis store init error", zap.Error(err))
		}
		store = redisStore
	}

	reg := session.NewRegistry(store, r.MaxPlayers)
	hub := live.NewHub()
	eng := engine.New(reg, brd, r, hub)

	// Finished-game archive: optional Postgres repository.
	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			obslog.L().Fatal("archive init error", zap.Error(err))
		}
		eng.AttachArchiver(repo)
	}

	track := conntrack.New(eng, r.Grace())

	api := server.NewAPI(eng, reg)
	feed := server.NewFeed(hub, eng, reg, track)

	go func() {
		obslog.L().Info("api_listen", zap.String("addr", cfg.APIAddr))
		if err := api.ListenAndServe(cfg.APIAddr); err != nil {
			obslog.L().Fatal("api server error", zap.Error(err))
		}
	}()
	go func() {
		obslog.L().Info("feed_listen", zap.String("addr", cfg.WSAddr))
		if err := feed.ListenAndServe(cfg.WSAddr); err != nil {
			obslog.L().Fatal("feed server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	obslog.L().Info("shutdown_start")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	_ = api.Shutdown()
	_ = feed.Shutdown(ctx)
	track.Close()
	if redisStore != nil {
		_ = redisStore.Close()
	}
	_ = repo.Close()
	obslog.L().Info("shutdown_done")
}
