// Job - разовая синхронизация: вход по токену, pull и слияние в локальное хранилище
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	conf "github.com/glkeru/loyalty/stamps/internal/config"
	db "github.com/glkeru/loyalty/stamps/internal/db"
	logs "github.com/glkeru/loyalty/stamps/internal/logger"
	services "github.com/glkeru/loyalty/stamps/internal/services"
	sess "github.com/glkeru/loyalty/stamps/internal/session"
	"go.uber.org/zap"
)

func main() {
	// config
	cfg, err := conf.Load()
	if err != nil {
		panic(err)
	}
	token := os.Getenv("STAMPS_TOKEN")
	if token == "" {
		panic("env STAMPS_TOKEN is not set")
	}

	// log
	logger, err := logs.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
		<-interrupt
		cancel()
	}()

	// local store
	local, closeLocal, err := db.OpenLocal(cfg, logger)
	if err != nil {
		panic(err)
	}
	defer closeLocal()

	// remote store
	remote, err := db.NewRemoteDB(ctx, cfg.Remote, logger)
	if err != nil {
		panic(err)
	}
	defer remote.Close()

	sessions := sess.NewProvider(cfg.JWTSecret, logger)
	identity, err := sessions.SignIn(token)
	if err != nil {
		logger.Error("sign in", zap.Error(err))
		os.Exit(1)
	}

	engine := services.NewStampsEngine(local, nil, logger)
	rec := services.NewReconciler(remote, local, sessions, logger)
	controller := services.NewSessionController(engine, rec, local, sessions, logger)

	if err := controller.Switch(ctx, identity); err != nil {
		logger.Error("sync failed", zap.Error(err))
		os.Exit(1)
	}

	s := engine.Snapshot()
	logger.Info("sync done",
		zap.String("plan", string(s.Plan)),
		zap.Int("programs", len(s.Programs)),
		zap.Int("customers", len(s.Customers)),
		zap.Int("redemptions", len(s.Redemptions)),
	)
}
