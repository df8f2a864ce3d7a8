// Сервер карт лояльности: HTTP API, синхронизация, realtime и покупки
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	api "github.com/glkeru/loyalty/stamps/internal/api"
	conf "github.com/glkeru/loyalty/stamps/internal/config"
	db "github.com/glkeru/loyalty/stamps/internal/db"
	back "github.com/glkeru/loyalty/stamps/internal/external/backend"
	kafka "github.com/glkeru/loyalty/stamps/internal/external/kafka"
	rabbit "github.com/glkeru/loyalty/stamps/internal/external/rabbitmq"
	interf "github.com/glkeru/loyalty/stamps/internal/interfaces"
	logs "github.com/glkeru/loyalty/stamps/internal/logger"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	services "github.com/glkeru/loyalty/stamps/internal/services"
	sess "github.com/glkeru/loyalty/stamps/internal/session"
	tracing "github.com/glkeru/loyalty/stamps/observability/otel"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	// config
	cfg, err := conf.Load()
	if err != nil {
		panic(err)
	}

	// log
	logger, err := logs.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// tracing
	shutdownTracer, err := tracing.InitTracer(ctx, cfg.OtelEndpoint, logger)
	if err != nil {
		logger.Error("tracer init", zap.Error(err))
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	// local store
	local, closeLocal, err := db.OpenLocal(cfg, logger)
	if err != nil {
		logger.Error(err.Error())
		panic(err)
	}
	defer closeLocal()

	// remote store
	remote, err := db.NewRemoteDB(ctx, cfg.Remote, logger)
	if err != nil {
		logger.Error(err.Error())
		panic(err)
	}
	defer remote.Close()
	if err := remote.Migrate(ctx); err != nil {
		// без сети работаем локально, очередь дождется соединения
		logger.Warn("remote store is not reachable", zap.Error(err))
	}

	// services
	sessions := sess.NewProvider(cfg.JWTSecret, logger)
	outbox := services.NewOutbox()
	engine := services.NewStampsEngine(local, outbox, logger)
	rec := services.NewReconciler(remote, local, sessions, logger)
	worker := services.NewWorker(outbox, rec, sessions, logger, cfg.OutboxMaxTries, cfg.OutboxInterval)
	controller := services.NewSessionController(engine, rec, local, sessions, logger)

	catalog, err := services.ParseCatalog(cfg.Catalog)
	if err != nil {
		logger.Error("catalog", zap.Error(err))
	}
	var validator interf.PurchaseValidator
	if backend, err := back.NewBackend(cfg.BackendURL); err != nil {
		logger.Warn("purchase validation disabled", zap.Error(err))
	} else {
		validator = backend
	}
	billing := services.NewBilling(catalog, validator, engine, logger)

	wg := &sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		controller.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// realtime
	var bridge *services.RealtimeBridge
	if cfg.Kafka.Brokers != "" {
		source, err := kafka.NewKafkaRedemptions(cfg.Kafka, logger)
		if err != nil {
			logger.Error(err.Error())
		} else {
			bridge = services.NewRealtimeBridge(source, engine, logger)
			wg.Add(1)
			go func() {
				defer wg.Done()
				bridge.Run(ctx)
			}()
		}
	}

	// подтверждения покупок
	if cfg.Rabbit.URL != "" {
		reader, err := rabbit.NewRabbitPurchases(cfg.Rabbit)
		if err != nil {
			logger.Error(err.Error())
		} else {
			defer reader.Close()
			wg.Add(cfg.PurchaseWorkers)
			for i := 0; i < cfg.PurchaseWorkers; i++ {
				go purchaseWorker(ctx, billing, wg, logger, reader.Msg, reader)
			}
		}
	}

	// api handlers
	r := api.NewHandler(engine, billing, sessions, logger)
	srv := &http.Server{
		Handler:      otelhttp.NewHandler(r, "stamps"),
		Addr:         ":" + cfg.HTTPPort,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", zap.Error(err))
		}
	}()

	// shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	timeout, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(timeout); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	cancel()
	if bridge != nil {
		bridge.Stop()
	}
	wg.Wait()

	// последняя попытка доставить очередь
	if n := worker.Drain(timeout); n > 0 {
		logger.Info("outbox drained on shutdown", zap.Int("delivered", n))
	}
}

// очередь подтверждений покупок
type purchaseQueue interface {
	Processed(ctx context.Context, productID string, plan model.PlanID, success bool) error
}

// worker for rabbitmq messages
func purchaseWorker(ctx context.Context, billing *services.Billing, wg *sync.WaitGroup, logger *zap.Logger, msgs <-chan amqp.Delivery, queue purchaseQueue) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			purchase, err := rabbit.DecodePurchase(msg.Body)
			if err != nil {
				logger.Error("purchase message", zap.Error(err))
				continue
			}
			plan, err := billing.Confirm(ctx, purchase)
			if err != nil {
				logger.Error(err.Error())
				if err := queue.Processed(ctx, purchase.ProductID, "", false); err != nil {
					logger.Error("confirm publish", zap.String("product", purchase.ProductID), zap.Error(err))
				}
				continue
			}
			if err := queue.Processed(ctx, purchase.ProductID, plan, true); err != nil {
				logger.Error("confirm publish", zap.String("product", purchase.ProductID), zap.Error(err))
			}
		}
	}
}
