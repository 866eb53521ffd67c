package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"ioccore/internal/app"
	"ioccore/internal/config"
)

const pollInterval = 2 * time.Second

// loopworker drains the feedback-loop request queue. Real AI collaborators
// are injected by the hosting platform; standalone the worker runs on the
// heuristic built-ins, which is also the degradation behavior under outage.
func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("connect mongodb", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logger.Fatal("ping mongodb", zap.Error(err))
	}
	logger.Info("connected to mongodb")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Fatal("ping redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	application, err := app.New(
		mongoClient.Database(cfg.MongoDB),
		rdb,
		config.DefaultScoringConfig(),
		config.DefaultNormTable(),
		config.DefaultLoopConfig(),
		logger,
	)
	if err != nil {
		logger.Fatal("wire application", zap.Error(err))
	}
	loopRepo := application.LoopRepo
	loops := application.Loops

	logger.Info("loop worker started", zap.Duration("pollInterval", pollInterval))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
		}

		req, err := loopRepo.ClaimNextRequest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error("claim request", zap.Error(err))
			continue
		}
		if req == nil {
			continue
		}

		logger.Info("claimed loop request", zap.String("requestId", req.ID))
		loop, err := loops.Run(ctx, req)
		if err != nil {
			logger.Error("loop run failed", zap.String("requestId", req.ID), zap.Error(err))
		}
		if loop != nil {
			logger.Info("loop finished",
				zap.String("requestId", req.ID),
				zap.String("loopId", loop.ID),
				zap.String("status", string(loop.Status)),
				zap.String("reason", string(loop.Reason)))
		}

		if err := loopRepo.CompleteRequest(context.WithoutCancel(ctx), req.ID); err != nil {
			logger.Error("complete request", zap.String("requestId", req.ID), zap.Error(err))
		}
	}
}
