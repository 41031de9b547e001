package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cppla/fitquest/config"
	"github.com/cppla/fitquest/controllers"
	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/routes"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/utils"
	"github.com/cppla/fitquest/workers"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)

	if cfg.SeedChallenges {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := store.SeedChallenges(ctx, db)
		cancel()
		if err != nil {
			utils.Sugar.Fatalf("seed challenges: %v", err)
		}
		if n > 0 {
			utils.Sugar.Infof("seeded %d challenges", n)
		}
	}

	var reg *prometheus.Registry
	if cfg.MetricsEnabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	// Serialise per-pair writes across instances when redis is on
	locker := utils.NewRedisLocker(utils.GetRedis(), 5*time.Second)
	deps := routes.NewDeps(db, reg,
		engine.WithLogger(utils.Logger.Named("engine")),
		engine.WithLocker(locker),
		engine.WithMaxRetries(cfg.ProgressMaxRetries),
	)
	deps.Feed.OnPublish = func(communityID uint) {
		utils.InvalidateByPrefix(controllers.FeedCachePrefix(communityID))
	}

	worker := workers.NewFeedRetryWorker(deps.Outbox, deps.Feed, utils.Logger,
		time.Duration(cfg.FeedRetryIntervalSec)*time.Second, cfg.FeedRetryMaxAttempts)
	if err := worker.Start(); err != nil {
		utils.Sugar.Fatalf("start feed retry worker: %v", err)
	}

	r := routes.SetupRouter(deps)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	err := utils.GraceServer(":"+cfg.AppPort, r, worker.Stop, utils.CloseRedis)
	if err != nil {
		utils.Logger.Fatal("server stopped with error", zap.Error(err))
	}
}
