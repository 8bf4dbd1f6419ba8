package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examseat/common/database"
	"examseat/common/logger"
	commonmqtt "examseat/common/mqtt"
	commonredis "examseat/common/redis"
	"examseat/internal/config"
	"examseat/internal/domain"
	httpapi "examseat/internal/http"
	"examseat/internal/metrics"
	"examseat/internal/notify"
	"examseat/internal/repository"
	"examseat/internal/service"
	"examseat/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "examseat")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	// Metrics
	var (
		m              metrics.Collector = metrics.NewNop()
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.NewPrometheus(reg, cfg.Metrics.Namespace)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	checks := map[string]httpapi.HealthCheck{}

	// Storage：数据库不可用时回退到内存存储（重启后数据丢失）
	var (
		db              *sql.DB
		roomsRepo       repository.RoomsRepository
		allocationsRepo repository.AllocationsRepository
	)
	if cfg.DBEnabled {
		driver := database.DriverPostgres
		if cfg.Database.IsSQLite() {
			driver = database.DriverSQLite
		}
		if d, err := database.Open(&cfg.Database); err != nil {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		} else if err := repository.EnsureSchema(context.Background(), d, driver); err != nil {
			log.Warn("Schema bootstrap failed, falling back to memory store", zap.Error(err))
			_ = d.Close()
		} else {
			db = d
			roomsRepo = repository.NewSQLRoomsRepository(db, driver)
			allocationsRepo = repository.NewSQLAllocationsRepository(db, driver)
			checks["database"] = db.PingContext
			log.Info("DB enabled for examseat", zap.String("driver", driver))
		}
	}
	if db == nil {
		roomsRepo = repository.NewMemoryRoomsRepo()
		allocationsRepo = repository.NewMemoryAllocationsRepo()
	}

	// Redis：结果缓存 + 名单事件流（可选）
	var (
		redisClient *redis.Client
		cache       *store.ResultsCache
		stream      *notify.RedisStreamPublisher
		publishers  notify.Multi
	)
	if cfg.Redis.Enabled {
		redisClient = commonredis.NewRedisClient(&cfg.Redis.RedisConfig)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := commonredis.Ping(pingCtx, redisClient); err != nil {
			log.Warn("Redis unreachable at startup, cache misses will fall through to storage", zap.Error(err))
		}
		cancel()
		cache = store.NewResultsCache(store.NewRedisKV(redisClient), cfg.Redis.ResultsKey, cfg.Redis.ResultsTTL)
		stream = notify.NewRedisStreamPublisher(redisClient, cfg.Redis.Stream, cfg.Redis.StreamMaxLen)
		publishers = append(publishers, stream)
		checks["redis"] = func(ctx context.Context) error { return commonredis.Ping(ctx, redisClient) }
	}

	// MQTT：名单变更推送给考场终端（可选）
	var mqttClient *commonmqtt.Client
	if cfg.MQTT.Enabled {
		if c, err := commonmqtt.NewClient(&cfg.MQTT.MQTTConfig, log); err != nil {
			log.Warn("MQTT enabled but connection failed, roster events will not be pushed", zap.Error(err))
		} else {
			mqttClient = c
			publishers = append(publishers, notify.NewMQTTPublisher(mqttClient, cfg.MQTT.TopicPrefix))
		}
	}

	rosterOpts := []service.RosterOption{service.WithMetrics(m)}
	if len(publishers) > 0 {
		rosterOpts = append(rosterOpts, service.WithPublisher(publishers))
	}
	if cache != nil {
		rosterOpts = append(rosterOpts, service.WithCacheInvalidator(cache))
	}
	roster := service.NewRosterStore(allocationsRepo, log, rosterOpts...)
	rooms := service.NewRoomService(roomsRepo, log)

	if cfg.Rooms != "" {
		seed, err := domain.ParseRoomList(cfg.Rooms)
		if err != nil {
			log.Fatal("Invalid SEED_ROOMS", zap.Error(err))
		}
		if _, err := rooms.SeedRooms(context.Background(), seed); err != nil {
			log.Warn("Failed to seed room catalog", zap.Error(err))
		}
	}

	router := httpapi.NewRouter(log, m)
	router.RegisterAllocationRoutes(httpapi.NewAllocationHandler(
		service.NewAllocationService(roomsRepo, roster, m, log),
		roster,
		service.NewResultsService(roster, cache, m, log),
		log,
	))
	router.RegisterRoomRoutes(httpapi.NewRoomHandler(rooms, log))
	var history httpapi.EventHistory
	if stream != nil {
		history = stream
	}
	router.RegisterOpsRoutes(httpapi.NewOpsHandler(checks, history, log), metricsHandler)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = commonredis.Close(redisClient)
	_ = database.Close(db)
}
