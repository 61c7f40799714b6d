package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/palemoky/imposter/internal/config"
	"github.com/palemoky/imposter/internal/game/player"
	"github.com/palemoky/imposter/internal/game/room"
	"github.com/palemoky/imposter/internal/game/template"
	"github.com/palemoky/imposter/internal/logger"
	"github.com/palemoky/imposter/internal/notify"
	"github.com/palemoky/imposter/internal/server"
	"github.com/palemoky/imposter/internal/server/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("加载 .env 失败: %v", err)
	}

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("加载配置文件失败，使用默认配置: %v", err)
		cfg = config.Default()
		if err := cfg.Validate(); err != nil {
			log.Fatalf("配置无效: %v", err)
		}
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("创建日志器失败: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("服务器异常退出", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	hub := notify.NewHub(zl)
	g, gctx := errgroup.WithContext(ctx)

	var (
		store     storage.Store
		publisher notify.Publisher = hub
	)
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store = storage.NewMemoryStore()
		zl.Info("💾 使用内存存储")

	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		// 测试 Redis 连接
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis 连接失败: %w", err)
		}

		store = storage.NewRedisStore(rdb, cfg.Game.RoomExpirationDuration())
		bus := notify.NewRedisBus(rdb, hub, zl)
		publisher = bus
		g.Go(func() error { return bus.Run(gctx) })

		// 订阅建立后再对外服务，避免丢失第一批通知
		select {
		case <-bus.Ready():
		case <-gctx.Done():
			return g.Wait()
		}
		zl.Info("💾 使用 Redis 存储", zap.String("addr", cfg.Redis.Addr))

	default:
		return fmt.Errorf("未知的存储驱动: %q", cfg.Storage.Driver)
	}

	srv := server.NewServer(server.Deps{
		Config: cfg,
		Logger: zl,
		RoomManager: room.NewRoomManager(store, publisher, zl, room.Options{
			CodeAttempts: cfg.Game.CodeAttempts,
		}),
		Templates: template.NewService(store, zl),
		Players:   player.NewService(store, publisher, zl),
		Hub:       hub,
	})

	zl.Info("🎮 服务器启动中...")
	g.Go(func() error { return srv.Run(gctx) })
	return g.Wait()
}
