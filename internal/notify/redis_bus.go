package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/palemoky/imposter/internal/apperrors"
)

const channelPrefix = "imposter:events:"

// RedisBus 通过 Redis pub/sub 在多个实例间转发通知，收到的通知交给本地 Hub 分发
type RedisBus struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
	ready  chan struct{}
}

// NewRedisBus 创建 Redis 通知总线
func NewRedisBus(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{
		client: client,
		hub:    hub,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Publish 发布到主题对应的频道
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化通知失败: %w", err)
	}
	return apperrors.Infra("publish "+string(ev.Topic), b.client.Publish(ctx, channelPrefix+string(ev.Topic), data).Err())
}

// Ready 订阅建立后关闭
func (b *RedisBus) Ready() <-chan struct{} {
	return b.ready
}

// Run 订阅全部主题频道并转发到 Hub，直到 ctx 取消
func (b *RedisBus) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer func() { _ = pubsub.Close() }()

	// 等待订阅确认
	if _, err := pubsub.Receive(ctx); err != nil {
		return apperrors.Infra("subscribe events", err)
	}
	close(b.ready)
	b.logger.Info("📡 通知总线已启动", zap.String("pattern", channelPrefix+"*"))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("📡 通知总线已停止")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("⚠️ 无法解析通知", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			b.hub.Dispatch(ev)
		}
	}
}
