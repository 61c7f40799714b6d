// Package room 管理房间生命周期、游戏内操作和投票。
//
// 每个操作都遵循同一流程：获取房间锁 → 读取 → 校验 → 修改副本 → 保存（乐观锁）→ 发布通知。
// 校验失败时不会写入任何数据。
package room

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/palemoky/imposter/internal/apperrors"
	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/notify"
	"github.com/palemoky/imposter/internal/server/storage"
)

var errCodeExhausted = errors.New("房间码重试次数已用尽")

// Options 房间管理器可选配置
type Options struct {
	CodeAttempts int              // 房间码冲突时的最大尝试次数
	Now          func() time.Time // 时钟，测试中可替换
	NewID        func() string    // ID 生成器
	Rand         *rand.Rand       // 随机源，nil 时使用全局随机源
}

// RoomManager 房间管理器
type RoomManager struct {
	store     storage.Store
	publisher notify.Publisher
	logger    *zap.Logger
	locker    *Locker

	codeAttempts int
	now          func() time.Time
	newID        func() string

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRoomManager 创建房间管理器
func NewRoomManager(store storage.Store, publisher notify.Publisher, logger *zap.Logger, opts Options) *RoomManager {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CodeAttempts <= 0 {
		opts.CodeAttempts = defaultCodeAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &RoomManager{
		store:        store,
		publisher:    publisher,
		logger:       logger,
		locker:       NewLocker(),
		codeAttempts: opts.CodeAttempts,
		now:          opts.Now,
		newID:        opts.NewID,
		rng:          opts.Rand,
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, notify.Event) error { return nil }

// withRand 在随机源上执行 fn。自定义随机源不是并发安全的，需要加锁。
func (rm *RoomManager) withRand(fn func(intN func(int) int)) {
	if rm.rng == nil {
		fn(rand.IntN)
		return
	}
	rm.rngMu.Lock()
	defer rm.rngMu.Unlock()
	fn(rm.rng.IntN)
}

// loadRoom 读取房间及其模板
func (rm *RoomManager) loadRoom(ctx context.Context, roomID string) (*model.Room, *model.GameTemplate, error) {
	room, err := rm.store.LoadRoom(ctx, roomID)
	if err != nil {
		return nil, nil, apperrors.WithRoom(err, roomID)
	}
	tpl, err := rm.store.LoadTemplate(ctx, room.TemplateID)
	if err != nil {
		return nil, nil, apperrors.WithRoom(err, roomID)
	}
	return room, tpl, nil
}

// saveRoom 保存房间
func (rm *RoomManager) saveRoom(ctx context.Context, room *model.Room) error {
	if err := rm.store.SaveRoom(ctx, room); err != nil {
		rm.logger.Warn("💾 保存房间失败", zap.String("room_id", room.ID), zap.Error(err))
		return apperrors.WithRoom(err, room.ID)
	}
	return nil
}

// publish 发布通知。此时数据已提交，失败时返回基础设施错误
func (rm *RoomManager) publish(ctx context.Context, events ...notify.Event) error {
	for _, ev := range events {
		if err := rm.publisher.Publish(ctx, ev); err != nil {
			rm.logger.Error("📣 通知发布失败",
				zap.String("topic", string(ev.Topic)),
				zap.String("room_id", ev.RoomID),
				zap.Error(err))
			return apperrors.WithRoom(apperrors.Infra("publish "+string(ev.Topic), err), ev.RoomID)
		}
	}
	return nil
}

// roomEvent 构造携带房间快照的通知
func (rm *RoomManager) roomEvent(topic notify.Topic, room *model.Room) notify.Event {
	return notify.RoomEvent(topic, room.Clone(), rm.now())
}

// GetRoom 读取房间快照
func (rm *RoomManager) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := rm.store.LoadRoom(ctx, roomID)
	if err != nil {
		return nil, apperrors.WithRoom(err, roomID)
	}
	return room, nil
}
