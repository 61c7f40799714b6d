package notify

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Subscriber 订阅者身份
type Subscriber struct {
	ConnectionID string
	PlayerID     string
}

// Filter 决定一条通知是否投递给订阅者
type Filter func(sub Subscriber, ev Event) bool

// RoomMember 默认过滤器：只投递给通知所属房间的参与者
func RoomMember(sub Subscriber, ev Event) bool {
	return slices.Contains(ev.Members, sub.PlayerID)
}

// DeliverFunc 投递回调，必须不阻塞
type DeliverFunc func(ev Event)

type subscription struct {
	sub     Subscriber
	filter  Filter
	deliver DeliverFunc
}

// Hub 进程内主题分发
type Hub struct {
	mu     sync.RWMutex
	topics map[Topic]map[uint64]*subscription
	nextID uint64
	logger *zap.Logger
}

// NewHub 创建分发中心
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics: make(map[Topic]map[uint64]*subscription),
		logger: logger,
	}
}

// Subscribe 订阅主题，filter 为 nil 时使用 RoomMember。返回取消订阅函数。
func (h *Hub) Subscribe(topic Topic, sub Subscriber, filter Filter, deliver DeliverFunc) (unsubscribe func()) {
	if filter == nil {
		filter = RoomMember
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[uint64]*subscription)
		h.topics[topic] = subs
	}
	subs[id] = &subscription{sub: sub, filter: filter, deliver: deliver}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.topics[topic], id)
			if len(h.topics[topic]) == 0 {
				delete(h.topics, topic)
			}
		})
	}
}

// SubscriberCount 主题的订阅数
func (h *Hub) SubscriberCount(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Publish 单机模式下直接分发
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.Dispatch(ev)
	return nil
}

// Dispatch 把通知投递给所有通过过滤的订阅者
func (h *Hub) Dispatch(ev Event) {
	// 持锁收集订阅者，释放锁后投递
	h.mu.RLock()
	targets := make([]*subscription, 0, len(h.topics[ev.Topic]))
	for _, s := range h.topics[ev.Topic] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if !s.filter(s.sub, ev) {
			continue
		}
		s.deliver(ev)
		delivered++
	}

	h.logger.Debug("📣 通知已分发",
		zap.String("topic", string(ev.Topic)),
		zap.String("room_id", ev.RoomID),
		zap.Int("delivered", delivered),
		zap.Int("subscribers", len(targets)))
}
