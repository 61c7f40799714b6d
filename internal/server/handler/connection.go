package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/imposter/internal/game/player"
	"github.com/palemoky/imposter/internal/notify"
	"github.com/palemoky/imposter/internal/protocol"
	"github.com/palemoky/imposter/internal/protocol/codec"
	"github.com/palemoky/imposter/internal/protocol/convert"
	"github.com/palemoky/imposter/internal/types"
)

// handlePing 处理心跳消息
func (h *Handler) handlePing(_ context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.PingPayload](client, msg)
	if !ok {
		return
	}

	// 立即回复 pong
	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}

// handleSubscribe 订阅通知，替换该连接之前的订阅。主题为空时订阅全部
func (h *Handler) handleSubscribe(_ context.Context, client types.ClientInterface, msg *protocol.Message) {
	playerID, ok := requirePlayer(client)
	if !ok {
		return
	}
	payload, ok := parse[protocol.SubscribePayload](client, msg)
	if !ok {
		return
	}

	topics := notify.Topics
	if len(payload.Topics) > 0 {
		topics = make([]notify.Topic, 0, len(payload.Topics))
		for _, name := range payload.Topics {
			topic := notify.Topic(name)
			if !topic.Valid() {
				client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeInvalidMsg, "未知的订阅主题: "+name))
				return
			}
			topics = append(topics, topic)
		}
	}

	h.unsubscribeAll(client.GetID())

	sub := notify.Subscriber{ConnectionID: client.GetID(), PlayerID: playerID}
	deliver := func(ev notify.Event) {
		client.SendMessage(codec.MustNewMessage(protocol.MsgEvent, convert.Event(ev, playerID)))
	}
	unsubs := make([]func(), 0, len(topics))
	names := make([]string, 0, len(topics))
	for _, topic := range topics {
		unsubs = append(unsubs, h.hub.Subscribe(topic, sub, notify.RoomMember, deliver))
		names = append(names, string(topic))
	}

	h.subsMu.Lock()
	h.subs[client.GetID()] = unsubs
	h.subsMu.Unlock()

	h.logger.Debug("📡 订阅通知",
		zap.String("connection_id", client.GetID()),
		zap.String("player_id", playerID),
		zap.Strings("topics", names))

	client.SendMessage(codec.MustNewMessage(protocol.MsgSubscribed, protocol.SubscribedPayload{Topics: names}))
}

func (h *Handler) unsubscribeAll(connectionID string) {
	h.subsMu.Lock()
	unsubs := h.subs[connectionID]
	delete(h.subs, connectionID)
	h.subsMu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
}

// handleEditPlayer 创建或修改玩家资料。连接未绑定玩家时创建新玩家并绑定
func (h *Handler) handleEditPlayer(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.EditPlayerPayload](client, msg)
	if !ok {
		return
	}

	p, err := h.players.Edit(ctx, client.GetPlayerID(), player.Profile{
		Name:  payload.Name,
		Color: payload.Color,
		Hat:   payload.Hat,
	})
	if err != nil {
		h.replyError(client, msg, err)
		return
	}
	if client.GetPlayerID() == "" {
		client.SetPlayerID(p.ID)
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgPlayer, convert.PlayerInfo(p)))
}

// handleUpdateLocation 更新当前玩家的位置
func (h *Handler) handleUpdateLocation(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	playerID, ok := requirePlayer(client)
	if !ok {
		return
	}
	payload, ok := parse[protocol.LocationPayload](client, msg)
	if !ok {
		return
	}

	p, err := h.players.UpdateLocation(ctx, playerID, convert.Location(*payload))
	if err != nil {
		h.replyError(client, msg, err)
		return
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgPlayer, convert.PlayerInfo(p)))
}
