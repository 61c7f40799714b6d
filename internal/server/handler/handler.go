package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/imposter/internal/apperrors"
	"github.com/palemoky/imposter/internal/game/player"
	"github.com/palemoky/imposter/internal/game/room"
	"github.com/palemoky/imposter/internal/notify"
	"github.com/palemoky/imposter/internal/protocol"
	"github.com/palemoky/imposter/internal/protocol/codec"
	"github.com/palemoky/imposter/internal/types"
)

const defaultRequestTimeout = 5 * time.Second

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	RoomManager    *room.RoomManager
	Players        *player.Service
	Hub            *notify.Hub
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

// Handler 消息处理器
type Handler struct {
	roomManager    *room.RoomManager
	players        *player.Service
	hub            *notify.Hub
	logger         *zap.Logger
	requestTimeout time.Duration
	handlers       map[protocol.MessageType]handlerFunc

	// 连接 ID -> 取消订阅函数
	subs   map[string][]func()
	subsMu sync.Mutex
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(ctx context.Context, client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = defaultRequestTimeout
	}
	h := &Handler{
		roomManager:    deps.RoomManager,
		players:        deps.Players,
		hub:            deps.Hub,
		logger:         deps.Logger,
		requestTimeout: deps.RequestTimeout,
		subs:           make(map[string][]func()),
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing:      h.handlePing,
		protocol.MsgSubscribe: h.handleSubscribe,

		// 玩家操作
		protocol.MsgEditPlayer:     h.handleEditPlayer,
		protocol.MsgUpdateLocation: h.handleUpdateLocation,

		// 房间操作
		protocol.MsgCreateRoom:       h.handleCreateRoom,
		protocol.MsgJoinRoom:         h.handleJoinRoom,
		protocol.MsgStartRoom:        h.handleStartRoom,
		protocol.MsgGetRoom:          h.handleGetRoom,
		protocol.MsgEndRoomIfExpired: h.handleEndRoomIfExpired,

		// 游戏操作
		protocol.MsgCompleteTask: h.handleCompleteTask,
		protocol.MsgReportKill:   h.handleReportKill,
		protocol.MsgStartVote:    h.handleStartVote,
		protocol.MsgCastVote:     h.handleCastVote,
	}
}

// Handle 处理消息，每个请求都有独立的超时
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	handler, ok := h.handlers[msg.Type]
	if !ok {
		h.logger.Warn("⚠️ 未知消息类型",
			zap.String("type", string(msg.Type)),
			zap.String("connection_id", client.GetID()),
			zap.Int("payload_bytes", len(msg.Payload)))
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.requestTimeout)
	defer cancel()
	handler(ctx, client, msg)
}

// Disconnect 连接断开时释放订阅
func (h *Handler) Disconnect(client types.ClientInterface) {
	h.unsubscribeAll(client.GetID())
}

// replyError 把错误转换为错误消息。GameError 使用自身的错误码，其余视为基础设施错误
func (h *Handler) replyError(client types.ClientInterface, msg *protocol.Message, err error) {
	payload := protocol.ErrorPayload{
		Code:    protocol.ErrCodeInfrastructure,
		Message: protocol.ErrorMessages[protocol.ErrCodeInfrastructure],
		RoomID:  apperrors.RoomIDOf(err),
	}
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		payload.Code = gameErr.Code
		payload.Message = gameErr.Message
	}

	fields := []zap.Field{
		zap.String("type", string(msg.Type)),
		zap.String("connection_id", client.GetID()),
		zap.String("player_id", client.GetPlayerID()),
		zap.String("kind", apperrors.KindOf(err).String()),
		zap.Error(err),
	}
	if payload.RoomID != "" {
		fields = append(fields, zap.String("room_id", payload.RoomID))
	}
	if apperrors.KindOf(err).Retryable() {
		h.logger.Warn("❗ 请求失败", fields...)
	} else {
		h.logger.Debug("请求被拒绝", fields...)
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgError, payload))
}

// requirePlayer 返回连接绑定的玩家 ID，未绑定时回复错误
func requirePlayer(client types.ClientInterface) (string, bool) {
	id := client.GetPlayerID()
	if id == "" {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnauthenticated))
		return "", false
	}
	return id, true
}

// parse 解析 payload，失败时回复错误
func parse[T any](client types.ClientInterface, msg *protocol.Message) (*T, bool) {
	payload, err := codec.ParsePayload[T](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return nil, false
	}
	return payload, true
}
