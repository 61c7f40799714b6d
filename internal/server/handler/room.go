package handler

import (
	"context"

	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/protocol"
	"github.com/palemoky/imposter/internal/protocol/codec"
	"github.com/palemoky/imposter/internal/protocol/convert"
	"github.com/palemoky/imposter/internal/types"
)

// roomOp 针对单个房间的操作
type roomOp func(ctx context.Context, roomID string) (*model.Room, error)

// sendRoom 回复房间快照，内鬼名单按当前玩家脱敏
func sendRoom(client types.ClientInterface, room *model.Room) {
	client.SendMessage(codec.MustNewMessage(protocol.MsgRoom, convert.RoomInfo(room, client.GetPlayerID())))
}

// handleRoomRequest 解析 room_id 并执行房间操作
func (h *Handler) handleRoomRequest(ctx context.Context, client types.ClientInterface, msg *protocol.Message, op roomOp) {
	payload, ok := parse[protocol.RoomRequestPayload](client, msg)
	if !ok {
		return
	}
	if payload.RoomID == "" {
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeInvalidMsg, "缺少 room_id"))
		return
	}

	room, err := op(ctx, payload.RoomID)
	if err != nil {
		h.replyError(client, msg, err)
		return
	}
	sendRoom(client, room)
}

// handleCreateRoom 处理创建房间
func (h *Handler) handleCreateRoom(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	if _, ok := requirePlayer(client); !ok {
		return
	}
	payload, ok := parse[protocol.CreateRoomPayload](client, msg)
	if !ok {
		return
	}

	room, err := h.roomManager.CreateRoom(ctx, payload.TemplateID)
	if err != nil {
		h.replyError(client, msg, err)
		return
	}
	sendRoom(client, room)
}

// handleJoinRoom 处理加入房间，优先使用房间码
func (h *Handler) handleJoinRoom(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	playerID, ok := requirePlayer(client)
	if !ok {
		return
	}
	payload, ok := parse[protocol.JoinRoomPayload](client, msg)
	if !ok {
		return
	}

	var (
		room *model.Room
		err  error
	)
	switch {
	case payload.RoomCode != "":
		room, err = h.roomManager.JoinRoom(ctx, payload.RoomCode, playerID)
	case payload.RoomID != "":
		room, err = h.roomManager.JoinRoomByID(ctx, payload.RoomID, playerID)
	default:
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeInvalidMsg, "缺少 room_code 或 room_id"))
		return
	}
	if err != nil {
		h.replyError(client, msg, err)
		return
	}
	sendRoom(client, room)
}

// handleStartRoom 处理开始游戏
func (h *Handler) handleStartRoom(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	if _, ok := requirePlayer(client); !ok {
		return
	}
	h.handleRoomRequest(ctx, client, msg, h.roomManager.StartRoom)
}

// handleGetRoom 查询房间快照
func (h *Handler) handleGetRoom(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	h.handleRoomRequest(ctx, client, msg, h.roomManager.GetRoom)
}

// handleEndRoomIfExpired 检查房间是否超时
func (h *Handler) handleEndRoomIfExpired(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	h.handleRoomRequest(ctx, client, msg, h.roomManager.EndRoomIfExpired)
}
