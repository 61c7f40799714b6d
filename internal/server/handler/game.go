package handler

import (
	"context"

	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/protocol"
	"github.com/palemoky/imposter/internal/protocol/codec"
	"github.com/palemoky/imposter/internal/protocol/convert"
	"github.com/palemoky/imposter/internal/types"
)

func sendVoteSession(client types.ClientInterface, session *model.VoteSession) {
	client.SendMessage(codec.MustNewMessage(protocol.MsgVoteSession, convert.VoteSessionInfo(session)))
}

// handleCompleteTask 处理完成任务
func (h *Handler) handleCompleteTask(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	if _, ok := requirePlayer(client); !ok {
		return
	}
	h.handleRoomRequest(ctx, client, msg, h.roomManager.CompleteTask)
}

// handleReportKill 处理击杀，击杀者为当前玩家
func (h *Handler) handleReportKill(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	playerID, ok := requirePlayer(client)
	if !ok {
		return
	}
	payload, ok := parse[protocol.ReportKillPayload](client, msg)
	if !ok {
		return
	}
	if payload.RoomID == "" || payload.VictimID == "" {
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeInvalidMsg, "缺少 room_id 或 victim_id"))
		return
	}

	room, err := h.roomManager.ReportKill(ctx, payload.RoomID, playerID, payload.VictimID, convert.Location(payload.Location))
	if err != nil {
		h.replyError(client, msg, err)
		return
	}
	sendRoom(client, room)
}

// handleStartVote 发起投票
func (h *Handler) handleStartVote(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	if _, ok := requirePlayer(client); !ok {
		return
	}
	payload, ok := parse[protocol.RoomRequestPayload](client, msg)
	if !ok {
		return
	}

	session, err := h.roomManager.StartVoteSession(ctx, payload.RoomID)
	if err != nil {
		h.replyError(client, msg, err)
		return
	}
	sendVoteSession(client, session)
}

// handleCastVote 投票，投票人为当前玩家
func (h *Handler) handleCastVote(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	playerID, ok := requirePlayer(client)
	if !ok {
		return
	}
	payload, ok := parse[protocol.CastVotePayload](client, msg)
	if !ok {
		return
	}

	session, err := h.roomManager.CastVote(ctx, payload.SessionID, playerID, payload.NomineeID)
	if err != nil {
		h.replyError(client, msg, err)
		return
	}
	sendVoteSession(client, session)
}
