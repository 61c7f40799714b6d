package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/palemoky/imposter/internal/apperrors"
	"github.com/palemoky/imposter/internal/game/imposter"
	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/notify"
)

// CreateRoom 基于模板创建等待中的房间
func (rm *RoomManager) CreateRoom(ctx context.Context, templateID string) (*model.Room, error) {
	if _, err := rm.store.LoadTemplate(ctx, templateID); err != nil {
		return nil, err
	}

	id := rm.newID()
	code, err := rm.reserveRoomCode(ctx, id)
	if err != nil {
		return nil, apperrors.WithRoom(err, id)
	}

	room := model.NewRoom(id, code, templateID, rm.now())
	if err := rm.saveRoom(ctx, room); err != nil {
		return nil, err
	}

	rm.logger.Info("🏠 房间已创建",
		zap.String("room_id", room.ID),
		zap.String("code", room.Code),
		zap.String("template_id", templateID))
	return room, nil
}

// JoinRoom 通过房间码加入房间
func (rm *RoomManager) JoinRoom(ctx context.Context, code, playerID string) (*model.Room, error) {
	room, err := rm.store.LoadRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return rm.JoinRoomByID(ctx, room.ID, playerID)
}

// JoinRoomByID 加入房间，只允许在等待阶段加入
func (rm *RoomManager) JoinRoomByID(ctx context.Context, roomID, playerID string) (*model.Room, error) {
	unlock := rm.locker.Lock(roomID)
	defer unlock()

	room, tpl, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	player, err := rm.store.LoadPlayer(ctx, playerID)
	if err != nil {
		return nil, apperrors.WithRoom(err, roomID)
	}

	switch {
	case room.State() == model.RoomStateEnded:
		return nil, apperrors.WithRoom(apperrors.ErrGameEnded, roomID)
	case room.State() == model.RoomStateActive:
		return nil, apperrors.WithRoom(apperrors.ErrAlreadyStarted, roomID)
	case room.IsParticipant(playerID):
		return nil, apperrors.WithRoom(apperrors.ErrAlreadyJoined, roomID)
	case len(room.Participants) >= tpl.MaxParticipants:
		return nil, apperrors.WithRoom(apperrors.ErrRoomFull, roomID)
	}

	// 先写玩家：房间写入失败时残留的 RoomID 会在重试时被覆盖
	player.RoomID = roomID
	if err := rm.store.SavePlayer(ctx, player); err != nil {
		return nil, apperrors.WithRoom(err, roomID)
	}

	next := room.Clone()
	next.AddParticipant(playerID)
	if err := rm.saveRoom(ctx, next); err != nil {
		return nil, err
	}

	rm.logger.Info("👤 玩家加入房间",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.Int("participants", len(next.Participants)))

	if err := rm.publish(ctx, rm.roomEvent(notify.TopicRoomStateChanged, next)); err != nil {
		return nil, err
	}
	return next, nil
}

// StartRoom 开始游戏：随机分配内鬼并记录开始时间
func (rm *RoomManager) StartRoom(ctx context.Context, roomID string) (*model.Room, error) {
	unlock := rm.locker.Lock(roomID)
	defer unlock()

	room, tpl, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.State() != model.RoomStateLobby {
		return nil, apperrors.WithRoom(apperrors.ErrAlreadyStarted, roomID)
	}

	var imposters []string
	rm.rngMu.Lock()
	imposters, err = imposter.Assign(room.Participants, tpl.ImposterCount, rm.rng)
	rm.rngMu.Unlock()
	if err != nil {
		return nil, apperrors.WithRoom(err, roomID)
	}

	next := room.Clone()
	next.Imposters = imposters
	now := rm.now()
	next.StartedAt = &now
	if err := rm.saveRoom(ctx, next); err != nil {
		return nil, err
	}

	rm.logger.Info("🎮 游戏开始",
		zap.String("room_id", roomID),
		zap.Int("participants", len(next.Participants)),
		zap.Int("imposters", len(imposters)))

	if err := rm.publish(ctx, rm.roomEvent(notify.TopicRoomStateChanged, next)); err != nil {
		return nil, err
	}
	return next, nil
}

// EndRoomIfExpired 超过游戏时长时结束游戏，内鬼获胜。未开始或已结束的房间原样返回。
func (rm *RoomManager) EndRoomIfExpired(ctx context.Context, roomID string) (*model.Room, error) {
	unlock := rm.locker.Lock(roomID)
	defer unlock()

	room, tpl, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	now := rm.now()
	if room.State() != model.RoomStateActive || !room.Expired(tpl.DurationMinutes, now) {
		return room, nil
	}

	next := room.Clone()
	next.End(model.SideImposters, model.EndReasonTimeout, now)
	if err := rm.saveRoom(ctx, next); err != nil {
		return nil, err
	}

	rm.logger.Info("⏰ 游戏超时结束", zap.String("room_id", roomID))

	if err := rm.publish(ctx, rm.roomEvent(notify.TopicRoomStateChanged, next)); err != nil {
		return nil, err
	}
	return next, nil
}
