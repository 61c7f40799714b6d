package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/palemoky/imposter/internal/apperrors"
	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/game/vote"
	"github.com/palemoky/imposter/internal/notify"
)

// StartVoteSession 开启一轮投票，同一房间同时只能有一轮未完成的投票
func (rm *RoomManager) StartVoteSession(ctx context.Context, roomID string) (*model.VoteSession, error) {
	unlock := rm.locker.Lock(roomID)
	defer unlock()

	room, err := rm.store.LoadRoom(ctx, roomID)
	if err != nil {
		return nil, apperrors.WithRoom(err, roomID)
	}
	switch room.State() {
	case model.RoomStateLobby:
		return nil, apperrors.WithRoom(apperrors.ErrGameNotStarted, roomID)
	case model.RoomStateEnded:
		return nil, apperrors.WithRoom(apperrors.ErrGameEnded, roomID)
	}

	open, err := rm.store.OpenVoteSession(ctx, roomID)
	if err != nil {
		return nil, apperrors.WithRoom(err, roomID)
	}
	if open != nil {
		return nil, apperrors.WithRoom(apperrors.ErrVoteInProgress, roomID)
	}

	session := model.NewVoteSession(rm.newID(), room, rm.now())
	if err := rm.store.SaveVoteSession(ctx, session); err != nil {
		return nil, apperrors.WithRoom(err, roomID)
	}

	rm.logger.Info("🗳️ 投票开始",
		zap.String("room_id", roomID),
		zap.String("session_id", session.ID),
		zap.Int("expected", session.SurvivorCountAtOpen))

	if err := rm.publish(ctx, rm.voteEvent(room, session)); err != nil {
		return nil, err
	}
	return session, nil
}

// CastVote 投票，nomineeID 为 nil 表示弃权。
// 选票数达到开启时的存活人数后结算：淘汰得票最多者并判定胜负。
func (rm *RoomManager) CastVote(ctx context.Context, sessionID, voterID string, nomineeID *string) (*model.VoteSession, error) {
	found, err := rm.store.LoadVoteSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	roomID := found.RoomID

	unlock := rm.locker.Lock(roomID)
	defer unlock()

	// 持锁后重新读取
	session, err := rm.store.LoadVoteSession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.WithRoom(err, roomID)
	}
	room, tpl, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if session.Completed {
		return nil, apperrors.WithRoom(apperrors.ErrVoteClosed, roomID)
	}
	if room.State() == model.RoomStateEnded {
		return nil, apperrors.WithRoom(apperrors.ErrGameEnded, roomID)
	}

	next := session.Clone()
	if err := vote.Cast(next, room, voterID, nomineeID); err != nil {
		return nil, apperrors.WithRoom(err, roomID)
	}

	if !next.Full() {
		if err := rm.store.SaveVoteSession(ctx, next); err != nil {
			return nil, apperrors.WithRoom(err, roomID)
		}
		if err := rm.publish(ctx, rm.voteEvent(room, next)); err != nil {
			return nil, err
		}
		return next, nil
	}

	now := rm.now()
	nextRoom := room.Clone()
	ejected := vote.Close(next, nextRoom, now)
	ended := nextRoom.Settle(tpl.TotalTasks, now)

	// 房间与投票一并提交，失败时两者均未写入，可原样重试
	if err := rm.store.CloseVoteSession(ctx, nextRoom, next); err != nil {
		rm.logger.Warn("💾 结算投票失败", zap.String("room_id", roomID), zap.String("session_id", sessionID), zap.Error(err))
		return nil, apperrors.WithRoom(err, roomID)
	}

	fields := []zap.Field{zap.String("room_id", roomID), zap.String("session_id", sessionID)}
	if ejected != nil {
		fields = append(fields, zap.String("ejected", *ejected))
	}
	rm.logger.Info("🗳️ 投票结束", fields...)

	events := []notify.Event{rm.voteEvent(nextRoom, next)}
	if ejected != nil || ended {
		events = append(events, rm.roomEvent(notify.TopicRoomStateChanged, nextRoom))
	}
	if err := rm.publish(ctx, events...); err != nil {
		return nil, err
	}
	return next, nil
}

// GetVoteSession 读取投票
func (rm *RoomManager) GetVoteSession(ctx context.Context, sessionID string) (*model.VoteSession, error) {
	return rm.store.LoadVoteSession(ctx, sessionID)
}

func (rm *RoomManager) voteEvent(room *model.Room, session *model.VoteSession) notify.Event {
	ev := notify.RoomEvent(notify.TopicVoteSessionChanged, room.Clone(), rm.now())
	ev.Vote = session.Clone()
	return ev
}
