package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/palemoky/imposter/internal/apperrors"
	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/notify"
)

// CompleteTask 记录一次任务完成，完成数达到模板总数时船员获胜。
// 已结束的房间原样返回。
func (rm *RoomManager) CompleteTask(ctx context.Context, roomID string) (*model.Room, error) {
	unlock := rm.locker.Lock(roomID)
	defer unlock()

	room, tpl, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	switch room.State() {
	case model.RoomStateLobby:
		return nil, apperrors.WithRoom(apperrors.ErrGameNotStarted, roomID)
	case model.RoomStateEnded:
		return room, nil
	}

	next := room.Clone()
	next.CompletedTasks++
	ended := next.Settle(tpl.TotalTasks, rm.now())
	if err := rm.saveRoom(ctx, next); err != nil {
		return nil, err
	}

	if ended {
		rm.logger.Info("🏁 任务全部完成，船员获胜",
			zap.String("room_id", roomID),
			zap.Int("completed_tasks", next.CompletedTasks))
	}

	if err := rm.publish(ctx, rm.roomEvent(notify.TopicRoomStateChanged, next)); err != nil {
		return nil, err
	}
	return next, nil
}

// ReportKill 记录一次击杀：受害者移出存活名单并留下尸体。
// 存活人数不多于内鬼数的两倍时内鬼获胜。不校验行凶者身份。
func (rm *RoomManager) ReportKill(ctx context.Context, roomID, actorID, victimID string, location model.Location) (*model.Room, error) {
	unlock := rm.locker.Lock(roomID)
	defer unlock()

	room, tpl, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
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

	if room.IsImposter(victimID) {
		return nil, apperrors.WithRoom(apperrors.ErrImposterTarget, roomID)
	}
	if !room.IsSurvivor(victimID) {
		return nil, apperrors.WithRoom(apperrors.ErrInvalidTarget, roomID)
	}

	now := rm.now()
	next := room.Clone()
	next.RemoveSurvivor(victimID)
	next.Corpses = append(next.Corpses, model.Corpse{
		PlayerID: victimID,
		Location: location,
		At:       now,
		KilledBy: actorID,
	})
	ended := next.Settle(tpl.TotalTasks, now)
	if err := rm.saveRoom(ctx, next); err != nil {
		return nil, err
	}

	rm.logger.Info("💀 玩家被击杀",
		zap.String("room_id", roomID),
		zap.String("victim_id", victimID),
		zap.Int("survivors", len(next.Survivors)))

	corpses := rm.roomEvent(notify.TopicCorpseReported, next)
	corpses.Corpses = corpses.Room.Corpses
	events := []notify.Event{corpses}
	if ended {
		rm.logger.Info("🏁 游戏结束",
			zap.String("room_id", roomID),
			zap.String("winner", string(next.Winner)),
			zap.String("reason", string(next.EndReason)))
		events = append(events, rm.roomEvent(notify.TopicRoomStateChanged, next))
	}
	if err := rm.publish(ctx, events...); err != nil {
		return nil, err
	}
	return next, nil
}
