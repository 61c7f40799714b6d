// Package convert 把领域模型转换为对外的消息结构。
// 内鬼名单在这里按查看者脱敏。
package convert

import (
	"time"

	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/notify"
	"github.com/palemoky/imposter/internal/protocol"
)

func millis(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

func location(l model.Location) protocol.LocationPayload {
	return protocol.LocationPayload{Latitude: l.Latitude, Longitude: l.Longitude}
}

// Location 消息坐标转为领域坐标
func Location(l protocol.LocationPayload) model.Location {
	return model.Location{Latitude: l.Latitude, Longitude: l.Longitude}
}

// PlayerInfo 玩家资料
func PlayerInfo(p *model.Player) *protocol.PlayerInfo {
	if p == nil {
		return nil
	}
	return &protocol.PlayerInfo{
		ID:       p.ID,
		Name:     p.Name,
		Color:    p.Color,
		Hat:      p.Hat,
		Location: location(p.Location),
		RoomID:   p.RoomID,
	}
}

// Corpses 尸体列表，不包含击杀者
func Corpses(corpses []model.Corpse) []protocol.CorpseInfo {
	out := make([]protocol.CorpseInfo, len(corpses))
	for i, c := range corpses {
		out[i] = protocol.CorpseInfo{PlayerID: c.PlayerID, Location: location(c.Location), At: c.At.UnixMilli()}
	}
	return out
}

// RoomInfo 房间快照。viewerID 不是内鬼且游戏未结束时隐藏内鬼名单。
func RoomInfo(r *model.Room, viewerID string) *protocol.RoomInfo {
	if r == nil {
		return nil
	}
	info := &protocol.RoomInfo{
		ID:             r.ID,
		Code:           r.Code,
		TemplateID:     r.TemplateID,
		State:          r.State().String(),
		Participants:   append([]string{}, r.Participants...),
		Survivors:      append([]string{}, r.Survivors...),
		Corpses:        Corpses(r.Corpses),
		CompletedTasks: r.CompletedTasks,
		StartedAt:      millis(r.StartedAt),
		EndedAt:        millis(r.EndedAt),
		Winner:         string(r.Winner),
		EndReason:      string(r.EndReason),
	}
	if r.ImpostersVisibleTo(viewerID) {
		info.Imposters = append([]string{}, r.Imposters...)
	}
	return info
}

// VoteSessionInfo 投票快照
func VoteSessionInfo(s *model.VoteSession) *protocol.VoteSessionInfo {
	if s == nil {
		return nil
	}
	info := &protocol.VoteSessionInfo{
		ID:              s.ID,
		RoomID:          s.RoomID,
		Entries:         make([]protocol.VoteEntryInfo, len(s.Entries)),
		Expected:        s.SurvivorCountAtOpen,
		Completed:       s.Completed,
		EjectedPlayerID: s.EjectedPlayerID,
	}
	for i, e := range s.Entries {
		info.Entries[i] = protocol.VoteEntryInfo{VoterID: e.VoterID, NomineeID: e.NomineeID}
	}
	for _, item := range s.Tally {
		info.Tally = append(info.Tally, protocol.TallyInfo{NomineeID: item.NomineeID, Votes: item.Votes})
	}
	return info
}

// Event 订阅推送，按接收者脱敏
func Event(ev notify.Event, viewerID string) protocol.EventPayload {
	payload := protocol.EventPayload{
		Topic:  string(ev.Topic),
		RoomID: ev.RoomID,
		Room:   RoomInfo(ev.Room, viewerID),
		Vote:   VoteSessionInfo(ev.Vote),
		Player: PlayerInfo(ev.Player),
	}
	if len(ev.Corpses) > 0 {
		payload.Corpses = Corpses(ev.Corpses)
	}
	return payload
}
