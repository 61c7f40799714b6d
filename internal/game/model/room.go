package model

import (
	"slices"
	"time"
)

// RoomState 房间状态，由开始/结束时间推导
type RoomState int

const (
	RoomStateLobby RoomState = iota
	RoomStateActive
	RoomStateEnded
)

func (s RoomState) String() string {
	switch s {
	case RoomStateActive:
		return "active"
	case RoomStateEnded:
		return "ended"
	default:
		return "lobby"
	}
}

// Side 获胜阵营
type Side string

const (
	SideNone      Side = ""
	SideCrew      Side = "crew"
	SideImposters Side = "imposters"
)

// EndReason 结束原因
type EndReason string

const (
	EndReasonNone             EndReason = ""
	EndReasonTasksCompleted   EndReason = "tasks_completed"
	EndReasonImpostersEjected EndReason = "imposters_ejected"
	EndReasonCrewOutnumbered  EndReason = "crew_outnumbered"
	EndReasonTimeout          EndReason = "timeout"
)

// Corpse 尸体记录
type Corpse struct {
	PlayerID string    `json:"player_id"`
	Location Location  `json:"location"`
	At       time.Time `json:"at"`
	KilledBy string    `json:"killed_by,omitempty"` // 行凶者
}

// Room 一局游戏
type Room struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	TemplateID     string     `json:"template_id"`
	Participants   []string   `json:"participants"` // 按加入顺序
	Survivors      []string   `json:"survivors"`
	Imposters      []string   `json:"imposters"`
	Corpses        []Corpse   `json:"corpses"`
	CompletedTasks int        `json:"completed_tasks"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Winner         Side       `json:"winner,omitempty"`
	EndReason      EndReason  `json:"end_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`

	// Version 乐观锁版本号，由存储层在每次写入时递增
	Version int64 `json:"version"`
}

// NewRoom 创建等待中的房间
func NewRoom(id, code, templateID string, now time.Time) *Room {
	return &Room{
		ID:           id,
		Code:         code,
		TemplateID:   templateID,
		Participants: []string{},
		Survivors:    []string{},
		Imposters:    []string{},
		Corpses:      []Corpse{},
		CreatedAt:    now,
	}
}

// State 当前状态
func (r *Room) State() RoomState {
	switch {
	case r.EndedAt != nil:
		return RoomStateEnded
	case r.StartedAt != nil:
		return RoomStateActive
	default:
		return RoomStateLobby
	}
}

func (r *Room) IsParticipant(playerID string) bool {
	return slices.Contains(r.Participants, playerID)
}

func (r *Room) IsSurvivor(playerID string) bool {
	return slices.Contains(r.Survivors, playerID)
}

func (r *Room) IsImposter(playerID string) bool {
	return slices.Contains(r.Imposters, playerID)
}

// AddParticipant 加入房间，同时成为存活玩家
func (r *Room) AddParticipant(playerID string) {
	r.Participants = append(r.Participants, playerID)
	r.Survivors = append(r.Survivors, playerID)
}

// RemoveSurvivor 移出存活名单，返回是否存在
func (r *Room) RemoveSurvivor(playerID string) bool {
	before := len(r.Survivors)
	r.Survivors = slices.DeleteFunc(r.Survivors, func(id string) bool { return id == playerID })
	return len(r.Survivors) != before
}

// RemoveImposter 移出内鬼名单，船员被淘汰时为空操作
func (r *Room) RemoveImposter(playerID string) bool {
	before := len(r.Imposters)
	r.Imposters = slices.DeleteFunc(r.Imposters, func(id string) bool { return id == playerID })
	return len(r.Imposters) != before
}

// Evaluate 判定胜负：
// 内鬼全部被投出 → 船员胜；存活人数 ≤ 内鬼数 × 2 → 内鬼胜；任务完成数达到总数 → 船员胜
func (r *Room) Evaluate(totalTasks int) (Side, EndReason, bool) {
	if r.State() != RoomStateActive {
		return SideNone, EndReasonNone, false
	}
	switch {
	case len(r.Imposters) == 0:
		return SideCrew, EndReasonImpostersEjected, true
	case len(r.Survivors) <= len(r.Imposters)*2:
		return SideImposters, EndReasonCrewOutnumbered, true
	case r.CompletedTasks >= totalTasks:
		return SideCrew, EndReasonTasksCompleted, true
	}
	return SideNone, EndReasonNone, false
}

// End 结束游戏，EndedAt 只会被设置一次
func (r *Room) End(side Side, reason EndReason, now time.Time) bool {
	if r.EndedAt != nil {
		return false
	}
	r.EndedAt = &now
	r.Winner = side
	r.EndReason = reason
	return true
}

// Settle 判定胜负并在满足条件时结束游戏，返回本次是否结束
func (r *Room) Settle(totalTasks int, now time.Time) bool {
	side, reason, over := r.Evaluate(totalTasks)
	if !over {
		return false
	}
	return r.End(side, reason, now)
}

// Expired 从开始到现在经过的分钟数（向上取整）是否超过时长
func (r *Room) Expired(durationMinutes int, now time.Time) bool {
	if r.StartedAt == nil {
		return false
	}
	elapsed := now.Sub(*r.StartedAt)
	minutes := int(elapsed / time.Minute)
	if elapsed%time.Minute > 0 {
		minutes++
	}
	return minutes > durationMinutes
}

// ImpostersVisibleTo 内鬼名单是否对该玩家可见
func (r *Room) ImpostersVisibleTo(playerID string) bool {
	return r.EndedAt != nil || r.IsImposter(playerID)
}

// Clone 深拷贝，修改副本校验通过后再提交
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Participants = slices.Clone(r.Participants)
	c.Survivors = slices.Clone(r.Survivors)
	c.Imposters = slices.Clone(r.Imposters)
	c.Corpses = slices.Clone(r.Corpses)
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.EndedAt != nil {
		t := *r.EndedAt
		c.EndedAt = &t
	}
	return &c
}
