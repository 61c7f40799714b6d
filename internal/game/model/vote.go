package model

import (
	"slices"
	"time"
)

// VoteEntry 一张选票，NomineeID 为 nil 表示弃权
type VoteEntry struct {
	VoterID   string  `json:"voter_id"`
	NomineeID *string `json:"nominee_id,omitempty"`
}

// TallyItem 候选人得票
type TallyItem struct {
	NomineeID string `json:"nominee_id"`
	Votes     int    `json:"votes"`
}

// VoteSession 一轮讨论投票
type VoteSession struct {
	ID                  string      `json:"id"`
	RoomID              string      `json:"room_id"`
	Entries             []VoteEntry `json:"entries"`
	SurvivorCountAtOpen int         `json:"survivor_count_at_open"`
	Completed           bool        `json:"completed"`
	EjectedPlayerID     *string     `json:"ejected_player_id,omitempty"`
	Tally               []TallyItem `json:"tally,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	CompletedAt         *time.Time  `json:"completed_at,omitempty"`
}

// NewVoteSession 为房间开启一轮投票，记录开启时的存活人数
func NewVoteSession(id string, room *Room, now time.Time) *VoteSession {
	return &VoteSession{
		ID:                  id,
		RoomID:              room.ID,
		Entries:             []VoteEntry{},
		SurvivorCountAtOpen: len(room.Survivors),
		CreatedAt:           now,
	}
}

// HasVoted 该玩家是否已投票
func (s *VoteSession) HasVoted(voterID string) bool {
	return slices.ContainsFunc(s.Entries, func(e VoteEntry) bool { return e.VoterID == voterID })
}

// Full 选票数是否达到开启时的存活人数
func (s *VoteSession) Full() bool {
	return len(s.Entries) >= s.SurvivorCountAtOpen
}

// Clone 深拷贝
func (s *VoteSession) Clone() *VoteSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Entries = make([]VoteEntry, len(s.Entries))
	for i, e := range s.Entries {
		c.Entries[i] = VoteEntry{VoterID: e.VoterID, NomineeID: clonePtr(e.NomineeID)}
	}
	c.Tally = slices.Clone(s.Tally)
	c.EjectedPlayerID = clonePtr(s.EjectedPlayerID)
	c.CompletedAt = clonePtr(s.CompletedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
