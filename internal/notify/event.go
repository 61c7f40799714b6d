// Package notify 负责把房间变更推送给订阅者。
package notify

import (
	"context"
	"time"

	"github.com/palemoky/imposter/internal/game/model"
)

// Topic 通知主题
type Topic string

const (
	TopicRoomStateChanged      Topic = "room-state-changed"
	TopicCorpseReported        Topic = "corpse-reported"
	TopicPlayerLocationChanged Topic = "player-location-changed"
	TopicVoteSessionChanged    Topic = "vote-session-changed"
)

// Topics 全部主题
var Topics = []Topic{
	TopicRoomStateChanged,
	TopicCorpseReported,
	TopicPlayerLocationChanged,
	TopicVoteSessionChanged,
}

// Valid 是否为已知主题
func (t Topic) Valid() bool {
	switch t {
	case TopicRoomStateChanged, TopicCorpseReported, TopicPlayerLocationChanged, TopicVoteSessionChanged:
		return true
	}
	return false
}

// Event 一条通知。Members 为接收范围（房间参与者），由过滤器使用。
type Event struct {
	Topic   Topic              `json:"topic"`
	RoomID  string             `json:"room_id,omitempty"`
	Members []string           `json:"members,omitempty"`
	Room    *model.Room        `json:"room,omitempty"`
	Vote    *model.VoteSession `json:"vote,omitempty"`
	Corpses []model.Corpse     `json:"corpses,omitempty"`
	Player  *model.Player      `json:"player,omitempty"`
	At      time.Time          `json:"at"`
}

// Publisher 通知发布者
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// RoomEvent 构造房间相关通知，接收范围为房间参与者
func RoomEvent(topic Topic, room *model.Room, now time.Time) Event {
	return Event{
		Topic:   topic,
		RoomID:  room.ID,
		Members: append([]string(nil), room.Participants...),
		Room:    room,
		At:      now,
	}
}
