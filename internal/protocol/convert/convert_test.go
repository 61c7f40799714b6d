package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/notify"
)

func startedRoom() *model.Room {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := model.NewRoom("r1", "ABCD1234", "g1", now)
	for _, id := range []string{"a", "b", "c", "d"} {
		r.AddParticipant(id)
	}
	r.Imposters = []string{"b"}
	r.StartedAt = &now
	r.RemoveSurvivor("c")
	r.Corpses = append(r.Corpses, model.Corpse{PlayerID: "c", At: now.Add(time.Minute), KilledBy: "b"})
	return r
}

func TestRoomInfo_RedactsImposters(t *testing.T) {
	t.Parallel()

	room := startedRoom()

	crew := RoomInfo(room, "a")
	assert.Nil(t, crew.Imposters)
	assert.Equal(t, "active", crew.State)
	assert.Equal(t, []string{"a", "b", "d"}, crew.Survivors)
	require.Len(t, crew.Corpses, 1)
	assert.Equal(t, room.StartedAt.Add(time.Minute).UnixMilli(), crew.Corpses[0].At)

	assert.Equal(t, []string{"b"}, RoomInfo(room, "b").Imposters)

	now := time.Now()
	room.End(model.SideCrew, model.EndReasonImpostersEjected, now)
	ended := RoomInfo(room, "a")
	assert.Equal(t, []string{"b"}, ended.Imposters)
	assert.Equal(t, "crew", ended.Winner)
	assert.Equal(t, now.UnixMilli(), ended.EndedAt)
}

func TestVoteSessionInfo(t *testing.T) {
	t.Parallel()

	room := startedRoom()
	s := model.NewVoteSession("v1", room, time.Now())
	nominee := "b"
	s.Entries = []model.VoteEntry{{VoterID: "a", NomineeID: &nominee}, {VoterID: "d"}}
	s.Tally = []model.TallyItem{{NomineeID: "b", Votes: 1}}

	info := VoteSessionInfo(s)
	assert.Equal(t, 3, info.Expected)
	require.Len(t, info.Entries, 2)
	assert.Equal(t, "b", *info.Entries[0].NomineeID)
	assert.Nil(t, info.Entries[1].NomineeID)
	assert.Len(t, info.Tally, 1)
	assert.Nil(t, VoteSessionInfo(nil))
}

func TestEvent(t *testing.T) {
	t.Parallel()

	room := startedRoom()
	ev := notify.RoomEvent(notify.TopicCorpseReported, room, time.Now())
	ev.Corpses = room.Corpses

	payload := Event(ev, "a")
	assert.Equal(t, "corpse-reported", payload.Topic)
	assert.Equal(t, "r1", payload.RoomID)
	assert.Nil(t, payload.Room.Imposters)
	assert.Len(t, payload.Corpses, 1)
	assert.Nil(t, payload.Vote)
	assert.Nil(t, payload.Player)
}
