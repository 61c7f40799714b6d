package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/imposter/internal/apperrors"
)

func activeRoom(survivors, imposters []string) *Room {
	started := time.Now().Add(-time.Minute)
	r := NewRoom("r1", "CODE1234", "g1", started)
	for _, id := range survivors {
		r.AddParticipant(id)
	}
	r.Imposters = append(r.Imposters, imposters...)
	r.StartedAt = &started
	return r
}

func TestRoom_State(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := NewRoom("r1", "CODE", "g1", now)
	assert.Equal(t, RoomStateLobby, r.State())

	r.StartedAt = &now
	assert.Equal(t, RoomStateActive, r.State())

	assert.True(t, r.End(SideCrew, EndReasonTasksCompleted, now))
	assert.Equal(t, RoomStateEnded, r.State())
	assert.Equal(t, "ended", r.State().String())
}

func TestRoom_EndIsSetOnce(t *testing.T) {
	t.Parallel()

	r := activeRoom([]string{"a", "b", "c"}, []string{"a"})
	first := time.Now()
	require.True(t, r.End(SideCrew, EndReasonTasksCompleted, first))

	assert.False(t, r.End(SideImposters, EndReasonTimeout, first.Add(time.Hour)))
	assert.Equal(t, first, *r.EndedAt)
	assert.Equal(t, SideCrew, r.Winner)
	assert.Equal(t, EndReasonTasksCompleted, r.EndReason)
}

func TestRoom_EvaluateRatioBoundary(t *testing.T) {
	t.Parallel()

	// 5 > 2*2，游戏继续
	r := activeRoom([]string{"a", "b", "c", "d", "e"}, []string{"a", "b"})
	_, _, over := r.Evaluate(10)
	assert.False(t, over)

	// 3 <= 2*2，内鬼胜
	r = activeRoom([]string{"a", "b", "c"}, []string{"a", "b"})
	side, reason, over := r.Evaluate(10)
	assert.True(t, over)
	assert.Equal(t, SideImposters, side)
	assert.Equal(t, EndReasonCrewOutnumbered, reason)
}

func TestRoom_EvaluateCrewWins(t *testing.T) {
	t.Parallel()

	r := activeRoom([]string{"a", "b", "c"}, nil)
	side, reason, over := r.Evaluate(10)
	assert.True(t, over)
	assert.Equal(t, SideCrew, side)
	assert.Equal(t, EndReasonImpostersEjected, reason)

	r = activeRoom([]string{"a", "b", "c", "d"}, []string{"a"})
	r.CompletedTasks = 3
	side, reason, over = r.Evaluate(3)
	assert.True(t, over)
	assert.Equal(t, SideCrew, side)
	assert.Equal(t, EndReasonTasksCompleted, reason)
}

func TestRoom_EvaluateIgnoresLobby(t *testing.T) {
	t.Parallel()

	r := NewRoom("r1", "CODE", "g1", time.Now())
	_, _, over := r.Evaluate(1)
	assert.False(t, over)
	assert.False(t, r.Settle(1, time.Now()))
}

func TestRoom_Expired(t *testing.T) {
	t.Parallel()

	r := NewRoom("r1", "CODE", "g1", time.Now())
	assert.False(t, r.Expired(1, time.Now()), "lobby rooms never expire")

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.StartedAt = &start
	assert.False(t, r.Expired(10, start.Add(10*time.Minute)))
	// 10 分 1 秒向上取整为 11 分钟
	assert.True(t, r.Expired(10, start.Add(10*time.Minute+time.Second)))
}

func TestRoom_RemoveAndClone(t *testing.T) {
	t.Parallel()

	r := activeRoom([]string{"a", "b", "c"}, []string{"b"})
	c := r.Clone()

	assert.True(t, c.RemoveSurvivor("b"))
	assert.True(t, c.RemoveImposter("b"))
	assert.False(t, c.RemoveImposter("a"))

	assert.Equal(t, []string{"a", "b", "c"}, r.Survivors, "source room untouched")
	assert.Equal(t, []string{"b"}, r.Imposters)
	assert.Equal(t, []string{"a", "c"}, c.Survivors)
	assert.NotSame(t, r.StartedAt, c.StartedAt)
}

func TestRoom_ImpostersVisibleTo(t *testing.T) {
	t.Parallel()

	r := activeRoom([]string{"a", "b", "c"}, []string{"b"})
	assert.True(t, r.ImpostersVisibleTo("b"))
	assert.False(t, r.ImpostersVisibleTo("a"))

	r.End(SideCrew, EndReasonImpostersEjected, time.Now())
	assert.True(t, r.ImpostersVisibleTo("a"))
}

func TestVoteSession(t *testing.T) {
	t.Parallel()

	r := activeRoom([]string{"a", "b", "c"}, []string{"b"})
	s := NewVoteSession("v1", r, time.Now())
	assert.Equal(t, 3, s.SurvivorCountAtOpen)
	assert.False(t, s.Full())

	b := "b"
	s.Entries = append(s.Entries, VoteEntry{VoterID: "a", NomineeID: &b})
	assert.True(t, s.HasVoted("a"))
	assert.False(t, s.HasVoted("b"))

	c := s.Clone()
	*c.Entries[0].NomineeID = "c"
	assert.Equal(t, "b", *s.Entries[0].NomineeID)
}

func TestGameTemplate_Validate(t *testing.T) {
	t.Parallel()

	valid := GameTemplate{
		Name:            "campus",
		MaxParticipants: 10,
		ImposterCount:   2,
		TotalTasks:      5,
		DurationMinutes: 30,
		CheckPoints:     []CheckPoint{{Task: TaskWire}},
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, 30*time.Minute, valid.Duration())

	cases := map[string]func(g *GameTemplate){
		"empty name":      func(g *GameTemplate) { g.Name = " " },
		"one participant": func(g *GameTemplate) { g.MaxParticipants = 1 },
		"no imposter":     func(g *GameTemplate) { g.ImposterCount = 0 },
		"no task":         func(g *GameTemplate) { g.TotalTasks = 0 },
		"no duration":     func(g *GameTemplate) { g.DurationMinutes = 0 },
		"bad task type":   func(g *GameTemplate) { g.CheckPoints = []CheckPoint{{Task: "DANCE"}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			g := valid
			mutate(&g)
			assert.ErrorIs(t, g.Validate(), apperrors.ErrInvalidTemplate)
		})
	}
}
