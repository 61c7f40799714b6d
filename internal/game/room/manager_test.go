package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/imposter/internal/apperrors"
	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/notify"
	"github.com/palemoky/imposter/internal/server/storage"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	rm    *RoomManager
	store *storage.MemoryStore
	hub   *notify.Hub
	clock *fakeClock
	tpl   *model.GameTemplate
}

func newFixture(t *testing.T, maxParticipants, imposterCount, totalTasks int) *fixture {
	t.Helper()

	store := storage.NewMemoryStore()
	hub := notify.NewHub(nil)
	clock := newFakeClock()
	tpl := &model.GameTemplate{
		ID:              "g1",
		Name:            "Campus",
		MaxParticipants: maxParticipants,
		ImposterCount:   imposterCount,
		TotalTasks:      totalTasks,
		DurationMinutes: 30,
		CreatedAt:       clock.Now(),
	}
	require.NoError(t, store.SaveTemplate(context.Background(), tpl))

	for i := range maxParticipants + 1 {
		id := fmt.Sprintf("p%d", i)
		require.NoError(t, store.SavePlayer(context.Background(), &model.Player{ID: id, Name: "Player " + id}))
	}

	rm := NewRoomManager(store, hub, nil, Options{
		Now:  clock.Now,
		Rand: rand.New(rand.NewPCG(1, 2)),
	})
	return &fixture{rm: rm, store: store, hub: hub, clock: clock, tpl: tpl}
}

// lobby 创建房间并让 p0..p(n-1) 加入
func (f *fixture) lobby(t *testing.T, n int) *model.Room {
	t.Helper()
	ctx := context.Background()

	room, err := f.rm.CreateRoom(ctx, f.tpl.ID)
	require.NoError(t, err)
	for i := range n {
		room, err = f.rm.JoinRoom(ctx, room.Code, fmt.Sprintf("p%d", i))
		require.NoError(t, err)
	}
	return room
}

// started 开始游戏并把内鬼固定为指定玩家
func (f *fixture) started(t *testing.T, n int, imposters ...string) *model.Room {
	t.Helper()
	ctx := context.Background()

	room, err := f.rm.StartRoom(ctx, f.lobby(t, n).ID)
	require.NoError(t, err)

	room.Imposters = imposters
	require.NoError(t, f.store.SaveRoom(ctx, room))
	return room
}

func (f *fixture) load(t *testing.T, roomID string) *model.Room {
	t.Helper()
	room, err := f.store.LoadRoom(context.Background(), roomID)
	require.NoError(t, err)
	return room
}

func ptr(s string) *string { return &s }

func TestCreateRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 2, 10)
	ctx := context.Background()

	room, err := f.rm.CreateRoom(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, model.RoomStateLobby, room.State())
	assert.Len(t, room.Code, roomCodeLength)
	for _, c := range room.Code {
		assert.Contains(t, roomCodeChars, string(c))
	}
	assert.Empty(t, room.Participants)
	assert.Zero(t, room.CompletedTasks)

	byCode, err := f.store.LoadRoomByCode(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, room.ID, byCode.ID)

	_, err = f.rm.CreateRoom(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrTemplateNotFound)
}

// collidingStore 前 collisions 次占用房间码失败
type collidingStore struct {
	*storage.MemoryStore
	mu         sync.Mutex
	collisions int
	attempts   int
}

func (s *collidingStore) ReserveRoomCode(ctx context.Context, code, roomID string) (bool, error) {
	s.mu.Lock()
	s.attempts++
	collide := s.attempts <= s.collisions
	s.mu.Unlock()
	if collide {
		return false, nil
	}
	return s.MemoryStore.ReserveRoomCode(ctx, code, roomID)
}

// flakyStore 让玩家保存和投票结算各失败指定次数
type flakyStore struct {
	*storage.MemoryStore
	mu          sync.Mutex
	playerFails int
	closeFails  int
}

func (s *flakyStore) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	fail := s.playerFails > 0
	if fail {
		s.playerFails--
	}
	s.mu.Unlock()
	if fail {
		return apperrors.Infra("save player", errors.New("connection reset"))
	}
	return s.MemoryStore.SavePlayer(ctx, player)
}

func (s *flakyStore) CloseVoteSession(ctx context.Context, room *model.Room, session *model.VoteSession) error {
	s.mu.Lock()
	fail := s.closeFails > 0
	if fail {
		s.closeFails--
	}
	s.mu.Unlock()
	if fail {
		return apperrors.Infra("close vote session", errors.New("connection reset"))
	}
	return s.MemoryStore.CloseVoteSession(ctx, room, session)
}

func TestCreateRoom_RetriesCodeCollisions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	base := storage.NewMemoryStore()
	require.NoError(t, base.SaveTemplate(ctx, &model.GameTemplate{ID: "g1", MaxParticipants: 4, ImposterCount: 1, TotalTasks: 1, DurationMinutes: 1}))

	store := &collidingStore{MemoryStore: base, collisions: 3}
	rm := NewRoomManager(store, nil, nil, Options{CodeAttempts: 4})
	_, err := rm.CreateRoom(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 4, store.attempts)

	exhausted := &collidingStore{MemoryStore: base, collisions: 10}
	rm = NewRoomManager(exhausted, nil, nil, Options{CodeAttempts: 4})
	_, err = rm.CreateRoom(ctx, "g1")
	assert.ErrorIs(t, err, apperrors.ErrInfrastructure)
	assert.Equal(t, 4, exhausted.attempts)
}

func TestJoinRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 4, 1, 10)
	ctx := context.Background()

	room := f.lobby(t, 3)
	assert.Equal(t, []string{"p0", "p1", "p2"}, room.Participants)
	assert.Equal(t, room.Participants, room.Survivors)

	player, err := f.store.LoadPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, room.ID, player.RoomID)

	_, err = f.rm.JoinRoom(ctx, room.Code, "p1")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyJoined)
	assert.Equal(t, room.ID, apperrors.RoomIDOf(err))

	_, err = f.rm.JoinRoom(ctx, room.Code, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrPlayerNotFound)

	_, err = f.rm.JoinRoom(ctx, "NOSUCH00", "p3")
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)

	room, err = f.rm.JoinRoomByID(ctx, room.ID, "p3")
	require.NoError(t, err)
	assert.Len(t, room.Participants, 4)

	_, err = f.rm.JoinRoom(ctx, room.Code, "p4")
	assert.ErrorIs(t, err, apperrors.ErrRoomFull)
	assert.Len(t, f.load(t, room.ID).Participants, 4, "rejected join must not be saved")
}

func TestJoinRoom_AfterStart(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 1, 10)
	ctx := context.Background()

	room := f.started(t, 3, "p0")
	_, err := f.rm.JoinRoom(ctx, room.Code, "p5")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyStarted)
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))
}

func TestStartRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 2, 10)
	ctx := context.Background()

	room := f.lobby(t, 4)
	_, err := f.rm.StartRoom(ctx, room.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRoster)
	assert.Equal(t, model.RoomStateLobby, f.load(t, room.ID).State())

	_, err = f.rm.JoinRoomByID(ctx, room.ID, "p4")
	require.NoError(t, err)

	started, err := f.rm.StartRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomStateActive, started.State())
	assert.Equal(t, f.clock.Now(), *started.StartedAt)
	require.Len(t, started.Imposters, 2)
	assert.Subset(t, started.Participants, started.Imposters)
	assert.NotEqual(t, started.Imposters[0], started.Imposters[1])
	assert.Len(t, started.Survivors, 5)

	_, err = f.rm.StartRoom(ctx, room.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyStarted)
}

func TestCompleteTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 1, 3)
	ctx := context.Background()

	lobby := f.lobby(t, 3)
	_, err := f.rm.CompleteTask(ctx, lobby.ID)
	assert.ErrorIs(t, err, apperrors.ErrGameNotStarted)

	room, err := f.rm.StartRoom(ctx, lobby.ID)
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		room, err = f.rm.CompleteTask(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, i, room.CompletedTasks)
		assert.Nil(t, room.EndedAt)
	}

	room, err = f.rm.CompleteTask(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, room.CompletedTasks)
	require.NotNil(t, room.EndedAt)
	assert.Equal(t, model.SideCrew, room.Winner)
	assert.Equal(t, model.EndReasonTasksCompleted, room.EndReason)
	endedAt := *room.EndedAt

	// 已结束：原样返回
	f.clock.Advance(time.Minute)
	again, err := f.rm.CompleteTask(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, again.CompletedTasks)
	assert.Equal(t, endedAt, *again.EndedAt)
	assert.Equal(t, room.Version, again.Version)
}

func TestReportKill_RatioBoundary(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 2, 10)
	ctx := context.Background()

	room := f.started(t, 6, "p0", "p1")
	loc := model.Location{Latitude: 25.03, Longitude: 121.56}

	// 5 > 4，游戏继续
	room, err := f.rm.ReportKill(ctx, room.ID, "p0", "p2", loc)
	require.NoError(t, err)
	assert.Nil(t, room.EndedAt)
	assert.Equal(t, []string{"p0", "p1", "p3", "p4", "p5"}, room.Survivors)
	require.Len(t, room.Corpses, 1)
	assert.Equal(t, model.Corpse{PlayerID: "p2", Location: loc, At: f.clock.Now(), KilledBy: "p0"}, room.Corpses[0])

	_, err = f.rm.ReportKill(ctx, room.ID, "p0", "p1", loc)
	assert.ErrorIs(t, err, apperrors.ErrImposterTarget)
	_, err = f.rm.ReportKill(ctx, room.ID, "p0", "p2", loc)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTarget)
	_, err = f.rm.ReportKill(ctx, room.ID, "p0", "ghost", loc)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTarget)

	// 4 <= 4，内鬼获胜
	room, err = f.rm.ReportKill(ctx, room.ID, "p1", "p3", loc)
	require.NoError(t, err)
	require.NotNil(t, room.EndedAt)
	assert.Equal(t, model.SideImposters, room.Winner)
	assert.Equal(t, model.EndReasonCrewOutnumbered, room.EndReason)
	assert.Len(t, room.Corpses, 2)

	_, err = f.rm.ReportKill(ctx, room.ID, "p0", "p4", loc)
	assert.ErrorIs(t, err, apperrors.ErrGameEnded)
}

func TestReportKill_NotStarted(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 1, 10)

	room := f.lobby(t, 3)
	_, err := f.rm.ReportKill(context.Background(), room.ID, "p0", "p1", model.Location{})
	assert.ErrorIs(t, err, apperrors.ErrGameNotStarted)
}

func TestVote_PluralityEjectsImposter(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 1, 10)
	ctx := context.Background()

	room := f.started(t, 4, "p1")
	session, err := f.rm.StartVoteSession(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, session.SurvivorCountAtOpen)

	ballots := [][2]string{{"p0", "p1"}, {"p1", "p2"}, {"p2", "p1"}}
	for _, b := range ballots {
		session, err = f.rm.CastVote(ctx, session.ID, b[0], ptr(b[1]))
		require.NoError(t, err)
		assert.False(t, session.Completed)
	}

	session, err = f.rm.CastVote(ctx, session.ID, "p3", ptr("p1"))
	require.NoError(t, err)
	assert.True(t, session.Completed)
	require.NotNil(t, session.EjectedPlayerID)
	assert.Equal(t, "p1", *session.EjectedPlayerID)
	assert.Equal(t, []model.TallyItem{{NomineeID: "p1", Votes: 3}, {NomineeID: "p2", Votes: 1}}, session.Tally)

	room = f.load(t, room.ID)
	assert.Equal(t, []string{"p0", "p2", "p3"}, room.Survivors)
	assert.Empty(t, room.Imposters)
	assert.Equal(t, model.SideCrew, room.Winner)
	assert.Equal(t, model.EndReasonImpostersEjected, room.EndReason)

	open, err := f.store.OpenVoteSession(ctx, room.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestVote_TieEjectsFirstSeenNominee(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 1, 10)
	ctx := context.Background()

	// A=p0, B=p1, C=p2
	room := f.started(t, 3, "p0")
	session, err := f.rm.StartVoteSession(ctx, room.ID)
	require.NoError(t, err)

	_, err = f.rm.CastVote(ctx, session.ID, "p0", ptr("p1"))
	require.NoError(t, err)
	_, err = f.rm.CastVote(ctx, session.ID, "p1", ptr("p0"))
	require.NoError(t, err)
	session, err = f.rm.CastVote(ctx, session.ID, "p2", nil)
	require.NoError(t, err)

	require.True(t, session.Completed)
	require.NotNil(t, session.EjectedPlayerID)
	assert.Equal(t, "p1", *session.EjectedPlayerID)

	// 剩余 2 人，2 <= 2，内鬼获胜
	room = f.load(t, room.ID)
	assert.Equal(t, []string{"p0", "p2"}, room.Survivors)
	assert.Equal(t, model.SideImposters, room.Winner)
	assert.Equal(t, model.EndReasonCrewOutnumbered, room.EndReason)
}

func TestVote_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 1, 10)
	ctx := context.Background()

	room := f.started(t, 7, "p0")
	room, err := f.rm.ReportKill(ctx, room.ID, "p0", "p6", model.Location{})
	require.NoError(t, err)

	session, err := f.rm.StartVoteSession(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, session.SurvivorCountAtOpen)

	_, err = f.rm.StartVoteSession(ctx, room.ID)
	assert.ErrorIs(t, err, apperrors.ErrVoteInProgress)
	_, err = f.rm.ReportKill(ctx, room.ID, "p0", "p5", model.Location{})
	assert.ErrorIs(t, err, apperrors.ErrVoteInProgress)

	_, err = f.rm.CastVote(ctx, session.ID, "p0", nil)
	require.NoError(t, err)
	_, err = f.rm.CastVote(ctx, session.ID, "p0", ptr("p1"))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateVote)
	_, err = f.rm.CastVote(ctx, session.ID, "p6", nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidVoter)
	_, err = f.rm.CastVote(ctx, session.ID, "ghost", nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidVoter)
	_, err = f.rm.CastVote(ctx, session.ID, "p1", ptr("p6"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidNominee)
	_, err = f.rm.CastVote(ctx, "missing", "p1", nil)
	assert.ErrorIs(t, err, apperrors.ErrVoteNotFound)

	// 其余全部弃权：无人出局
	for _, voter := range []string{"p1", "p2", "p3", "p4", "p5"} {
		session, err = f.rm.CastVote(ctx, session.ID, voter, nil)
		require.NoError(t, err)
	}
	assert.True(t, session.Completed)
	assert.Nil(t, session.EjectedPlayerID)
	assert.Empty(t, session.Tally)

	_, err = f.rm.CastVote(ctx, session.ID, "p1", nil)
	assert.ErrorIs(t, err, apperrors.ErrVoteClosed)

	room = f.load(t, room.ID)
	assert.Len(t, room.Survivors, 6)
	assert.Nil(t, room.EndedAt)

	// 上一轮结束后可以开启新一轮
	_, err = f.rm.StartVoteSession(ctx, room.ID)
	assert.NoError(t, err)
}

func TestStartVoteSession_RequiresActiveRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 1, 1)
	ctx := context.Background()

	lobby := f.lobby(t, 3)
	_, err := f.rm.StartVoteSession(ctx, lobby.ID)
	assert.ErrorIs(t, err, apperrors.ErrGameNotStarted)

	room, err := f.rm.StartRoom(ctx, lobby.ID)
	require.NoError(t, err)
	_, err = f.rm.CompleteTask(ctx, room.ID)
	require.NoError(t, err)

	_, err = f.rm.StartVoteSession(ctx, room.ID)
	assert.ErrorIs(t, err, apperrors.ErrGameEnded)
}

func TestEndRoomIfExpired(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 1, 10)
	ctx := context.Background()

	lobby := f.lobby(t, 3)
	f.clock.Advance(time.Hour)
	same, err := f.rm.EndRoomIfExpired(ctx, lobby.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomStateLobby, same.State())

	room, err := f.rm.StartRoom(ctx, lobby.ID)
	require.NoError(t, err)

	// 29 分 59 秒向上取整为 30 分钟，不超过时长
	f.clock.Advance(29*time.Minute + 59*time.Second)
	room, err = f.rm.EndRoomIfExpired(ctx, room.ID)
	require.NoError(t, err)
	assert.Nil(t, room.EndedAt)

	f.clock.Advance(2 * time.Second)
	room, err = f.rm.EndRoomIfExpired(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, room.EndedAt)
	assert.Equal(t, model.SideImposters, room.Winner)
	assert.Equal(t, model.EndReasonTimeout, room.EndReason)
	endedAt := *room.EndedAt

	f.clock.Advance(time.Hour)
	room, err = f.rm.EndRoomIfExpired(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, endedAt, *room.EndedAt)

	_, err = f.rm.EndRoomIfExpired(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
}

func TestCompleteTask_ConcurrentCallsAreSerialized(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 1, 1000)
	ctx := context.Background()

	room := f.started(t, 3, "p0")

	const workers = 25
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.rm.CompleteTask(ctx, room.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	assert.Equal(t, workers, f.load(t, room.ID).CompletedTasks)
	assert.Zero(t, f.rm.locker.size())
}

func TestNotifications(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 1, 10)
	ctx := context.Background()

	var mu sync.Mutex
	var got []notify.Event
	record := func(ev notify.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	}
	for _, topic := range notify.Topics {
		f.hub.Subscribe(topic, notify.Subscriber{PlayerID: "p0"}, nil, record)
	}

	room := f.started(t, 4, "p3")
	_, err := f.rm.ReportKill(ctx, room.ID, "p3", "p1", model.Location{})
	require.NoError(t, err)
	_, err = f.rm.StartVoteSession(ctx, room.ID)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	topics := make([]notify.Topic, len(got))
	for i, ev := range got {
		topics[i] = ev.Topic
		assert.Equal(t, room.ID, ev.RoomID)
	}
	// 四次加入、开始、击杀、投票
	assert.Equal(t, []notify.Topic{
		notify.TopicRoomStateChanged,
		notify.TopicRoomStateChanged,
		notify.TopicRoomStateChanged,
		notify.TopicRoomStateChanged,
		notify.TopicRoomStateChanged,
		notify.TopicCorpseReported,
		notify.TopicVoteSessionChanged,
	}, topics)

	corpse := got[5]
	require.Len(t, corpse.Corpses, 1)
	assert.Equal(t, "p1", corpse.Corpses[0].PlayerID)
	assert.NotNil(t, got[6].Vote)
}

func TestPublishFailureKeepsCommittedState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := storage.NewMemoryStore()
	require.NoError(t, store.SaveTemplate(ctx, &model.GameTemplate{ID: "g1", MaxParticipants: 4, ImposterCount: 1, TotalTasks: 1, DurationMinutes: 1}))
	require.NoError(t, store.SavePlayer(ctx, &model.Player{ID: "p0", Name: "Alice"}))

	publisher := &notify.MockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	rm := NewRoomManager(store, publisher, nil, Options{})
	room, err := rm.CreateRoom(ctx, "g1")
	require.NoError(t, err)

	_, err = rm.JoinRoomByID(ctx, room.ID, "p0")
	assert.ErrorIs(t, err, apperrors.ErrInfrastructure)
	assert.True(t, apperrors.KindOf(err).Retryable())
	assert.Equal(t, room.ID, apperrors.RoomIDOf(err))

	saved, err := store.LoadRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p0"}, saved.Participants)
	publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestJoinRoom_RetryAfterPlayerSaveFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 4, 1, 10)
	ctx := context.Background()

	store := &flakyStore{MemoryStore: f.store, playerFails: 1}
	rm := NewRoomManager(store, nil, nil, Options{Now: f.clock.Now})
	room, err := rm.CreateRoom(ctx, f.tpl.ID)
	require.NoError(t, err)

	_, err = rm.JoinRoomByID(ctx, room.ID, "p0")
	assert.ErrorIs(t, err, apperrors.ErrInfrastructure)
	assert.Empty(t, f.load(t, room.ID).Participants, "failed join must not commit the room")

	joined, err := rm.JoinRoomByID(ctx, room.ID, "p0")
	require.NoError(t, err)
	assert.Equal(t, []string{"p0"}, joined.Participants)

	player, err := f.store.LoadPlayer(ctx, "p0")
	require.NoError(t, err)
	assert.Equal(t, room.ID, player.RoomID)
}

func TestVote_RetryAfterCloseFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 8, 2, 10)
	ctx := context.Background()

	room := f.started(t, 7, "p5", "p6")
	store := &flakyStore{MemoryStore: f.store, closeFails: 1}
	rm := NewRoomManager(store, nil, nil, Options{Now: f.clock.Now})

	session, err := rm.StartVoteSession(ctx, room.ID)
	require.NoError(t, err)
	for i := range 6 {
		_, err = rm.CastVote(ctx, session.ID, fmt.Sprintf("p%d", i), ptr("p6"))
		require.NoError(t, err)
	}

	_, err = rm.CastVote(ctx, session.ID, "p6", nil)
	assert.ErrorIs(t, err, apperrors.ErrInfrastructure)
	assert.True(t, apperrors.KindOf(err).Retryable())

	// 结算失败时房间和投票都保持原状
	assert.Contains(t, f.load(t, room.ID).Survivors, "p6")
	open, err := f.store.OpenVoteSession(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Len(t, open.Entries, 6)

	closed, err := rm.CastVote(ctx, session.ID, "p6", nil)
	require.NoError(t, err)
	assert.True(t, closed.Completed)
	require.NotNil(t, closed.EjectedPlayerID)
	assert.Equal(t, "p6", *closed.EjectedPlayerID)

	after := f.load(t, room.ID)
	assert.Equal(t, []string{"p0", "p1", "p2", "p3", "p4", "p5"}, after.Survivors)
	assert.Equal(t, []string{"p5"}, after.Imposters)
	assert.Equal(t, model.RoomStateActive, after.State())

	_, err = rm.StartVoteSession(ctx, room.ID)
	assert.NoError(t, err, "next vote can open once the previous one closed")
}

func TestLocker(t *testing.T) {
	t.Parallel()

	l := NewLocker()
	counter := map[string]*int{"r0": new(int), "r1": new(int), "r2": new(int)}
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("r%d", i%3)
			unlock := l.Lock(key)
			defer unlock()
			*counter[key]++
		}()
	}
	wg.Wait()

	assert.Equal(t, 17, *counter["r0"])
	assert.Equal(t, 17, *counter["r1"])
	assert.Equal(t, 16, *counter["r2"])
	assert.Zero(t, l.size())
}
