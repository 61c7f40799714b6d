package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/palemoky/imposter/internal/apperrors"
	"github.com/palemoky/imposter/internal/game/model"
)

// MemoryStore 进程内存储，用于单机部署和测试。
// 读写均做拷贝，调用方持有的对象不会与存储共享。
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]*model.GameTemplate
	rooms     map[string]*model.Room
	codes     map[string]string
	votes     map[string]*model.VoteSession
	openVotes map[string]string // roomID -> sessionID
	players   map[string]*model.Player
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string]*model.GameTemplate),
		rooms:     make(map[string]*model.Room),
		codes:     make(map[string]string),
		votes:     make(map[string]*model.VoteSession),
		openVotes: make(map[string]string),
		players:   make(map[string]*model.Player),
	}
}

func copyTemplate(t *model.GameTemplate) *model.GameTemplate {
	c := *t
	c.CheckPoints = slices.Clone(t.CheckPoints)
	return &c
}

func (ms *MemoryStore) SaveTemplate(_ context.Context, tpl *model.GameTemplate) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.templates[tpl.ID] = copyTemplate(tpl)
	return nil
}

func (ms *MemoryStore) LoadTemplate(_ context.Context, id string) (*model.GameTemplate, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	tpl, ok := ms.templates[id]
	if !ok {
		return nil, apperrors.ErrTemplateNotFound
	}
	return copyTemplate(tpl), nil
}

func (ms *MemoryStore) ListTemplates(_ context.Context, filter TemplateFilter) ([]*model.GameTemplate, error) {
	ms.mu.RLock()
	all := make([]*model.GameTemplate, 0, len(ms.templates))
	for _, tpl := range ms.templates {
		all = append(all, copyTemplate(tpl))
	}
	ms.mu.RUnlock()

	slices.SortFunc(all, func(a, b *model.GameTemplate) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return filter.Apply(all), nil
}

func (ms *MemoryStore) ReserveRoomCode(_ context.Context, code, roomID string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, taken := ms.codes[code]; taken {
		return false, nil
	}
	ms.codes[code] = roomID
	return true, nil
}

func (ms *MemoryStore) SaveRoom(_ context.Context, room *model.Room) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var stored int64
	if existing, ok := ms.rooms[room.ID]; ok {
		stored = existing.Version
	}
	if stored != room.Version {
		return apperrors.Detail(apperrors.ErrVersionConflict, "房间 %s 版本 %d，写入版本 %d", room.ID, stored, room.Version)
	}

	room.Version++
	ms.rooms[room.ID] = room.Clone()
	return nil
}

func (ms *MemoryStore) LoadRoom(_ context.Context, id string) (*model.Room, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	room, ok := ms.rooms[id]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (ms *MemoryStore) LoadRoomByCode(ctx context.Context, code string) (*model.Room, error) {
	ms.mu.RLock()
	id, ok := ms.codes[code]
	ms.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	return ms.LoadRoom(ctx, id)
}

func (ms *MemoryStore) SaveVoteSession(_ context.Context, session *model.VoteSession) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.votes[session.ID] = session.Clone()
	if session.Completed {
		if ms.openVotes[session.RoomID] == session.ID {
			delete(ms.openVotes, session.RoomID)
		}
	} else {
		ms.openVotes[session.RoomID] = session.ID
	}
	return nil
}

func (ms *MemoryStore) LoadVoteSession(_ context.Context, id string) (*model.VoteSession, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	session, ok := ms.votes[id]
	if !ok {
		return nil, apperrors.ErrVoteNotFound
	}
	return session.Clone(), nil
}

func (ms *MemoryStore) OpenVoteSession(_ context.Context, roomID string) (*model.VoteSession, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	id, ok := ms.openVotes[roomID]
	if !ok {
		return nil, nil
	}
	return ms.votes[id].Clone(), nil
}

func (ms *MemoryStore) CloseVoteSession(_ context.Context, room *model.Room, session *model.VoteSession) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var stored int64
	if existing, ok := ms.rooms[room.ID]; ok {
		stored = existing.Version
	}
	if stored != room.Version {
		return apperrors.Detail(apperrors.ErrVersionConflict, "房间 %s 版本 %d，写入版本 %d", room.ID, stored, room.Version)
	}

	room.Version++
	ms.rooms[room.ID] = room.Clone()
	ms.votes[session.ID] = session.Clone()
	if ms.openVotes[session.RoomID] == session.ID {
		delete(ms.openVotes, session.RoomID)
	}
	return nil
}

func (ms *MemoryStore) SavePlayer(_ context.Context, player *model.Player) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	p := *player
	ms.players[player.ID] = &p
	return nil
}

func (ms *MemoryStore) LoadPlayer(_ context.Context, id string) (*model.Player, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	player, ok := ms.players[id]
	if !ok {
		return nil, apperrors.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}
