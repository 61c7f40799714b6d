//go:build !production

package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/server/storage"
)

// MockStore 实现 storage.Store 的 mock
type MockStore struct {
	mock.Mock
}

var _ storage.Store = (*MockStore)(nil)

func (m *MockStore) SaveTemplate(ctx context.Context, tpl *model.GameTemplate) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}

func (m *MockStore) LoadTemplate(ctx context.Context, id string) (*model.GameTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GameTemplate), args.Error(1)
}

func (m *MockStore) ListTemplates(ctx context.Context, filter storage.TemplateFilter) ([]*model.GameTemplate, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.GameTemplate), args.Error(1)
}

func (m *MockStore) ReserveRoomCode(ctx context.Context, code, roomID string) (bool, error) {
	args := m.Called(ctx, code, roomID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) SaveRoom(ctx context.Context, room *model.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockStore) LoadRoom(ctx context.Context, id string) (*model.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockStore) LoadRoomByCode(ctx context.Context, code string) (*model.Room, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockStore) SaveVoteSession(ctx context.Context, session *model.VoteSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockStore) LoadVoteSession(ctx context.Context, id string) (*model.VoteSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VoteSession), args.Error(1)
}

func (m *MockStore) OpenVoteSession(ctx context.Context, roomID string) (*model.VoteSession, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VoteSession), args.Error(1)
}

func (m *MockStore) CloseVoteSession(ctx context.Context, room *model.Room, session *model.VoteSession) error {
	args := m.Called(ctx, room, session)
	return args.Error(0)
}

func (m *MockStore) SavePlayer(ctx context.Context, player *model.Player) error {
	args := m.Called(ctx, player)
	return args.Error(0)
}

func (m *MockStore) LoadPlayer(ctx context.Context, id string) (*model.Player, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Player), args.Error(1)
}
