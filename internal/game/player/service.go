// Package player 管理玩家资料和位置。
package player

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/palemoky/imposter/internal/apperrors"
	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/notify"
	"github.com/palemoky/imposter/internal/server/storage"
)

// Profile 可编辑的玩家资料
type Profile struct {
	Name  string
	Color string
	Hat   string
}

// Service 玩家服务
type Service struct {
	store     storage.Store
	publisher notify.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService 创建玩家服务
func NewService(store storage.Store, publisher notify.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = notify.NewHub(logger)
	}
	return &Service{store: store, publisher: publisher, logger: logger, now: time.Now}
}

// Edit 编辑玩家资料，id 为空时创建新玩家。位置会被重置。
func (s *Service) Edit(ctx context.Context, id string, profile Profile) (*model.Player, error) {
	var player *model.Player
	if id == "" {
		player = &model.Player{ID: uuid.NewString()}
	} else {
		loaded, err := s.store.LoadPlayer(ctx, id)
		if err != nil {
			return nil, err
		}
		player = loaded
	}

	player.Name = strings.TrimSpace(profile.Name)
	player.Color = profile.Color
	player.Hat = profile.Hat
	player.Location = model.Location{}
	if err := player.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	s.logger.Info("🙋 玩家资料已更新", zap.String("player_id", player.ID), zap.String("name", player.Name))
	return player, nil
}

// Register 确保玩家存在，用于连接握手时携带了未知的玩家 ID
func (s *Service) Register(ctx context.Context, id string) (*model.Player, error) {
	player, err := s.store.LoadPlayer(ctx, id)
	if err == nil {
		return player, nil
	}
	if !errors.Is(err, apperrors.ErrPlayerNotFound) {
		return nil, err
	}

	player = &model.Player{ID: id, Name: "Player-" + shortID(id)}
	if err := s.store.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	return player, nil
}

// Get 读取玩家
func (s *Service) Get(ctx context.Context, id string) (*model.Player, error) {
	return s.store.LoadPlayer(ctx, id)
}

// UpdateLocation 更新位置，并推送给玩家所在进行中房间的其他参与者
func (s *Service) UpdateLocation(ctx context.Context, id string, loc model.Location) (*model.Player, error) {
	player, err := s.store.LoadPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	player.Location = loc
	if err := s.store.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	room, err := s.activeRoom(ctx, player)
	if err != nil || room == nil {
		return player, err
	}

	ev := notify.Event{
		Topic:   notify.TopicPlayerLocationChanged,
		RoomID:  room.ID,
		Members: room.Participants,
		Player:  player,
		At:      s.now(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("📣 位置推送失败", zap.String("player_id", id), zap.Error(err))
		return nil, apperrors.WithRoom(apperrors.Infra("publish location", err), room.ID)
	}
	return player, nil
}

// activeRoom 玩家最近加入且正在进行的房间，没有时返回 nil
func (s *Service) activeRoom(ctx context.Context, player *model.Player) (*model.Room, error) {
	if player.RoomID == "" {
		return nil, nil
	}
	room, err := s.store.LoadRoom(ctx, player.RoomID)
	if errors.Is(err, apperrors.ErrRoomNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if room.State() != model.RoomStateActive || !room.IsParticipant(player.ID) {
		return nil, nil
	}
	return room, nil
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
