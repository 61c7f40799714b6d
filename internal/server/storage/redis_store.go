package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/imposter/internal/apperrors"
	"github.com/palemoky/imposter/internal/game/model"
)

const (
	// Redis key 前缀
	templateKeyPrefix = "game:"
	templateIndexKey  = "games"
	roomKeyPrefix     = "room:"
	roomCodeKeyPrefix = "roomcode:"
	voteKeyPrefix     = "vote:"
	openVoteKeyPrefix = "vote:open:"
	playerKeyPrefix   = "player:"

	// 房间数据默认过期时间
	defaultRoomExpiration = 24 * time.Hour
)

// RedisStore Redis 存储
type RedisStore struct {
	client         *redis.Client
	roomExpiration time.Duration
}

// NewRedisStore 创建 Redis 存储，roomExpiration 为 0 时使用默认值
func NewRedisStore(client *redis.Client, roomExpiration time.Duration) *RedisStore {
	if roomExpiration <= 0 {
		roomExpiration = defaultRoomExpiration
	}
	return &RedisStore{client: client, roomExpiration: roomExpiration}
}

// --- 游戏模板 ---

// SaveTemplate 保存模板并写入按创建时间排序的索引
func (rs *RedisStore) SaveTemplate(ctx context.Context, tpl *model.GameTemplate) error {
	data, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("序列化模板失败: %w", err)
	}

	_, err = rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, templateKeyPrefix+tpl.ID, data, 0)
		pipe.ZAdd(ctx, templateIndexKey, redis.Z{Score: float64(tpl.CreatedAt.UnixNano()), Member: tpl.ID})
		return nil
	})
	return apperrors.Infra("save template", err)
}

// LoadTemplate 加载模板
func (rs *RedisStore) LoadTemplate(ctx context.Context, id string) (*model.GameTemplate, error) {
	var tpl model.GameTemplate
	if err := rs.getJSON(ctx, templateKeyPrefix+id, &tpl, apperrors.ErrTemplateNotFound); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListTemplates 按创建时间列出模板
func (rs *RedisStore) ListTemplates(ctx context.Context, filter TemplateFilter) ([]*model.GameTemplate, error) {
	ids, err := rs.client.ZRange(ctx, templateIndexKey, 0, -1).Result()
	if err != nil {
		return nil, apperrors.Infra("list templates", err)
	}
	if len(ids) == 0 {
		return []*model.GameTemplate{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = templateKeyPrefix + id
	}
	values, err := rs.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, apperrors.Infra("list templates", err)
	}

	all := make([]*model.GameTemplate, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // 索引残留
		}
		var tpl model.GameTemplate
		if err := json.Unmarshal([]byte(raw), &tpl); err != nil {
			return nil, apperrors.Infra("decode template", err)
		}
		all = append(all, &tpl)
	}
	return filter.Apply(all), nil
}

// --- 房间 ---

// ReserveRoomCode 占用房间码
func (rs *RedisStore) ReserveRoomCode(ctx context.Context, code, roomID string) (bool, error) {
	ok, err := rs.client.SetNX(ctx, roomCodeKeyPrefix+code, roomID, rs.roomExpiration).Result()
	if err != nil {
		return false, apperrors.Infra("reserve room code", err)
	}
	return ok, nil
}

// SaveRoom 使用 WATCH/MULTI 实现乐观锁写入
func (rs *RedisStore) SaveRoom(ctx context.Context, room *model.Room) error {
	key := roomKeyPrefix + room.ID

	err := rs.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored != room.Version {
			return apperrors.Detail(apperrors.ErrVersionConflict, "房间 %s 版本 %d，写入版本 %d", room.ID, stored, room.Version)
		}

		next := *room
		next.Version++
		data, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("序列化房间数据失败: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, rs.roomExpiration)
			pipe.Expire(ctx, roomCodeKeyPrefix+room.Code, rs.roomExpiration)
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return apperrors.Detail(apperrors.ErrVersionConflict, "房间 %s 被并发修改", room.ID)
	case err != nil:
		return apperrors.Infra("save room", err)
	}
	room.Version++
	return nil
}

func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, apperrors.Infra("decode room", err)
	}
	return head.Version, nil
}

// LoadRoom 加载房间
func (rs *RedisStore) LoadRoom(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	if err := rs.getJSON(ctx, roomKeyPrefix+id, &room, apperrors.ErrRoomNotFound); err != nil {
		return nil, err
	}
	return &room, nil
}

// LoadRoomByCode 通过房间码加载房间
func (rs *RedisStore) LoadRoomByCode(ctx context.Context, code string) (*model.Room, error) {
	id, err := rs.client.Get(ctx, roomCodeKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrRoomNotFound
	}
	if err != nil {
		return nil, apperrors.Infra("load room code", err)
	}
	return rs.LoadRoom(ctx, id)
}

// --- 投票 ---

// SaveVoteSession 保存投票，同时维护房间的未完成投票索引
func (rs *RedisStore) SaveVoteSession(ctx context.Context, session *model.VoteSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("序列化投票数据失败: %w", err)
	}

	openKey := openVoteKeyPrefix + session.RoomID
	_, err = rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, voteKeyPrefix+session.ID, data, rs.roomExpiration)
		if session.Completed {
			pipe.Del(ctx, openKey)
		} else {
			pipe.Set(ctx, openKey, session.ID, rs.roomExpiration)
		}
		return nil
	})
	return apperrors.Infra("save vote session", err)
}

// CloseVoteSession 在同一个 WATCH/MULTI 中写入房间、已完成的投票并清除未完成投票索引
func (rs *RedisStore) CloseVoteSession(ctx context.Context, room *model.Room, session *model.VoteSession) error {
	key := roomKeyPrefix + room.ID

	voteData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("序列化投票数据失败: %w", err)
	}

	err = rs.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored != room.Version {
			return apperrors.Detail(apperrors.ErrVersionConflict, "房间 %s 版本 %d，写入版本 %d", room.ID, stored, room.Version)
		}

		next := *room
		next.Version++
		roomData, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("序列化房间数据失败: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, roomData, rs.roomExpiration)
			pipe.Expire(ctx, roomCodeKeyPrefix+room.Code, rs.roomExpiration)
			pipe.Set(ctx, voteKeyPrefix+session.ID, voteData, rs.roomExpiration)
			pipe.Del(ctx, openVoteKeyPrefix+session.RoomID)
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return apperrors.Detail(apperrors.ErrVersionConflict, "房间 %s 被并发修改", room.ID)
	case err != nil:
		return apperrors.Infra("close vote session", err)
	}
	room.Version++
	return nil
}

// LoadVoteSession 加载投票
func (rs *RedisStore) LoadVoteSession(ctx context.Context, id string) (*model.VoteSession, error) {
	var session model.VoteSession
	if err := rs.getJSON(ctx, voteKeyPrefix+id, &session, apperrors.ErrVoteNotFound); err != nil {
		return nil, err
	}
	return &session, nil
}

// OpenVoteSession 查询房间内未完成的投票
func (rs *RedisStore) OpenVoteSession(ctx context.Context, roomID string) (*model.VoteSession, error) {
	id, err := rs.client.Get(ctx, openVoteKeyPrefix+roomID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Infra("query open vote", err)
	}

	session, err := rs.LoadVoteSession(ctx, id)
	if errors.Is(err, apperrors.ErrVoteNotFound) {
		return nil, nil // 索引已过期
	}
	if err != nil {
		return nil, err
	}
	if session.Completed {
		return nil, nil
	}
	return session, nil
}

// --- 玩家 ---

// SavePlayer 保存玩家资料
func (rs *RedisStore) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("序列化玩家数据失败: %w", err)
	}
	return apperrors.Infra("save player", rs.client.Set(ctx, playerKeyPrefix+player.ID, data, 0).Err())
}

// LoadPlayer 加载玩家资料
func (rs *RedisStore) LoadPlayer(ctx context.Context, id string) (*model.Player, error) {
	var player model.Player
	if err := rs.getJSON(ctx, playerKeyPrefix+id, &player, apperrors.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &player, nil
}

// --- 辅助方法 ---

func (rs *RedisStore) getJSON(ctx context.Context, key string, dst any, notFound error) error {
	data, err := rs.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return notFound
	}
	if err != nil {
		return apperrors.Infra("get "+key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return apperrors.Infra("decode "+key, err)
	}
	return nil
}
