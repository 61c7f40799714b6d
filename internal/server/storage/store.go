package storage

import (
	"context"
	"slices"
	"strings"

	"github.com/palemoky/imposter/internal/game/model"
)

// Store 实体存储。
// Load 系列在实体不存在时返回对应的 NotFound 错误；
// SaveRoom 使用乐观锁：room.Version 必须等于已存储的版本，成功后版本号加一。
type Store interface {
	SaveTemplate(ctx context.Context, tpl *model.GameTemplate) error
	LoadTemplate(ctx context.Context, id string) (*model.GameTemplate, error)
	ListTemplates(ctx context.Context, filter TemplateFilter) ([]*model.GameTemplate, error)

	// ReserveRoomCode 原子地占用房间码，已被占用时返回 false
	ReserveRoomCode(ctx context.Context, code, roomID string) (bool, error)
	SaveRoom(ctx context.Context, room *model.Room) error
	LoadRoom(ctx context.Context, id string) (*model.Room, error)
	LoadRoomByCode(ctx context.Context, code string) (*model.Room, error)

	SaveVoteSession(ctx context.Context, session *model.VoteSession) error
	LoadVoteSession(ctx context.Context, id string) (*model.VoteSession, error)
	// OpenVoteSession 返回房间内未完成的投票，没有时返回 nil, nil
	OpenVoteSession(ctx context.Context, roomID string) (*model.VoteSession, error)
	// CloseVoteSession 原子地写入结算后的房间和已完成的投票，房间版本规则同 SaveRoom
	CloseVoteSession(ctx context.Context, room *model.Room, session *model.VoteSession) error

	SavePlayer(ctx context.Context, player *model.Player) error
	LoadPlayer(ctx context.Context, id string) (*model.Player, error)
}

// TemplateFilter 模板查询条件
type TemplateFilter struct {
	ID    string
	Name  string // 名称包含（不区分大小写）
	Page  int    // 从 1 开始
	Count int
}

// Normalize 填充分页默认值
func (f TemplateFilter) Normalize() TemplateFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Count < 1 {
		f.Count = 10
	}
	return f
}

// Apply 在按创建时间排序的模板列表上执行过滤和分页
func (f TemplateFilter) Apply(all []*model.GameTemplate) []*model.GameTemplate {
	f = f.Normalize()
	name := strings.ToLower(strings.TrimSpace(f.Name))

	matched := slices.DeleteFunc(slices.Clone(all), func(t *model.GameTemplate) bool {
		if f.ID != "" && t.ID != f.ID {
			return true
		}
		return name != "" && !strings.Contains(strings.ToLower(t.Name), name)
	})

	skip := (f.Page - 1) * f.Count
	if skip >= len(matched) {
		return []*model.GameTemplate{}
	}
	return matched[skip:min(skip+f.Count, len(matched))]
}
