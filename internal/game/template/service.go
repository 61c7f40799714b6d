// Package template 管理游戏模板。模板创建后只读。
package template

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/palemoky/imposter/internal/game/model"
	"github.com/palemoky/imposter/internal/server/storage"
)

// Service 模板服务
type Service struct {
	store  storage.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService 创建模板服务
func NewService(store storage.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Create 校验并保存模板，ID 和创建时间由服务端生成
func (s *Service) Create(ctx context.Context, input model.GameTemplate) (*model.GameTemplate, error) {
	tpl := input
	tpl.Name = strings.TrimSpace(tpl.Name)
	tpl.CheckPoints = slices.Clone(input.CheckPoints)
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	tpl.ID = uuid.NewString()
	tpl.CreatedAt = s.now()
	if err := s.store.SaveTemplate(ctx, &tpl); err != nil {
		return nil, err
	}

	s.logger.Info("🗺️ 模板已创建",
		zap.String("template_id", tpl.ID),
		zap.String("name", tpl.Name),
		zap.Int("check_points", len(tpl.CheckPoints)))
	return &tpl, nil
}

// Get 读取模板
func (s *Service) Get(ctx context.Context, id string) (*model.GameTemplate, error) {
	return s.store.LoadTemplate(ctx, id)
}

// List 按 ID 或名称查询模板并分页
func (s *Service) List(ctx context.Context, filter storage.TemplateFilter) ([]*model.GameTemplate, error) {
	return s.store.ListTemplates(ctx, filter.Normalize())
}
