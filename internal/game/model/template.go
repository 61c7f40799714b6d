package model

import (
	"strings"
	"time"

	"github.com/palemoky/imposter/internal/apperrors"
)

// TaskType 检查点任务类型
type TaskType string

const (
	TaskWire       TaskType = "WIRE"
	TaskUpload     TaskType = "UPLOAD"
	TaskDownload   TaskType = "DOWNLOAD"
	TaskExperiment TaskType = "EXPERIMENT"
)

// Valid 是否为已知任务类型
func (t TaskType) Valid() bool {
	switch t {
	case TaskWire, TaskUpload, TaskDownload, TaskExperiment:
		return true
	}
	return false
}

// Location 坐标，引擎只把它当作不透明的值
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CheckPoint 任务检查点
type CheckPoint struct {
	Task     TaskType `json:"task"`
	Location Location `json:"location"`
}

// GameTemplate 游戏模板，创建后只读
type GameTemplate struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	MaxParticipants int          `json:"max_participants"`
	ImposterCount   int          `json:"imposter_count"`
	TotalTasks      int          `json:"total_tasks"`
	DurationMinutes int          `json:"duration_minutes"`
	CheckPoints     []CheckPoint `json:"check_points"`
	Center          Location     `json:"center"`
	Span            Location     `json:"span"` // 地图范围（经纬度跨度）
	CreatedAt       time.Time    `json:"created_at"`
}

// Duration 单局时长
func (g *GameTemplate) Duration() time.Duration {
	return time.Duration(g.DurationMinutes) * time.Minute
}

// Validate 校验模板参数
func (g *GameTemplate) Validate() error {
	switch {
	case strings.TrimSpace(g.Name) == "":
		return apperrors.Detail(apperrors.ErrInvalidTemplate, "名称不能为空")
	case g.MaxParticipants < 2:
		return apperrors.Detail(apperrors.ErrInvalidTemplate, "最大人数至少为 2")
	case g.ImposterCount < 1:
		return apperrors.Detail(apperrors.ErrInvalidTemplate, "内鬼数量至少为 1")
	case g.TotalTasks < 1:
		return apperrors.Detail(apperrors.ErrInvalidTemplate, "任务总数至少为 1")
	case g.DurationMinutes < 1:
		return apperrors.Detail(apperrors.ErrInvalidTemplate, "时长至少为 1 分钟")
	}
	for i, cp := range g.CheckPoints {
		if !cp.Task.Valid() {
			return apperrors.Detail(apperrors.ErrInvalidTemplate, "检查点 %d 任务类型无效: %q", i, cp.Task)
		}
	}
	return nil
}
