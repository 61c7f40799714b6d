package model

import (
	"strings"

	"github.com/palemoky/imposter/internal/apperrors"
)

// Player 玩家资料
type Player struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Hat      string   `json:"hat"`
	Location Location `json:"location"`
	RoomID   string   `json:"room_id,omitempty"` // 最近加入的房间
}

// Validate 校验玩家资料
func (p *Player) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperrors.Detail(apperrors.ErrInvalidPlayer, "昵称不能为空")
	}
	return nil
}
