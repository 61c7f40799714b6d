package types

import (
	"github.com/palemoky/imposter/internal/protocol"
)

// ClientInterface 定义客户端接口（用于打破 server 与 handler 的循环依赖）
type ClientInterface interface {
	// GetID 连接 ID，每个 WebSocket 连接唯一
	GetID() string
	// GetPlayerID 连接绑定的玩家 ID，未绑定时为空
	GetPlayerID() string
	SetPlayerID(id string)
	SendMessage(msg *protocol.Message)
	Close()
}
