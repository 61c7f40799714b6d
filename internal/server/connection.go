package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/palemoky/imposter/internal/protocol"
	"github.com/palemoky/imposter/internal/protocol/codec"
)

// handleWebSocket 处理 WebSocket 连接。携带 player_id 时连接直接绑定该玩家，玩家不存在则自动创建
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	if playerID != "" {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.Server.RequestTimeoutDuration())
		_, err := s.players.Register(ctx, playerID)
		cancel()
		if err != nil {
			s.logger.Warn("玩家注册失败", zap.String("player_id", playerID), zap.Error(err))
			writeError(w, err)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket 升级失败", zap.String("ip", r.RemoteAddr), zap.Error(err))
		return
	}

	client := NewClient(s, conn)
	client.IP = r.RemoteAddr
	client.SetPlayerID(playerID)
	s.registerClient(client)

	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		ConnectionID: client.ID,
		PlayerID:     playerID,
	}))

	s.logger.Info("✅ 连接已建立",
		zap.String("connection_id", client.ID),
		zap.String("player_id", playerID),
		zap.String("ip", client.IP))

	go client.ReadPump()
	go client.WritePump()
}
