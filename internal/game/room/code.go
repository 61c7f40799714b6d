package room

import (
	"context"

	"github.com/palemoky/imposter/internal/apperrors"
)

const (
	roomCodeLength = 8                                      // 房间码长度
	roomCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" // 房间码字符集

	defaultCodeAttempts = 16
)

// generateRoomCode 生成随机房间码
func (rm *RoomManager) generateRoomCode() string {
	code := make([]byte, roomCodeLength)
	rm.withRand(func(intN func(int) int) {
		for i := range code {
			code[i] = roomCodeChars[intN(len(roomCodeChars))]
		}
	})
	return string(code)
}

// reserveRoomCode 生成并占用一个未被使用的房间码
func (rm *RoomManager) reserveRoomCode(ctx context.Context, roomID string) (string, error) {
	for range rm.codeAttempts {
		code := rm.generateRoomCode()
		ok, err := rm.store.ReserveRoomCode(ctx, code, roomID)
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
		rm.logger.Debug("🔁 房间码冲突，重新生成")
	}
	return "", apperrors.Infra("reserve room code", errCodeExhausted)
}
