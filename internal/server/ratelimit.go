package server

import (
	"sync"
	"time"
)

// maxRateWarnings 超速次数超过该值时断开连接
const maxRateWarnings = 5

// messageLimiter 单个连接的消息速率限制器，按秒计数
type messageLimiter struct {
	mu sync.Mutex

	maxPerSecond     int
	warningThreshold int
	now              func() time.Time

	count     int
	lastReset time.Time
	warnings  int
}

func newMessageLimiter(maxPerSecond int) *messageLimiter {
	return &messageLimiter{
		maxPerSecond:     maxPerSecond,
		warningThreshold: maxPerSecond / 2,
		now:              time.Now,
	}
}

// Allow 检查是否允许处理消息。超过阈值一半时 warning 为 true
func (ml *messageLimiter) Allow() (allowed, warning bool) {
	if ml.maxPerSecond <= 0 {
		return true, false
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.now()
	// 如果超过 1 秒，重置计数
	if now.Sub(ml.lastReset) >= time.Second {
		ml.count = 1
		ml.lastReset = now
		return true, false
	}

	ml.count++
	if ml.count > ml.maxPerSecond {
		ml.warnings++
		return false, true
	}
	return true, ml.count > ml.warningThreshold
}

// Exceeded 超速次数是否已达到断开阈值
func (ml *messageLimiter) Exceeded() bool {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.warnings > maxRateWarnings
}
