package bot

import (
	"sync"

	"golang.org/x/time/rate"
)

// UserLimiter 按用户限流器
//
// 每个用户各自持有一个令牌桶，限制其指令频率，防止单个用户
// 把服务商额度刷光。
type UserLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewUserLimiter 创建按用户限流器
func NewUserLimiter(perSecond float64, burst int) *UserLimiter {
	return &UserLimiter{
		limiters: make(map[int64]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow 判断用户当前是否允许执行指令
func (l *UserLimiter) Allow(userID int64) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
