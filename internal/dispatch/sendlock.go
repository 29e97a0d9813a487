package dispatch

import (
	"context"
	"strconv"
	"time"

	"github.com/careline/message-dispatch/pkg/redis"
)

const sendLockPrefix = "claim:"

// SendLock is a redis SetNX claim taken per message request before the
// provider call, so overlapping dispatchers on different hosts cannot both
// send the same request. The database claim remains the authority; this
// lock only narrows the race window, and callers fail open when redis is
// down.
type SendLock struct {
	adapter redis.RedisAdapter
	ttl     time.Duration
}

func NewSendLock(adapter redis.RedisAdapter, ttl time.Duration) *SendLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SendLock{adapter: adapter, ttl: ttl}
}

func (l *SendLock) TryClaim(ctx context.Context, requestID int64) (bool, error) {
	return l.adapter.SetNX(sendLockPrefix+strconv.FormatInt(requestID, 10), []byte("1"), l.ttl)
}

func (l *SendLock) Release(ctx context.Context, requestID int64) {
	_ = l.adapter.Del(sendLockPrefix + strconv.FormatInt(requestID, 10))
}
