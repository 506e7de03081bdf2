package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	messages10SecWindow  = 10 * time.Second
	messagesMinuteWindow = time.Minute
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Limiter caps message bursts independently of the daily quota. A zero limit
// disables that window.
type Limiter struct {
	store     WindowStore
	per10Sec  int
	perMinute int
}

func NewLimiter(store WindowStore, per10Sec, perMinute int) *Limiter {
	if per10Sec < 0 {
		per10Sec = 0
	}
	if perMinute < 0 {
		perMinute = 0
	}

	return &Limiter{
		store:     store,
		per10Sec:  per10Sec,
		perMinute: perMinute,
	}
}

func (l *Limiter) AllowMessage(ctx context.Context, userID int64) (int64, bool, error) {
	if userID <= 0 {
		return 0, false, fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)
	for _, w := range l.windows(userID) {
		count, ttl, err := l.store.IncrementWindow(ctx, w.key, w.window)
		if err != nil {
			return 0, false, err
		}
		if count > int64(w.limit) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

func (l *Limiter) RetryAfterMessage(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)
	for _, w := range l.windows(userID) {
		count, ttl, err := l.store.WindowState(ctx, w.key)
		if err != nil {
			return 0, err
		}
		if count >= int64(w.limit) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	return retryAfterSec, nil
}

type limitWindow struct {
	key    string
	window time.Duration
	limit  int
}

func (l *Limiter) windows(userID int64) []limitWindow {
	out := make([]limitWindow, 0, 2)
	if l.per10Sec > 0 {
		out = append(out, limitWindow{key: tenSecKey(userID), window: messages10SecWindow, limit: l.per10Sec})
	}
	if l.perMinute > 0 {
		out = append(out, limitWindow{key: minuteKey(userID), window: messagesMinuteWindow, limit: l.perMinute})
	}
	return out
}

func tenSecKey(userID int64) string {
	return "rate:messages:10s:" + strconv.FormatInt(userID, 10)
}

func minuteKey(userID int64) string {
	return "rate:messages:min:" + strconv.FormatInt(userID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
