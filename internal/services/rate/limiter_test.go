package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/ivankudzin/tgapp/subscriptions/internal/repo/redis"
)

func TestLimiterBlocksOn10SecondWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), 2, 100)

	ctx := context.Background()
	userID := int64(42)

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.AllowMessage(ctx, userID)
		if err != nil {
			t.Fatalf("allow message #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.AllowMessage(ctx, userID)
	if err != nil {
		t.Fatalf("allow message #3: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on third message in 10s window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	currentRetry, err := limiter.RetryAfterMessage(ctx, userID)
	if err != nil {
		t.Fatalf("retry_after state: %v", err)
	}
	if currentRetry <= 0 {
		t.Fatalf("expected positive retry_after state, got %d", currentRetry)
	}

	mr.FastForward(11 * time.Second)

	retryAfter, allowed, err = limiter.AllowMessage(ctx, userID)
	if err != nil {
		t.Fatalf("allow message after 10s window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after fast forward: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterBlocksOnMinuteWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), 100, 3)

	ctx := context.Background()
	userID := int64(77)

	for i := 0; i < 3; i++ {
		retryAfter, allowed, err := limiter.AllowMessage(ctx, userID)
		if err != nil {
			t.Fatalf("allow message #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	_, allowed, err := limiter.AllowMessage(ctx, userID)
	if err != nil {
		t.Fatalf("allow message #4: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on fourth message in minute window")
	}
}

func TestLimiterWithZeroLimitsNeverBlocks(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), 0, 0)
	for i := 0; i < 50; i++ {
		_, allowed, err := limiter.AllowMessage(context.Background(), 5)
		if err != nil || !allowed {
			t.Fatalf("disabled limiter blocked message #%d: allowed=%v err=%v", i+1, allowed, err)
		}
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}
