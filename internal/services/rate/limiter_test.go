package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/milanapp/engine/internal/repo/redis"
)

func TestLimiterBlocksInterestOn10SecondWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, Limits{PerMinute: 100, Per10Sec: 2}, Limits{PerMinute: 100, Per10Sec: 100})

	ctx := context.Background()
	profileID := int64(42)

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.AllowExpressInterest(ctx, profileID)
		if err != nil {
			t.Fatalf("allow interest #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.AllowExpressInterest(ctx, profileID)
	if err != nil {
		t.Fatalf("allow interest #3: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on third action in 10s window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	mr.FastForward(11 * time.Second)

	retryAfter, allowed, err = limiter.AllowExpressInterest(ctx, profileID)
	if err != nil {
		t.Fatalf("allow interest after 10s window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after fast forward: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterTracksActionsIndependently(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, Limits{PerMinute: 1, Per10Sec: 100}, Limits{PerMinute: 3, Per10Sec: 100})

	ctx := context.Background()
	profileID := int64(77)

	if _, allowed, err := limiter.AllowExpressInterest(ctx, profileID); err != nil || !allowed {
		t.Fatalf("first interest should pass: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.AllowExpressInterest(ctx, profileID); err != nil {
		t.Fatalf("second interest: %v", err)
	} else if allowed {
		t.Fatalf("expected interest block on minute window")
	}

	// The contact window is untouched by the interest block.
	for i := 0; i < 3; i++ {
		retryAfter, allowed, err := limiter.AllowContactRequest(ctx, profileID)
		if err != nil {
			t.Fatalf("allow contact #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on contact #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	if _, allowed, err := limiter.AllowContactRequest(ctx, profileID); err != nil {
		t.Fatalf("allow contact #4: %v", err)
	} else if allowed {
		t.Fatalf("expected contact block on minute window")
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
