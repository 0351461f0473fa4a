package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	minuteWindow = time.Minute
	tenSecWindow = 10 * time.Second
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Limits caps one action kind over two sliding windows. A zero cap disables
// that window.
type Limits struct {
	PerMinute int
	Per10Sec  int
}

type Limiter struct {
	store    WindowStore
	interest Limits
	contact  Limits
}

func NewLimiter(store WindowStore, interest, contact Limits) *Limiter {
	if interest.PerMinute < 0 {
		interest.PerMinute = 0
	}
	if interest.Per10Sec < 0 {
		interest.Per10Sec = 0
	}
	if contact.PerMinute < 0 {
		contact.PerMinute = 0
	}
	if contact.Per10Sec < 0 {
		contact.Per10Sec = 0
	}

	return &Limiter{
		store:    store,
		interest: interest,
		contact:  contact,
	}
}

// AllowExpressInterest consumes one slot from both interest windows and
// reports whether the send may proceed. On rejection it returns the seconds
// the caller should wait before retrying.
func (l *Limiter) AllowExpressInterest(ctx context.Context, profileID int64) (int64, bool, error) {
	return l.allow(ctx, "interest", profileID, l.interest)
}

// AllowContactRequest consumes one slot from both contact windows.
func (l *Limiter) AllowContactRequest(ctx context.Context, profileID int64) (int64, bool, error) {
	return l.allow(ctx, "contact", profileID, l.contact)
}

func (l *Limiter) allow(ctx context.Context, action string, profileID int64, limits Limits) (int64, bool, error) {
	if profileID <= 0 {
		return 0, false, fmt.Errorf("invalid profile id")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)

	if limits.PerMinute > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, minuteKey(action, profileID), minuteWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(limits.PerMinute) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if limits.Per10Sec > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, tenSecKey(action, profileID), tenSecWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(limits.Per10Sec) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}

	return 0, true, nil
}

func minuteKey(action string, profileID int64) string {
	return "rate:" + action + ":min:" + strconv.FormatInt(profileID, 10)
}

func tenSecKey(action string, profileID int64) string {
	return "rate:" + action + ":10s:" + strconv.FormatInt(profileID, 10)
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
