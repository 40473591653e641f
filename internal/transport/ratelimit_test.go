package transport

import (
	"testing"
	"time"
)

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(false, 10, 5)
	for i := 0; i < 100; i++ {
		if !rl.Allow("aa:bb:cc:dd:ee:ff") {
			t.Fatalf("disabled rate limiter rejected request %d", i)
		}
	}
}

func TestRateLimiterGlobalLimit(t *testing.T) {
	rl := NewRateLimiter(true, 5, 100)
	for i := 0; i < 5; i++ {
		if !rl.Allow("aa:bb:cc:dd:ee:ff") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("aa:bb:cc:dd:ee:ff") {
		t.Error("6th request should be rejected (global limit)")
	}
}

func TestRateLimiterPerKeyLimit(t *testing.T) {
	rl := NewRateLimiter(true, 100, 3)
	for i := 0; i < 3; i++ {
		if !rl.Allow("key-a") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("key-a") {
		t.Error("4th request from same key should be rejected")
	}
	if !rl.Allow("key-b") {
		t.Error("different key should still be allowed")
	}
}

func TestRateLimiterRefill(t *testing.T) {
	rl := NewRateLimiter(true, 3, 3)
	rl.refillInterval = 50 * time.Millisecond

	for i := 0; i < 3; i++ {
		rl.Allow("key-a")
	}
	if rl.Allow("key-a") {
		t.Error("should be rate-limited after exhausting tokens")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("key-a") {
		t.Error("should be allowed after refill")
	}
}

func TestRateLimiterStats(t *testing.T) {
	rl := NewRateLimiter(true, 10, 5)
	rl.Allow("key-a")
	rl.Allow("key-b")

	tokens, keys := rl.Stats()
	if tokens != 8 {
		t.Errorf("globalTokens = %d, want 8", tokens)
	}
	if keys != 2 {
		t.Errorf("trackedKeys = %d, want 2", keys)
	}
}
