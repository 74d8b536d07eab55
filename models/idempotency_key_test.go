package models

import (
	"testing"
	"time"
)

// Replay must stop at the retention boundary even when the purge has not
// removed the row yet.
func TestIdempotencyKeyExpired(t *testing.T) {
	now := time.Now()

	fresh := &IdempotencyKey{CreatedAt: now.Add(-time.Hour)}
	if fresh.Expired(now) {
		t.Fatal("a record inside the retention window must not be expired")
	}

	boundary := &IdempotencyKey{CreatedAt: now.Add(-IdempotencyRetention)}
	if !boundary.Expired(now) {
		t.Fatal("a record exactly at the retention boundary must be expired")
	}

	stale := &IdempotencyKey{CreatedAt: now.Add(-IdempotencyRetention - time.Minute)}
	if !stale.Expired(now) {
		t.Fatal("a record past the retention window must be expired")
	}
}
