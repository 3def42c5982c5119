package runlog

import (
	"context"
	"os"
	"testing"
	"time"

	"notionsync/internal/syncer"
)

func withRecorder(t *testing.T, run func(ctx context.Context, r *Recorder)) {
	t.Helper()
	url := os.Getenv("NOTIONSYNC_TEST_REDIS_URL")
	if url == "" {
		url = "redis://127.0.0.1:6379/15"
	}
	r, err := New(url)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		t.Skipf("redis unavailable for runlog tests: %v", err)
	}
	_ = r.client.Del(ctx, Key).Err()
	t.Cleanup(func() { _ = r.client.Del(context.Background(), Key).Err() })

	run(ctx, r)
}

func TestRecordAndRecent(t *testing.T) {
	withRecorder(t, func(ctx context.Context, r *Recorder) {
		id, err := r.Record(ctx, Entry{DatabaseID: "db", Source: "sqlite", Fetched: 3, Summary: syncer.Summary{Created: 2, Updated: 1}})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if id == "" {
			t.Fatalf("expected generated run id")
		}
		if _, err := r.Record(ctx, Entry{RunID: "second", Summary: syncer.Summary{Errors: 1}}); err != nil {
			t.Fatalf("record second: %v", err)
		}

		entries, err := r.Recent(ctx, 10)
		if err != nil {
			t.Fatalf("recent: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].RunID != "second" || entries[1].RunID != id {
			t.Fatalf("expected newest first, got %s, %s", entries[0].RunID, entries[1].RunID)
		}
		if entries[1].Summary.Created != 2 {
			t.Fatalf("expected summary round-trip, got %+v", entries[1].Summary)
		}
	})
}

func TestRecordTrimsHistory(t *testing.T) {
	withRecorder(t, func(ctx context.Context, r *Recorder) {
		for i := 0; i < MaxEntries+5; i++ {
			if _, err := r.Record(ctx, Entry{}); err != nil {
				t.Fatalf("record %d: %v", i, err)
			}
		}
		n, err := r.client.LLen(ctx, Key).Result()
		if err != nil {
			t.Fatalf("llen: %v", err)
		}
		if n != MaxEntries {
			t.Fatalf("expected %d entries, got %d", MaxEntries, n)
		}
	})
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New("not a url"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRecentWithNonPositiveLimit(t *testing.T) {
	withRecorder(t, func(ctx context.Context, r *Recorder) {
		if _, err := r.Record(ctx, Entry{}); err != nil {
			t.Fatalf("record: %v", err)
		}
		for _, n := range []int64{0, -1} {
			entries, err := r.Recent(ctx, n)
			if err != nil {
				t.Fatalf("recent(%d): %v", n, err)
			}
			if len(entries) != 0 {
				t.Fatalf("recent(%d) returned %d entries", n, len(entries))
			}
		}
	})
}

func TestRecentNonPositiveLimitSkipsRedis(t *testing.T) {
	r, err := New("redis://127.0.0.1:1/0")
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	defer r.Close()
	entries, err := r.Recent(context.Background(), 0)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty result without a round trip, got %v err=%v", entries, err)
	}
}
