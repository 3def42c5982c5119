// Package runlog keeps a short history of sync runs in Redis so operators
// can see recent outcomes without scraping logs.
package runlog

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"notionsync/internal/syncer"
)

const (
	Key        = "notionsync:runs"
	MaxEntries = 100
)

type Entry struct {
	RunID      string         `json:"run_id"`
	DatabaseID string         `json:"database_id"`
	Source     string         `json:"source"`
	Fetched    int            `json:"fetched"`
	Aborted    string         `json:"aborted,omitempty"`
	Summary    syncer.Summary `json:"summary"`
}

type Recorder struct {
	client *redis.Client
}

func New(url string) (*Recorder, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Recorder{client: redis.NewClient(opt)}, nil
}

func (r *Recorder) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Record prepends the entry to the run list and trims the list. A missing
// RunID is filled in.
func (r *Recorder) Record(ctx context.Context, entry Entry) (string, error) {
	if entry.RunID == "" {
		entry.RunID = uuid.NewString()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, Key, data)
	pipe.LTrim(ctx, Key, 0, MaxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return entry.RunID, nil
}

// Recent returns up to n entries, newest first. A non-positive n returns
// nothing.
func (r *Recorder) Recent(ctx context.Context, n int64) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := r.client.LRange(ctx, Key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *Recorder) Close() error {
	return r.client.Close()
}
