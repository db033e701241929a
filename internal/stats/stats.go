// Package stats keeps a summary of reminder runs in Redis for operators.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reminder-engine/internal/reminder"
)

const (
	keyLastRun    = "reminders:last_run"
	keySentTotal  = "reminders:sent_total"
	keyRunsTotal  = "reminders:runs_total"
	lastRunExpiry = 7 * 24 * time.Hour
)

var ErrNoRuns = errors.New("stats: no run recorded")

type LastRun struct {
	At     time.Time       `json:"at"`
	Result reminder.Result `json:"result"`
}

type Summary struct {
	LastRun   *LastRun `json:"last_run,omitempty"`
	SentTotal int64    `json:"sent_total"`
	RunsTotal int64    `json:"runs_total"`
}

type Redis struct {
	client *redis.Client
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func New(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Record(ctx context.Context, res reminder.Result, at time.Time) error {
	b, err := json.Marshal(LastRun{At: at.UTC(), Result: res})
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, keyLastRun, b, lastRunExpiry)
		p.IncrBy(ctx, keySentTotal, int64(res.Sent))
		p.Incr(ctx, keyRunsTotal)
		return nil
	})
	return err
}

func (r *Redis) Summary(ctx context.Context) (*Summary, error) {
	s := &Summary{}
	raw, err := r.client.Get(ctx, keyLastRun).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrNoRuns
	case err != nil:
		return nil, err
	}
	var last LastRun
	if err := json.Unmarshal(raw, &last); err != nil {
		return nil, fmt.Errorf("decode last run: %w", err)
	}
	s.LastRun = &last

	if s.SentTotal, err = r.counter(ctx, keySentTotal); err != nil {
		return nil, err
	}
	if s.RunsTotal, err = r.counter(ctx, keyRunsTotal); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Redis) counter(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
