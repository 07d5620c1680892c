package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces the dead letter list of each job queue: dlq:{queue}.
const DLQPrefix = "dlq:"

// DeadLetter is one job the pool gave up on, kept for manual inspection.
type DeadLetter struct {
	Queue    string          `json:"queue"`
	JobType  string          `json:"job_type"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	FailedAt time.Time       `json:"failed_at"`
}

// DeadLetters stores abandoned jobs in one Redis list per source queue,
// newest first.
type DeadLetters struct {
	rdb *redis.Client
	now func() time.Time
}

func NewDeadLetters(rdb *redis.Client) *DeadLetters {
	return &DeadLetters{rdb: rdb, now: time.Now}
}

// Push records job as dead. Failures are logged, never returned: the job is
// already off its queue and the worker has nothing better to do with it.
func (d *DeadLetters) Push(ctx context.Context, queue string, job Job, reason string) {
	key := DLQPrefix + queue
	data, err := json.Marshal(DeadLetter{
		Queue:    queue,
		JobType:  job.Type,
		Payload:  job.Payload,
		Reason:   reason,
		Attempts: job.Attempts,
		FailedAt: d.now().UTC(),
	})
	if err == nil {
		err = d.rdb.LPush(ctx, key, data).Err()
	}
	if err != nil {
		log.Error().Err(err).Str("dlq_key", key).Str("job_type", job.Type).Msg("dlq: push failed, job lost")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", job.Type).
		Str("reason", reason).
		Int("attempts", job.Attempts).
		Msg("dlq: job moved to dead letter queue")
}

// Len reports how many dead jobs a queue has accumulated.
func (d *DeadLetters) Len(ctx context.Context, queue string) (int64, error) {
	return d.rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// Peek returns up to n of the most recent dead jobs of queue.
// Entries that no longer decode are skipped.
func (d *DeadLetters) Peek(ctx context.Context, queue string, n int64) ([]DeadLetter, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := d.rdb.LRange(ctx, DLQPrefix+queue, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadLetter, 0, len(raw))
	for _, r := range raw {
		var dl DeadLetter
		if err := json.Unmarshal([]byte(r), &dl); err != nil {
			continue
		}
		out = append(out, dl)
	}
	return out, nil
}
