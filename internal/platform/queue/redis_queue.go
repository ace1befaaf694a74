package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLease is how long a popped job may run before another Pop or Add may reclaim it.
const DefaultLease = 10 * time.Minute

// addScript stores the job payload only if the id is unknown or its lease expired, then schedules it.
// KEYS: jobs, waiting, active. ARGV: id, payload, score, now.
var addScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
  redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
  return 1
end
local deadline = redis.call('ZSCORE', KEYS[3], ARGV[1])
if deadline and tonumber(deadline) <= tonumber(ARGV[4]) then
  redis.call('ZREM', KEYS[3], ARGV[1])
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
  redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
  return 1
end
return 0
`)

// popScript re-queues expired leases, then moves the next waiting id into the active set.
// KEYS: waiting, active, jobs. ARGV: now, deadline.
var popScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[2], id)
  if redis.call('HEXISTS', KEYS[3], id) == 1 then
    redis.call('ZADD', KEYS[1], 0, id)
  end
end
while true do
  local popped = redis.call('ZPOPMIN', KEYS[1])
  if #popped == 0 then
    return false
  end
  local payload = redis.call('HGET', KEYS[3], popped[1])
  if payload then
    redis.call('ZADD', KEYS[2], ARGV[2], popped[1])
    return payload
  end
end
`)

// RedisQueue keeps waiting job ids in a sorted set, running ids in a sorted set
// scored by lease deadline and payloads in a hash. A payload stays in the hash
// until Complete, so ids stay unique while running. Jobs of a crashed worker
// become available again once their lease expires.
type RedisQueue struct {
	rdb       *redis.Client
	namespace string
	lease     time.Duration
	now       func() time.Time
}

var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue creates a queue under the given key namespace ("data-gathering" if empty).
func NewRedisQueue(rdb *redis.Client, namespace string) *RedisQueue {
	if namespace == "" {
		namespace = "data-gathering"
	}
	return &RedisQueue{rdb: rdb, namespace: namespace, lease: DefaultLease, now: time.Now}
}

func (q *RedisQueue) waitingKey() string { return q.namespace + ":waiting" }
func (q *RedisQueue) activeKey() string  { return q.namespace + ":active" }
func (q *RedisQueue) jobsKey() string    { return q.namespace + ":jobs" }

func unixMilli(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func (q *RedisQueue) Add(ctx context.Context, job Job) (bool, error) {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.now()
	}
	b, err := json.Marshal(job)
	if err != nil {
		return false, err
	}
	keys := []string{q.jobsKey(), q.waitingKey(), q.activeKey()}
	added, err := addScript.Run(ctx, q.rdb, keys, job.ID, b, score(job), unixMilli(q.now())).Int()
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", job.ID, err)
	}
	return added == 1, nil
}

func (q *RedisQueue) Pop(ctx context.Context) (*Job, error) {
	now := q.now()
	keys := []string{q.waitingKey(), q.activeKey(), q.jobsKey()}
	s, err := popScript.Run(ctx, q.rdb, keys, unixMilli(now), unixMilli(now.Add(q.lease))).Text()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(s), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) Complete(ctx context.Context, id string) error {
	_, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, q.jobsKey(), id)
		p.ZRem(ctx, q.activeKey(), id)
		return nil
	})
	return err
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, q.waitingKey()).Result()
}
