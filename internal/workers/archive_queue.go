package workers

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisArchiveQueue appends archive jobs to the stream ArchiveWorkerPool reads.
type RedisArchiveQueue struct {
	Redis  redis.UniversalClient
	Stream string
	// MaxLen caps the stream approximately; zero leaves it unbounded.
	MaxLen int64
}

func NewRedisArchiveQueue(rdb redis.UniversalClient) *RedisArchiveQueue {
	return &RedisArchiveQueue{Redis: rdb, Stream: DefaultArchiveStream, MaxLen: 10000}
}

func (q *RedisArchiveQueue) Enqueue(ctx context.Context, utteranceID, roomID string) error {
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: q.Stream,
		MaxLen: q.MaxLen,
		Approx: q.MaxLen > 0,
		Values: map[string]any{
			"utterance_id": utteranceID,
			"room_id":      roomID,
		},
	}).Err()
}
