package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotRepo stores student snapshots in Redis. Each student has a
// sorted set "{prefix}:snapshots:{studentID}" whose members are JSON
// snapshots scored by sequence; "{prefix}:seq" is the sequence counter.
type RedisSnapshotRepo struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisSnapshotRepo creates a Redis-backed snapshot repo. An empty prefix
// defaults to "tutorpilot".
func NewRedisSnapshotRepo(client redis.UniversalClient, prefix string) (*RedisSnapshotRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = "tutorpilot"
	}
	return &RedisSnapshotRepo{client: client, prefix: prefix}, nil
}

func (r *RedisSnapshotRepo) key(studentID string) string {
	return fmt.Sprintf("%s:snapshots:%s", r.prefix, studentID)
}

func (r *RedisSnapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Sequence == 0 {
		n, err := r.client.Incr(ctx, r.prefix+":seq").Result()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		snap.Sequence = n
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	err = r.client.ZAdd(ctx, r.key(snap.StudentID), redis.Z{
		Score:  float64(snap.Sequence),
		Member: data,
	}).Err()
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *RedisSnapshotRepo) Latest(ctx context.Context, studentID string) (*Snapshot, error) {
	members, err := r.client.ZRevRange(ctx, r.key(studentID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(members[0]), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (r *RedisSnapshotRepo) Prune(ctx context.Context, studentID string, keep int) error {
	// Ranks are ascending by sequence; drop everything below the newest keep.
	stop := int64(-keep - 1)
	if err := r.client.ZRemRangeByRank(ctx, r.key(studentID), 0, stop).Err(); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
