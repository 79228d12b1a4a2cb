package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	s, err := Open(context.Background(), "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(studentID string, mastery float64) StudentRecord {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	due := at.Add(72 * time.Hour)
	return StudentRecord{
		Version:   StudentRecordVersion,
		StudentID: studentID,
		Topics: map[string]TopicRecord{
			"backpropagation": {
				Mastery:         mastery,
				LastInteraction: &at,
				NextReview:      &due,
				History: []InteractionRecord{
					{At: at, Correct: true, Confidence: 0.8, HintLevel: 1, Before: 0.2, After: mastery},
				},
			},
		},
		Struggling:     []string{"dfs"},
		Misconceptions: map[string][]string{"dfs": {"dfs-bfs-confusion"}},
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		// journal_mode reports "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
	}
	for _, tt := range tests {
		var got string
		if err := s.DB().QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{
		tableSnapshots, tableLLMEvents, tableMasteryEvents,
		tableRoutingEvents, tableMisconceptions, tableSequence,
	} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %s missing", table)
	}
}

func TestMigrationIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, migrate(context.Background(), s))
	_, err := newSequenceCounter(context.Background(), s)
	require.NoError(t, err)
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := s.seq.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

// snapshotRepoContract exercises behavior every SnapshotRepo must share.
func snapshotRepoContract(t *testing.T, repo SnapshotRepo) {
	ctx := context.Background()

	t.Run("missing student", func(t *testing.T) {
		snap, err := repo.Latest(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("round trip", func(t *testing.T) {
		in := &Snapshot{StudentID: "ada", Data: sampleRecord("ada", 0.42)}
		require.NoError(t, repo.Save(ctx, in))
		assert.NotZero(t, in.Sequence, "sequence should be assigned")

		out, err := repo.Latest(ctx, "ada")
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, in.Sequence, out.Sequence)
		assert.Equal(t, "ada", out.Data.StudentID)
		topic := out.Data.Topics["backpropagation"]
		assert.InDelta(t, 0.42, topic.Mastery, 1e-9)
		require.NotNil(t, topic.NextReview)
		assert.True(t, topic.NextReview.Equal(*in.Data.Topics["backpropagation"].NextReview))
		assert.Equal(t, []string{"dfs-bfs-confusion"}, out.Data.Misconceptions["dfs"])
	})

	t.Run("latest is newest and per student", func(t *testing.T) {
		for i := range 3 {
			require.NoError(t, repo.Save(ctx, &Snapshot{
				StudentID: "grace",
				Data:      sampleRecord("grace", 0.1*float64(i+1)),
			}))
		}
		require.NoError(t, repo.Save(ctx, &Snapshot{StudentID: "linus", Data: sampleRecord("linus", 0.9)}))

		out, err := repo.Latest(ctx, "grace")
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.InDelta(t, 0.3, out.Data.Topics["backpropagation"].Mastery, 1e-9)
	})

	t.Run("prune keeps newest", func(t *testing.T) {
		for i := range 6 {
			require.NoError(t, repo.Save(ctx, &Snapshot{
				StudentID: "hopper",
				Data:      sampleRecord("hopper", 0.1*float64(i+1)),
			}))
		}
		require.NoError(t, repo.Prune(ctx, "hopper", 2))

		out, err := repo.Latest(ctx, "hopper")
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.InDelta(t, 0.6, out.Data.Topics["backpropagation"].Mastery, 1e-9)

		require.NoError(t, repo.Prune(ctx, "hopper", 0))
		out, err = repo.Latest(ctx, "hopper")
		require.NoError(t, err)
		assert.Nil(t, out)

		// Other students are untouched.
		out, err = repo.Latest(ctx, "grace")
		require.NoError(t, err)
		assert.NotNil(t, out)
	})
}

func TestSQLiteSnapshotRepo(t *testing.T) {
	snapshotRepoContract(t, openTestStore(t).SnapshotRepo())
}

func TestSQLitePruneCountsRows(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()
	for range 7 {
		require.NoError(t, repo.Save(ctx, &Snapshot{StudentID: "ada", Data: sampleRecord("ada", 0.5)}))
	}
	require.NoError(t, repo.Prune(ctx, "ada", 5))

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM student_snapshots").Scan(&count))
	assert.Equal(t, 5, count)
}

func TestBadgerSnapshotRepo(t *testing.T) {
	db, err := OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewBadgerSnapshotRepo(db)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	snapshotRepoContract(t, repo)

	t.Run("ids sharing a prefix stay separate", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, repo.Save(ctx, &Snapshot{StudentID: "alice", Data: sampleRecord("alice", 0.2)}))
		require.NoError(t, repo.Save(ctx, &Snapshot{StudentID: "alice:2", Data: sampleRecord("alice:2", 0.7)}))

		out, err := repo.Latest(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, "alice", out.Data.StudentID)

		require.NoError(t, repo.Prune(ctx, "alice", 1))
		for _, id := range []string{"alice", "alice:2"} {
			out, err := repo.Latest(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, out, "snapshot of %s was pruned", id)
			assert.Equal(t, id, out.Data.StudentID)
		}
	})
}

func TestRedisSnapshotRepo(t *testing.T) {
	addr := os.Getenv("TUTORPILOT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TUTORPILOT_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	prefix := "tutorpilot-test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
	})

	repo, err := NewRedisSnapshotRepo(client, prefix)
	require.NoError(t, err)
	snapshotRepoContract(t, repo)
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := OpenBackend(ctx, Config{Backend: BackendBadger, Path: dir + "/events.db", BadgerDir: dir + "/badger"})
	require.NoError(t, err)
	require.NoError(t, b.Snapshots.Save(ctx, &Snapshot{StudentID: "ada", Data: sampleRecord("ada", 0.5)}))
	require.NoError(t, b.Events.AppendMasteryEvent(ctx, MasteryEventData{StudentID: "ada", Topic: "dfs"}))
	require.NoError(t, b.Close())

	_, err = OpenBackend(ctx, Config{Backend: "etcd", Path: dir + "/other.db"})
	assert.Error(t, err)
}
