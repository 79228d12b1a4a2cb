package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	badgerSnapshotPrefix = "snap:"
	badgerSequenceKey    = "seq:snapshots"
)

// BadgerSnapshotRepo stores student snapshots in an embedded Badger
// database at key "snap:{hex(studentID)}:{sequence}". The id is hex encoded
// so no student's prefix can match another id containing ':'. Sequences are
// zero padded so key order is sequence order.
type BadgerSnapshotRepo struct {
	db  *badger.DB
	seq *badger.Sequence
}

// OpenBadger opens (or creates) a Badger database in dir. An empty dir opens
// an in-memory database.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

// NewBadgerSnapshotRepo creates a Badger-backed snapshot repo.
func NewBadgerSnapshotRepo(db *badger.DB) (*BadgerSnapshotRepo, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db cannot be nil")
	}
	seq, err := db.GetSequence([]byte(badgerSequenceKey), 64)
	if err != nil {
		return nil, fmt.Errorf("badger sequence: %w", err)
	}
	return &BadgerSnapshotRepo{db: db, seq: seq}, nil
}

// Close releases the leased sequence range. It does not close the database.
func (r *BadgerSnapshotRepo) Close() error {
	return r.seq.Release()
}

func badgerStudentPrefix(studentID string) []byte {
	return []byte(badgerSnapshotPrefix + hex.EncodeToString([]byte(studentID)) + ":")
}

func badgerSnapshotKey(studentID string, seq int64) []byte {
	return fmt.Appendf(badgerStudentPrefix(studentID), "%020d", seq)
}

func (r *BadgerSnapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Sequence == 0 {
		// Badger sequences start at 0; shift so 0 stays "unassigned".
		n, err := r.seq.Next()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		snap.Sequence = int64(n) + 1
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return txn.Set(badgerSnapshotKey(snap.StudentID, snap.Sequence), data)
	})
}

func (r *BadgerSnapshotRepo) Latest(ctx context.Context, studentID string) (*Snapshot, error) {
	var snap *Snapshot
	err := r.db.View(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		prefix := badgerStudentPrefix(studentID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(append(prefix, 0xFF))
		if !it.Valid() {
			return nil
		}
		return it.Item().Value(func(v []byte) error {
			snap = &Snapshot{}
			return json.Unmarshal(v, snap)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, nil
}

func (r *BadgerSnapshotRepo) Prune(ctx context.Context, studentID string, keep int) error {
	return r.db.Update(func(txn *badger.Txn) error {
		prefix := badgerStudentPrefix(studentID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var stale [][]byte
		seen := 0
		for it.Seek(append(prefix, 0xFF)); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				it.Close()
				return err
			}
			seen++
			if seen > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		it.Close()

		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
