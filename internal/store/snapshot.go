package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// snapshotRepo implements SnapshotRepo on the student_snapshots table.
type snapshotRepo struct {
	store *Store
}

type snapshotRow struct {
	ID        int       `sql:"id"`
	StudentID string    `sql:"student_id"`
	Sequence  int64     `sql:"sequence"`
	Timestamp time.Time `sql:"timestamp"`
	Data      []byte    `sql:"data"`
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Sequence == 0 {
		seq, err := r.store.seq.Next(ctx)
		if err != nil {
			return err
		}
		snap.Sequence = seq
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}

	q, args := r.store.builder().Insert(tableSnapshots).
		Columns("student_id", "sequence", "timestamp", "data").
		Values(snap.StudentID, snap.Sequence, snap.Timestamp.UTC(), data).
		Query()
	res, err := r.store.exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = int(id)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context, studentID string) (*Snapshot, error) {
	q, args := r.store.builder().
		Select("id", "student_id", "sequence", "timestamp", "data").
		From(entsql.Table(tableSnapshots)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy(entsql.Desc("sequence")).
		Limit(1).
		Query()

	var rows []snapshotRow
	if err := r.store.scan(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].snapshot()
}

func (r *snapshotRepo) Prune(ctx context.Context, studentID string, keep int) error {
	pred := entsql.EQ("student_id", studentID)
	if keep > 0 {
		// The keep-th newest snapshot is the oldest survivor.
		q, args := r.store.builder().
			Select("id", "student_id", "sequence", "timestamp", "data").
			From(entsql.Table(tableSnapshots)).
			Where(entsql.EQ("student_id", studentID)).
			OrderBy(entsql.Desc("sequence")).
			Offset(keep - 1).
			Limit(1).
			Query()
		var rows []snapshotRow
		if err := r.store.scan(ctx, q, args, &rows); err != nil {
			return fmt.Errorf("query snapshots for prune: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		pred = entsql.And(pred, entsql.LT("sequence", rows[0].Sequence))
	}

	q, args := r.store.builder().Delete(tableSnapshots).Where(pred).Query()
	if _, err := r.store.exec(ctx, q, args); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

func (row snapshotRow) snapshot() (*Snapshot, error) {
	var data StudentRecord
	if err := json.Unmarshal(row.Data, &data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	return &Snapshot{
		ID:        row.ID,
		StudentID: row.StudentID,
		Sequence:  row.Sequence,
		Timestamp: row.Timestamp,
		Data:      data,
	}, nil
}
