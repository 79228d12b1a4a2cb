package store

import (
	"context"
	"fmt"
	"time"
)

var masteryEventColumns = []string{
	"sequence", "timestamp", "student_id", "session_id", "topic",
	"from_mastery", "to_mastery", "from_state", "to_state", "correct",
}

type masteryEventRow struct {
	Sequence    int64     `sql:"sequence"`
	Timestamp   time.Time `sql:"timestamp"`
	StudentID   string    `sql:"student_id"`
	SessionID   string    `sql:"session_id"`
	Topic       string    `sql:"topic"`
	FromMastery float64   `sql:"from_mastery"`
	ToMastery   float64   `sql:"to_mastery"`
	FromState   string    `sql:"from_state"`
	ToState     string    `sql:"to_state"`
	Correct     bool      `sql:"correct"`
}

func (r *eventRepo) AppendMasteryEvent(ctx context.Context, data MasteryEventData) error {
	return r.insertEvent(ctx, tableMasteryEvents, masteryEventColumns[2:], []any{
		data.StudentID, data.SessionID, data.Topic,
		data.FromMastery, data.ToMastery, data.FromState, data.ToState, data.Correct,
	})
}

func (r *eventRepo) QueryMasteryEvents(ctx context.Context, opts QueryOpts) ([]MasteryEventRecord, error) {
	q, args := r.selectEvents(tableMasteryEvents, masteryEventColumns, opts, true).Query()
	var rows []masteryEventRow
	if err := r.store.scan(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("query mastery events: %w", err)
	}
	records := make([]MasteryEventRecord, len(rows))
	for i, row := range rows {
		records[i] = MasteryEventRecord{
			Sequence:  row.Sequence,
			Timestamp: row.Timestamp,
			MasteryEventData: MasteryEventData{
				StudentID:   row.StudentID,
				SessionID:   row.SessionID,
				Topic:       row.Topic,
				FromMastery: row.FromMastery,
				ToMastery:   row.ToMastery,
				FromState:   row.FromState,
				ToState:     row.ToState,
				Correct:     row.Correct,
			},
		}
	}
	return records, nil
}
