package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendMisconceptionEvent(ctx context.Context, data MisconceptionEventData) error {
	return r.insertEvent(ctx, tableMisconceptions,
		[]string{"student_id", "session_id", "topic", "misconception_id", "detector", "student_answer"},
		[]any{data.StudentID, data.SessionID, data.Topic, data.MisconceptionID, data.Detector, data.StudentAnswer},
	)
}

func (r *eventRepo) MisconceptionCounts(ctx context.Context, studentID string) (map[string]int, error) {
	q, args := r.store.builder().Select(
		entsql.As("misconception_id", "id"),
		entsql.As(entsql.Count("*"), "n"),
	).
		From(entsql.Table(tableMisconceptions)).
		Where(entsql.EQ("student_id", studentID)).
		GroupBy("misconception_id").
		Query()

	var rows []struct {
		ID string `sql:"id"`
		N  int    `sql:"n"`
	}
	if err := r.store.scan(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("query misconception counts: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ID] = row.N
	}
	return counts, nil
}
