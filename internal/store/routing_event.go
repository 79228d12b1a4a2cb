package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

var routingEventColumns = []string{
	"sequence", "timestamp", "event_id", "student_id", "session_id",
	"profile", "label", "confidence", "rules",
	"follow_up", "should_confirm", "degraded", "cached",
}

type routingEventRow struct {
	Sequence      int64     `sql:"sequence"`
	Timestamp     time.Time `sql:"timestamp"`
	EventID       string    `sql:"event_id"`
	StudentID     string    `sql:"student_id"`
	SessionID     string    `sql:"session_id"`
	Profile       string    `sql:"profile"`
	Label         string    `sql:"label"`
	Confidence    float64   `sql:"confidence"`
	Rules         string    `sql:"rules"`
	FollowUp      bool      `sql:"follow_up"`
	ShouldConfirm bool      `sql:"should_confirm"`
	Degraded      bool      `sql:"degraded"`
	Cached        bool      `sql:"cached"`
}

func (r *eventRepo) AppendRoutingEvent(ctx context.Context, data RoutingEventData) error {
	return r.insertEvent(ctx, tableRoutingEvents, routingEventColumns[2:], []any{
		data.EventID, data.StudentID, data.SessionID,
		data.Profile, data.Label, data.Confidence, strings.Join(data.Rules, ","),
		data.FollowUp, data.ShouldConfirm, data.Degraded, data.Cached,
	})
}

func (r *eventRepo) QueryRoutingEvents(ctx context.Context, opts QueryOpts) ([]RoutingEventRecord, error) {
	q, args := r.selectEvents(tableRoutingEvents, routingEventColumns, opts, true).Query()
	var rows []routingEventRow
	if err := r.store.scan(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("query routing events: %w", err)
	}
	records := make([]RoutingEventRecord, len(rows))
	for i, row := range rows {
		var rules []string
		if row.Rules != "" {
			rules = strings.Split(row.Rules, ",")
		}
		records[i] = RoutingEventRecord{
			Sequence:  row.Sequence,
			Timestamp: row.Timestamp,
			RoutingEventData: RoutingEventData{
				EventID:       row.EventID,
				StudentID:     row.StudentID,
				SessionID:     row.SessionID,
				Profile:       row.Profile,
				Label:         row.Label,
				Confidence:    row.Confidence,
				Rules:         rules,
				FollowUp:      row.FollowUp,
				ShouldConfirm: row.ShouldConfirm,
				Degraded:      row.Degraded,
				Cached:        row.Cached,
			},
		}
	}
	return records, nil
}
