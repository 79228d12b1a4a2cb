package mastery

import (
	"slices"
	"time"

	"github.com/abhisek/tutorpilot/internal/store"
)

// ToRecord exports the tracker as a serializable record.
func (t *Tracker) ToRecord() store.StudentRecord {
	rec := store.StudentRecord{
		Version:        store.StudentRecordVersion,
		StudentID:      t.studentID,
		Topics:         make(map[string]store.TopicRecord, len(t.topics)),
		Struggling:     t.StrugglingTopics(),
		Misconceptions: make(map[string][]string, len(t.misconceptions)),
	}

	for k, tm := range t.topics {
		tr := store.TopicRecord{Mastery: tm.Mastery}
		if tm.LastInteraction != nil {
			at := tm.LastInteraction.UTC()
			tr.LastInteraction = &at
		}
		if rs := t.schedule.Get(k); rs != nil {
			due := rs.NextReviewDate.UTC()
			tr.NextReview = &due
		}
		for _, h := range tm.History {
			tr.History = append(tr.History, store.InteractionRecord{
				At:         h.At.UTC(),
				Correct:    h.Correct,
				Confidence: h.Confidence,
				HintLevel:  h.HintLevel,
				Before:     h.Before,
				After:      h.After,
			})
		}
		rec.Topics[k] = tr
	}

	for k, ids := range t.misconceptions {
		rec.Misconceptions[k] = slices.Clone(ids)
	}
	return rec
}

// FromRecord rebuilds a tracker from a record. Records written by another
// format version are loaded field by field; missing fields take defaults
// and out-of-range mastery values are clamped.
func FromRecord(rec store.StudentRecord, opts ...Option) *Tracker {
	t := NewTracker(rec.StudentID, opts...)
	if rec.Version != store.StudentRecordVersion {
		t.logger.Warn("loading student record from another version",
			"student", rec.StudentID, "version", rec.Version, "current", store.StudentRecordVersion)
	}

	for topic, tr := range rec.Topics {
		k := key(topic)
		tm := &TopicMastery{Topic: k, Mastery: clamp01(tr.Mastery)}
		if tr.LastInteraction != nil && !tr.LastInteraction.IsZero() {
			at := *tr.LastInteraction
			tm.LastInteraction = &at
		}
		for _, h := range tr.History {
			tm.History = append(tm.History, Interaction{
				At:         h.At,
				Correct:    h.Correct,
				Confidence: h.Confidence,
				HintLevel:  h.HintLevel,
				Before:     h.Before,
				After:      h.After,
			})
		}
		if over := len(tm.History) - t.cfg.HistoryCap; over > 0 {
			tm.History = slices.Delete(tm.History, 0, over)
		}
		t.topics[k] = tm

		if tr.NextReview != nil {
			var last time.Time
			if tm.LastInteraction != nil {
				last = *tm.LastInteraction
			}
			t.schedule.Restore(k, last, *tr.NextReview)
		}
	}

	for _, topic := range rec.Struggling {
		t.struggling[key(topic)] = true
	}
	for topic, ids := range rec.Misconceptions {
		for _, id := range ids {
			t.RecordMisconception(topic, id)
		}
	}
	return t
}
